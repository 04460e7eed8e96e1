// Package tess holds the fixed-capacity vertex and index buffers a skinned draw is written into.
package tess

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrOverflow is returned when a draw does not fit in the remaining buffer capacity.
var ErrOverflow = errors.New("tess: buffer overflow")

// Tess is a batch of skinned geometry ready for submission. Buffers are allocated once at their
// maximum size; Reset rewinds them without freeing.
type Tess struct {
	XYZ       []mgl32.Vec4
	Normals   []mgl32.Vec4
	Tangents  []mgl32.Vec4
	Binormals []mgl32.Vec4
	TexCoords []mgl32.Vec2
	Indexes   []uint32

	NumVertexes int
	NumIndexes  int
}

// New allocates a Tess with the given capacities.
//
// Parameters:
//   - maxVertexes: the vertex capacity
//   - maxIndexes: the index capacity
//
// Returns:
//   - *Tess: the buffers
func New(maxVertexes, maxIndexes int) *Tess {
	return &Tess{
		XYZ:       make([]mgl32.Vec4, maxVertexes),
		Normals:   make([]mgl32.Vec4, maxVertexes),
		Tangents:  make([]mgl32.Vec4, maxVertexes),
		Binormals: make([]mgl32.Vec4, maxVertexes),
		TexCoords: make([]mgl32.Vec2, maxVertexes),
		Indexes:   make([]uint32, 0, maxIndexes),
	}
}

// MaxVertexes returns the vertex capacity.
func (t *Tess) MaxVertexes() int {
	return len(t.XYZ)
}

// MaxIndexes returns the index capacity.
func (t *Tess) MaxIndexes() int {
	return cap(t.Indexes)
}

// CheckOverflow reports whether a draw of the given size fits after the data already written.
//
// Parameters:
//   - verts: the vertices the draw writes
//   - indexes: the indices the draw writes
//
// Returns:
//   - error: ErrOverflow (wrapped) if the draw does not fit
func (t *Tess) CheckOverflow(verts, indexes int) error {
	if t.NumVertexes+verts > t.MaxVertexes() {
		return fmt.Errorf("%w: %d + %d vertexes exceeds %d", ErrOverflow, t.NumVertexes, verts, t.MaxVertexes())
	}
	if t.NumIndexes+indexes > t.MaxIndexes() {
		return fmt.Errorf("%w: %d + %d indexes exceeds %d", ErrOverflow, t.NumIndexes, indexes, t.MaxIndexes())
	}
	return nil
}

// AppendIndexes returns the index slice positioned for appending; pass its result to CommitIndexes.
func (t *Tess) AppendIndexes() []uint32 {
	return t.Indexes[:t.NumIndexes]
}

// CommitIndexes records the index slice produced by appending to AppendIndexes.
func (t *Tess) CommitIndexes(indexes []uint32) {
	t.Indexes = indexes
	t.NumIndexes = len(indexes)
}

// Reset rewinds the buffers for the next batch.
func (t *Tess) Reset() {
	t.NumVertexes = 0
	t.NumIndexes = 0
	t.Indexes = t.Indexes[:0]
}
