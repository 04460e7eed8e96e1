// Package lod picks the level of detail of a skinned surface from its projected screen size and
// reduces surfaces to a target vertex count through their collapse maps.
package lod

import (
	"cmp"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxLods is the number of discrete detail levels of the indexed GPU path.
const MaxLods = 4

// Resolutions are the per-level detail thresholds, finest first.
var Resolutions = [MaxLods]float32{1.0, 0.75, 0.5, 0.35}

const (
	forceLodFactor = 0.5
	deadLodFactor  = 0.8
	biasFactor     = 0.25
)

// Viewer is the camera state the selector projects against.
type Viewer interface {
	// ViewOrigin returns the eye position in world space.
	ViewOrigin() mgl32.Vec3
	// ViewForward returns the unit view direction in world space.
	ViewForward() mgl32.Vec3
	// Projection returns the column-major projection matrix.
	Projection() mgl32.Mat4
}

// Params are the global detail tunables.
type Params struct {
	// Scale multiplies the projected radius.
	Scale float32
	// Bias is subtracted from the detail factor, scaled by a quarter.
	Bias float32
	// AllowDeadBelowMin lets dead entities render below a surface's minimum vertex count.
	AllowDeadBelowMin bool
	// DeadFloor is the lowest detail factor a dead entity is reduced to when AllowDeadBelowMin is set.
	DeadFloor float32
}

// DefaultParams returns the shipped tunables.
func DefaultParams() Params {
	return Params{Scale: 1, DeadFloor: 0.35}
}

// Input is the per-entity, per-model state of a detail query.
type Input struct {
	Origin      mgl32.Vec3
	Radius      float32
	Flags       common.RenderFlags
	ModelBias   float32
	ModelScale  float32
	EntityScale float32
}

// ProjectRadius projects a sphere radius at location onto the screen.
//
// Parameters:
//   - r: the sphere radius
//   - location: the sphere center in world space
//   - v: the viewer
//
// Returns:
//   - float32: the projected radius in normalized device units, 0 when behind the eye, at most 1
func ProjectRadius(r float32, location mgl32.Vec3, v Viewer) float32 {
	forward := v.ViewForward()
	dist := forward.Dot(location) - forward.Dot(v.ViewOrigin())
	if dist <= 0 {
		return 0
	}

	p := mgl32.Vec4{0, math32.Abs(r), -dist, 1}
	projected := v.Projection().Mul4x1(p)
	if projected[3] == 0 {
		return 0
	}

	pr := projected[1] / projected[3]
	if pr > 1 {
		pr = 1
	}
	return pr
}

// Calc computes the continuous detail factor of an entity.
//
// Parameters:
//   - v: the viewer
//   - params: the global tunables
//   - in: the entity and model state
//
// Returns:
//   - float32: the detail factor in [0, 1], 1 being full detail
func Calc(v Viewer, params Params, in Input) float32 {
	entityScale := cmp.Or(in.EntityScale, 1)
	modelScale := cmp.Or(in.ModelScale, 1)

	flod := float32(1)
	if pr := ProjectRadius(in.Radius, in.Origin, v); pr != 0 {
		flod = pr * params.Scale * modelScale * entityScale
	}

	if in.Flags.Has(common.FlagForceLod) {
		flod *= forceLodFactor
	}
	if in.Flags.Has(common.FlagDeadLod) {
		flod *= deadLodFactor
	}

	flod -= biasFactor*params.Bias + in.ModelBias
	return common.Clamp(flod, 0, 1)
}

// Index maps a detail factor to a discrete level: the coarsest level whose threshold is not exceeded.
//
// Parameters:
//   - flod: the detail factor
//
// Returns:
//   - int: the level, 0 being full detail
func Index(flod float32) int {
	lod := MaxLods - 1
	for ; lod >= 0; lod-- {
		if flod <= Resolutions[lod] {
			break
		}
	}
	if lod < 0 {
		lod = 0
	}
	return lod
}

// RenderCount converts a detail factor to the number of vertices to keep.
//
// Parameters:
//   - numVerts: the surface vertex count
//   - minLod: the surface's minimum vertex count
//   - flod: the detail factor
//   - flags: the entity render flags
//   - params: the global tunables
//
// Returns:
//   - int: the vertex count, in [0, numVerts]
func RenderCount(numVerts, minLod int, flod float32, flags common.RenderFlags, params Params) int {
	if params.AllowDeadBelowMin && flags.Has(common.FlagDeadLod) {
		if flod < params.DeadFloor {
			flod = params.DeadFloor
		}
		return min(int(math32.Round(float32(numVerts)*flod)), numVerts)
	}

	count := int(math32.Round(float32(numVerts) * flod))
	if count < minLod {
		count = minLod
	}
	if count > numVerts {
		count = numVerts
	}
	return count
}
