package animator

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/tess"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
)

// AnimatorBackendType identifies the type of skinning backend used by an Animator.
type AnimatorBackendType int

const (
	// BackendTypeCPU skins vertices on the CPU into the animator's Tess, reducing surfaces
	// through their collapse maps.
	BackendTypeCPU AnimatorBackendType = iota

	// BackendTypeGPU stages a compact bone palette for vertex-shader skinning and selects a
	// precomputed index buffer per detail level.
	BackendTypeGPU
)

// String returns the configuration name of the backend type.
func (t AnimatorBackendType) String() string {
	switch t {
	case BackendTypeGPU:
		return "gpu"
	default:
		return "cpu"
	}
}

// ParseBackendType converts a configuration name to a backend type.
//
// Parameters:
//   - name: "cpu" or "gpu", case-insensitive
//
// Returns:
//   - AnimatorBackendType: the backend type
//   - error: an error if the name is unknown
func ParseBackendType(name string) (AnimatorBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cpu":
		return BackendTypeCPU, nil
	case "gpu":
		return BackendTypeGPU, nil
	}
	return BackendTypeCPU, fmt.Errorf("animator: unknown backend %q", name)
}

// SurfaceDraw carries everything a backend needs to emit one surface.
// The surface's bones are already solved when a backend sees it; Detail is the continuous
// detail factor in [0, 1].
type SurfaceDraw struct {
	Solver  skeleton.Solver
	Entity  *skeleton.Entity
	Index   int
	Surface *model.Surface
	Detail  float32
	Params  lod.Params
}

// AnimatorBackend is the interface every skinning backend implements.
type AnimatorBackend interface {
	// DrawSurface emits one surface whose bones have been solved.
	//
	// Parameters:
	//   - d: the surface and its solve state
	//
	// Returns:
	//   - DrawResult: the emitted draw
	//   - error: an error if the surface could not be emitted
	DrawSurface(d *SurfaceDraw) (DrawResult, error)

	// StagedWriteData returns and clears the pending GPU buffer writes.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the pending writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// Tess returns the CPU output buffers, or nil when the backend does not skin on the CPU.
	//
	// Returns:
	//   - *tess.Tess: the buffers or nil
	Tess() *tess.Tess

	// Reset rewinds per-frame output.
	Reset()

	// Release frees any GPU resources held by the backend.
	Release()
}
