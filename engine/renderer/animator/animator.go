package animator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/tess"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
)

var (
	// ErrNoModel is returned when the entity has no mesh to draw.
	ErrNoModel = errors.New("animator: entity has no model")
	// ErrSurfaceIndex is returned when a surface index is out of range.
	ErrSurfaceIndex = errors.New("animator: surface index out of range")
	// ErrMissingFrames is returned when a keyframe of the entity is not loaded; nothing is written.
	ErrMissingFrames = errors.New("animator: missing keyframes")
)

// DrawResult describes one emitted surface.
type DrawResult struct {
	// Surface is the surface index within the model.
	Surface int

	// Detail is the continuous detail factor the surface was emitted at.
	Detail float32

	// Lod is the discrete detail level of the GPU path, 0 on the CPU path.
	Lod int

	// FirstVertex and NumVertexes locate the vertices in the Tess (CPU) or the vertex buffer (GPU).
	FirstVertex, NumVertexes int

	// FirstIndex and NumIndexes locate the indices in the Tess (CPU) or the level's index buffer (GPU).
	FirstIndex, NumIndexes int

	// Provider holds the surface's shared vertex and index resources, nil on the CPU path.
	Provider bind_group_provider.BindGroupProvider

	// PaletteProvider holds this animator's bone palette buffer for the surface, nil on the CPU path.
	PaletteProvider bind_group_provider.BindGroupProvider

	// Palette is the uploaded bone palette, nil on the CPU path. It is overwritten by the next draw of the surface.
	Palette []model.GPUBoneMatrix
}

// animator is the implementation of the Animator interface.
type animator struct {
	mu          *sync.Mutex
	backendType AnimatorBackendType
	backend     AnimatorBackend
	solver      skeleton.Solver
	params      lod.Params
	viewer      lod.Viewer

	// options collected before the backend exists
	kernel                  Kernel
	solverOpts              []skeleton.SolverBuilderOption
	maxVertexes, maxIndexes int
	paletteBinding          int
}

// Animator defines the public interface for skeletal surface drawing.
//
// An Animator owns one skeleton Solver and one skinning backend. For each surface it solves the
// bones the surface references, picks a detail level from the entity's projected size and hands
// the surface to the backend. The CPU backend skins into a Tess; the GPU backend stages a compact
// bone palette and picks a precomputed index buffer.
//
// Surfaces of one entity drawn in a row share solved bones through the Solver's cache. An
// Animator is meant to be owned by one entity, or one worker, at a time.
type Animator interface {
	// BackendType returns the type of backend this animator is using.
	//
	// Returns:
	//   - AnimatorBackendType: the backend type
	BackendType() AnimatorBackendType

	// Solver returns the skeleton solve context of this animator.
	//
	// Returns:
	//   - skeleton.Solver: the solver
	Solver() skeleton.Solver

	// Tess returns the CPU output buffers, nil on the GPU backend.
	//
	// Returns:
	//   - *tess.Tess: the buffers or nil
	Tess() *tess.Tess

	// Params returns the detail tunables in use.
	//
	// Returns:
	//   - lod.Params: the tunables
	Params() lod.Params

	// SetParams replaces the detail tunables.
	//
	// Parameters:
	//   - p: the new tunables
	SetParams(p lod.Params)

	// Viewer returns the camera used for detail selection, or nil.
	//
	// Returns:
	//   - lod.Viewer: the viewer or nil
	Viewer() lod.Viewer

	// SetViewer sets the camera used for detail selection. With no viewer every surface is drawn at full detail.
	//
	// Parameters:
	//   - v: the viewer
	SetViewer(v lod.Viewer)

	// Detail computes the continuous detail factor of an entity from its current keyframe bounds.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - float32: the detail factor in [0, 1]
	Detail(e *skeleton.Entity) float32

	// DrawSurface solves and emits one surface of the entity's model.
	//
	// Parameters:
	//   - e: the entity
	//   - index: the surface index
	//
	// Returns:
	//   - DrawResult: the emitted draw
	//   - error: ErrNoModel, ErrSurfaceIndex, ErrMissingFrames or tess.ErrOverflow (wrapped)
	DrawSurface(e *skeleton.Entity, index int) (DrawResult, error)

	// DrawModel emits every surface of the entity's model in order. It stops at the first error.
	//
	// Parameters:
	//   - e: the entity
	//   - out: the slice to append results to
	//
	// Returns:
	//   - []DrawResult: out with one result per emitted surface
	//   - error: the first error encountered
	DrawModel(e *skeleton.Entity, out []DrawResult) ([]DrawResult, error)

	// StagedWriteData returns and clears the pending GPU buffer writes.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the pending writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// Reset rewinds the per-frame output of the backend.
	Reset()

	// Release frees all GPU resources held by this animator.
	Release()
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator with the specified backend type.
//
// Parameters:
//   - backendType: the type of skinning backend to use
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: a new instance of Animator configured with the specified backend and options
func NewAnimator(backendType AnimatorBackendType, options ...AnimatorBuilderOption) Animator {
	a := &animator{
		mu:             &sync.Mutex{},
		backendType:    backendType,
		params:         lod.DefaultParams(),
		kernel:         DefaultKernel,
		maxVertexes:    DefaultMaxVertexes,
		maxIndexes:     DefaultMaxIndexes,
		paletteBinding: bind_group_provider.BindingBonePalette,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.solver == nil {
		a.solver = skeleton.NewSolver(a.solverOpts...)
	}

	switch backendType {
	case BackendTypeGPU:
		a.backend = newGPUAnimatorBackend(a.paletteBinding)
	case BackendTypeCPU:
		fallthrough
	default:
		a.backend = newCPUAnimatorBackend(a.kernel, tess.New(a.maxVertexes, a.maxIndexes))
	}
	return a
}

func (a *animator) BackendType() AnimatorBackendType {
	return a.backendType
}

func (a *animator) Solver() skeleton.Solver {
	return a.solver
}

func (a *animator) Tess() *tess.Tess {
	return a.backend.Tess()
}

func (a *animator) Params() lod.Params {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.params
}

func (a *animator) SetParams(p lod.Params) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.params = p
}

func (a *animator) Viewer() lod.Viewer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewer
}

func (a *animator) SetViewer(v lod.Viewer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.viewer = v
}

func (a *animator) Detail(e *skeleton.Entity) float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detail(e)
}

// detail projects the current keyframe's bounding sphere. Caller must hold the mutex.
func (a *animator) detail(e *skeleton.Entity) float32 {
	if a.viewer == nil || e == nil || e.Model == nil || e.FrameModel == nil {
		return 1
	}
	frame, _, ok := e.FrameModel.Frame(e.Frame)
	if !ok {
		return 1
	}
	return lod.Calc(a.viewer, a.params, lod.Input{
		Origin:      e.Origin.Add(frame.LocalOrigin),
		Radius:      frame.Radius,
		Flags:       e.Flags,
		ModelBias:   e.Model.LodBias(),
		ModelScale:  e.Model.LodScale(),
		EntityScale: e.LodScale,
	})
}

func (a *animator) DrawSurface(e *skeleton.Entity, index int) (DrawResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.drawSurface(e, index)
}

func (a *animator) drawSurface(e *skeleton.Entity, index int) (DrawResult, error) {
	if e == nil || e.Model == nil {
		return DrawResult{}, ErrNoModel
	}
	surf := e.Model.Surface(index)
	if surf == nil {
		return DrawResult{}, fmt.Errorf("%w: %d of %d in %s", ErrSurfaceIndex, index, e.Model.SurfaceCount(), e.Model.Name())
	}
	if !a.solver.CalcBones(e, surf.BoneReferences) {
		return DrawResult{}, fmt.Errorf("%w: %s surface %s", ErrMissingFrames, e.Model.Name(), surf.Name)
	}

	res, err := a.backend.DrawSurface(&SurfaceDraw{
		Solver:  a.solver,
		Entity:  e,
		Index:   index,
		Surface: surf,
		Detail:  a.detail(e),
		Params:  a.params,
	})
	if err != nil {
		return DrawResult{}, fmt.Errorf("animator: draw %s surface %s: %w", e.Model.Name(), surf.Name, err)
	}
	return res, nil
}

func (a *animator) DrawModel(e *skeleton.Entity, out []DrawResult) ([]DrawResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e == nil || e.Model == nil {
		return out, ErrNoModel
	}
	for i := range e.Model.SurfaceCount() {
		res, err := a.drawSurface(e, i)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (a *animator) StagedWriteData() []bind_group_provider.BufferWrite {
	return a.backend.StagedWriteData()
}

func (a *animator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.backend.Reset()
}

func (a *animator) Release() {
	a.backend.Release()
}
