package animator

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/tess"
)

// gpuSurfaceState is the per-surface data of the GPU backend, built on first draw.
// provider is the model's shared surface provider; paletteProvider belongs to this backend
// so entities drawing the same surface never write to the same palette buffer.
type gpuSurfaceState struct {
	provider        bind_group_provider.BindGroupProvider
	paletteProvider bind_group_provider.BindGroupProvider
	remap           BoneRemap
	palette         []model.GPUBoneMatrix
}

// gpuAnimatorBackendImpl prepares surfaces for vertex-shader skinning. It never touches vertex
// data per frame: each draw fills the surface's compact bone palette, stages it for upload and
// picks the index buffer of the selected detail level.
type gpuAnimatorBackendImpl struct {
	mu *sync.Mutex

	paletteBinding  int
	surfaces        map[*model.Surface]*gpuSurfaceState
	stagedWriteData []bind_group_provider.BufferWrite
}

var _ AnimatorBackend = &gpuAnimatorBackendImpl{}

// boneMatrixSize is the byte size of one palette entry.
var boneMatrixSize = uint64((&model.GPUBoneMatrix{}).Size())

func newGPUAnimatorBackend(paletteBinding int) AnimatorBackend {
	return &gpuAnimatorBackendImpl{
		mu:             &sync.Mutex{},
		paletteBinding: paletteBinding,
		surfaces:       make(map[*model.Surface]*gpuSurfaceState),
	}
}

// surfaceState returns the state of a surface, creating its palette mapping and palette provider and,
// when the model has none yet, its shared surface provider. Caller must hold the mutex.
func (g *gpuAnimatorBackendImpl) surfaceState(m model.Model, index int, surf *model.Surface) *gpuSurfaceState {
	if st, ok := g.surfaces[surf]; ok {
		return st
	}

	label := fmt.Sprintf("%s_%s", m.Name(), surf.Name)
	provider := m.EnsureSurfaceProvider(index, func() bind_group_provider.BindGroupProvider {
		return NewSurfaceProvider(label, surf)
	})
	remap := NewBoneRemap(surf)
	st := &gpuSurfaceState{
		provider: provider,
		paletteProvider: bind_group_provider.NewBindGroupProvider(label+"_palette",
			bind_group_provider.WithBufferSize(g.paletteBinding, uint64(len(remap.Inverse))*boneMatrixSize),
		),
		remap:   remap,
		palette: make([]model.GPUBoneMatrix, len(remap.Inverse)),
	}
	g.surfaces[surf] = st
	return st
}

func (g *gpuAnimatorBackendImpl) DrawSurface(d *SurfaceDraw) (DrawResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.surfaceState(d.Entity.Model, d.Index, d.Surface)
	bones := d.Solver.Bones()
	for i, b := range st.remap.Inverse {
		if b < 0 || int(b) >= len(bones) {
			st.palette[i] = model.NewGPUBoneMatrix(&common.Axis{}, [3]float32{})
			continue
		}
		st.palette[i] = model.NewGPUBoneMatrix(&bones[b].Matrix, bones[b].Translation)
	}

	if len(st.palette) > 0 {
		g.stagedWriteData = append(g.stagedWriteData, bind_group_provider.BufferWrite{
			Provider: st.paletteProvider,
			Binding:  g.paletteBinding,
			Offset:   0,
			Data:     slices.Clone(common.SliceToBytes(st.palette)),
		})
	}

	level := lod.Index(d.Detail)
	numVerts := len(d.Surface.Vertices)
	numIndexes := st.provider.IndexCount(level)
	d.Solver.RecordSurface(numVerts, numVerts, numIndexes/3, len(d.Surface.Triangles))

	return DrawResult{
		Surface:     d.Index,
		Detail:      d.Detail,
		Lod:         level,
		NumVertexes: numVerts,
		NumIndexes:  numIndexes,
		Provider:        st.provider,
		PaletteProvider: st.paletteProvider,
		Palette:         st.palette,
	}, nil
}

func (g *gpuAnimatorBackendImpl) StagedWriteData() []bind_group_provider.BufferWrite {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []bind_group_provider.BufferWrite
	out, g.stagedWriteData = bind_group_provider.Drain(out, g.stagedWriteData)
	return out
}

func (g *gpuAnimatorBackendImpl) Tess() *tess.Tess {
	return nil
}

func (g *gpuAnimatorBackendImpl) Reset() {}

// Release drops the per-surface state and releases the palette providers. Surface providers belong
// to the model and are released with it.
func (g *gpuAnimatorBackendImpl) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, st := range g.surfaces {
		st.paletteProvider.Release()
	}
	clear(g.surfaces)
	g.stagedWriteData = nil
}
