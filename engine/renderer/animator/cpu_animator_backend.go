package animator

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/tess"
)

// cpuAnimatorBackendImpl skins surfaces on the CPU. Each draw appends the reduced index list and
// the skinned vertices to the Tess; Reset rewinds it for the next batch.
type cpuAnimatorBackendImpl struct {
	mu      *sync.Mutex
	kernel  Kernel
	tess    *tess.Tess
	reducer lod.Reducer
}

var _ AnimatorBackend = &cpuAnimatorBackendImpl{}

func newCPUAnimatorBackend(k Kernel, t *tess.Tess) AnimatorBackend {
	return &cpuAnimatorBackendImpl{
		mu:     &sync.Mutex{},
		kernel: k,
		tess:   t,
	}
}

func (c *cpuAnimatorBackendImpl) DrawSurface(d *SurfaceDraw) (DrawResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	surf := d.Surface
	numVerts := len(surf.Vertices)
	count := lod.RenderCount(numVerts, surf.MinLod, d.Detail, d.Entity.Flags, d.Params)

	if err := c.tess.CheckOverflow(count, len(surf.Triangles)*3); err != nil {
		return DrawResult{}, err
	}

	baseVertex := c.tess.NumVertexes
	firstIndex := c.tess.NumIndexes
	indexes := c.reducer.Reduce(surf.Triangles, surf.CollapseMap, numVerts, count, uint32(baseVertex), c.tess.AppendIndexes())
	c.tess.CommitIndexes(indexes)

	SkinVertices(c.kernel, d.Solver.Bones(), surf.Vertices[:count], c.tess, baseVertex)
	c.tess.NumVertexes += count

	numIndexes := c.tess.NumIndexes - firstIndex
	d.Solver.RecordSurface(count, numVerts, numIndexes/3, len(surf.Triangles))

	return DrawResult{
		Surface:     d.Index,
		Detail:      d.Detail,
		FirstVertex: baseVertex,
		NumVertexes: count,
		FirstIndex:  firstIndex,
		NumIndexes:  numIndexes,
	}, nil
}

func (c *cpuAnimatorBackendImpl) StagedWriteData() []bind_group_provider.BufferWrite {
	return nil
}

func (c *cpuAnimatorBackendImpl) Tess() *tess.Tess {
	return c.tess
}

func (c *cpuAnimatorBackendImpl) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tess.Reset()
}

func (c *cpuAnimatorBackendImpl) Release() {}
