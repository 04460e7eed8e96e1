package skeleton

import (
	"log"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
)

// Snapshot is the cache key of a solve: two solves with equal snapshots produce identical bones.
// Floats compare exactly.
type Snapshot struct {
	Model                               model.Model
	Frame, OldFrame                     int32
	FrameModel, OldFrameModel           *model.Skeleton
	BackLerp                            float32
	TorsoFrame, OldTorsoFrame           int32
	TorsoFrameModel, OldTorsoFrameModel *model.Skeleton
	TorsoBackLerp                       float32
	Flags                               common.RenderFlags
	TorsoAxis                           common.Axis
}

// Stats accumulates the detail reduction of every surface drawn during one cache generation.
type Stats struct {
	RenderedVerts, TotalVerts int
	RenderedTris, TotalTris   int
}

// Ratio returns the share of triangles kept, in percent.
func (s Stats) Ratio() float32 {
	if s.TotalTris == 0 {
		return 100
	}
	return 100 * float32(s.RenderedTris) / float32(s.TotalTris)
}

// stillValid compares e against the stored snapshot. On mismatch it starts a new generation:
// every bone loses its valid flag and the stats are flushed.
func (s *solver) stillValid(e *Entity) bool {
	snap := e.Snapshot()
	if s.hasSnapshot && snap == s.snapshot {
		return true
	}

	clear(s.valid)
	s.snapshot = snap
	s.hasSnapshot = true
	s.flushStats()
	return false
}

func (s *solver) flushStats() {
	if s.logStats && s.stats.TotalTris > 0 {
		log.Printf("[Skeleton] verts %4d/%4d  tris %4d/%4d  (%.2f%%)",
			s.stats.RenderedVerts, s.stats.TotalVerts, s.stats.RenderedTris, s.stats.TotalTris, s.stats.Ratio())
	}
	s.stats = Stats{}
}

func (s *solver) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.valid)
	s.hasSnapshot = false
}

func (s *solver) RecordSurface(renderedVerts, totalVerts, renderedTris, totalTris int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.RenderedVerts += renderedVerts
	s.stats.TotalVerts += totalVerts
	s.stats.RenderedTris += renderedTris
	s.stats.TotalTris += totalTris
}

func (s *solver) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
