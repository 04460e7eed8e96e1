package lod

import (
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/chewxy/math32"
)

// Reducer rewrites triangle lists through a collapse map. It keeps its remap scratch between calls
// and is not safe for concurrent use.
type Reducer struct {
	remap []int32
}

// Reduce appends the triangles of a surface reduced to count vertices.
// Excess vertices follow the collapse map, transitively, to a kept vertex. Triangles that become
// degenerate or reference a vertex outside the surface are dropped. A surface without a complete
// collapse map is emitted at full detail.
//
// Parameters:
//   - tris: the full-detail triangles
//   - collapseMap: per-vertex collapse targets, each lower than its own index
//   - numVerts: the surface vertex count
//   - count: the number of vertices to keep
//   - baseVertex: added to every emitted index
//   - out: the index list to append to
//
// Returns:
//   - []uint32: out with the emitted indices appended
func (r *Reducer) Reduce(tris []model.Triangle, collapseMap []int32, numVerts, count int, baseVertex uint32, out []uint32) []uint32 {
	if count >= numVerts || len(collapseMap) < numVerts {
		for _, t := range tris {
			if !inRange(t, numVerts) {
				continue
			}
			out = append(out, baseVertex+uint32(t[0]), baseVertex+uint32(t[1]), baseVertex+uint32(t[2]))
		}
		return out
	}

	if cap(r.remap) < numVerts {
		r.remap = make([]int32, numVerts)
	}
	remap := r.remap[:numVerts]
	count = max(count, 1)
	for j := range count {
		remap[j] = int32(j)
	}
	for j := count; j < numVerts; j++ {
		target := collapseMap[j]
		if target < 0 || int(target) >= j {
			target = 0
		}
		remap[j] = remap[target]
	}

	for _, t := range tris {
		if !inRange(t, numVerts) {
			continue
		}
		p0, p1, p2 := remap[t[0]], remap[t[1]], remap[t[2]]
		if p0 == p1 || p1 == p2 || p2 == p0 {
			continue
		}
		out = append(out, baseVertex+uint32(p0), baseVertex+uint32(p1), baseVertex+uint32(p2))
	}
	return out
}

func inRange(t model.Triangle, numVerts int) bool {
	n := int32(numVerts)
	return t[0] >= 0 && t[0] < n && t[1] >= 0 && t[1] < n && t[2] >= 0 && t[2] < n
}

// BuildIndexBuffers precomputes one index list per detail level for the indexed GPU path.
// Level i keeps round(numVerts*Resolutions[i]) vertices, never fewer than the surface minimum.
//
// Parameters:
//   - s: the surface
//
// Returns:
//   - [][]uint32: MaxLods index lists, finest first
func BuildIndexBuffers(s *model.Surface) [][]uint32 {
	var r Reducer
	numVerts := len(s.Vertices)
	levels := make([][]uint32, MaxLods)
	for i, res := range Resolutions {
		count := int(math32.Round(float32(numVerts) * res))
		count = min(max(count, s.MinLod), numVerts)
		levels[i] = r.Reduce(s.Triangles, s.CollapseMap, numVerts, count, 0, make([]uint32, 0, len(s.Triangles)*3))
	}
	return levels
}
