package lod

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedViewer looks down -Z from the origin through a 90 degree square frustum,
// so a sphere of radius r at distance d projects to r/d.
type fixedViewer struct {
	origin  mgl32.Vec3
	forward mgl32.Vec3
}

func (v fixedViewer) ViewOrigin() mgl32.Vec3  { return v.origin }
func (v fixedViewer) ViewForward() mgl32.Vec3 { return v.forward }
func (v fixedViewer) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 10000)
}

var viewer = fixedViewer{forward: mgl32.Vec3{0, 0, -1}}

func TestProjectRadius(t *testing.T) {
	assert.InDelta(t, 0.1, ProjectRadius(1, mgl32.Vec3{0, 0, -10}, viewer), 1e-4)
	assert.InDelta(t, 0.1, ProjectRadius(-1, mgl32.Vec3{3, 2, -10}, viewer), 1e-4, "only depth along the view matters")
	assert.Zero(t, ProjectRadius(1, mgl32.Vec3{0, 0, 10}, viewer), "behind the eye")
	assert.Zero(t, ProjectRadius(1, mgl32.Vec3{0, 0, 0}, viewer))
	assert.Equal(t, float32(1), ProjectRadius(50, mgl32.Vec3{0, 0, -1}, viewer))
}

func TestCalcDecreasesWithDistance(t *testing.T) {
	params := DefaultParams()
	prev := float32(2)
	for d := float32(1); d < 2000; d *= 1.5 {
		flod := Calc(viewer, params, Input{Origin: mgl32.Vec3{0, 0, -d}, Radius: 10})
		assert.LessOrEqual(t, flod, prev, "distance %v", d)
		assert.GreaterOrEqual(t, flod, float32(0))
		prev = flod
	}
}

func TestCalcModifiers(t *testing.T) {
	params := DefaultParams()
	in := Input{Origin: mgl32.Vec3{0, 0, -100}, Radius: 40}
	base := Calc(viewer, params, in)
	assert.InDelta(t, 0.4, base, 1e-4)

	forced := in
	forced.Flags = common.FlagForceLod
	assert.InDelta(t, 0.2, Calc(viewer, params, forced), 1e-4)

	dead := in
	dead.Flags = common.FlagDeadLod
	assert.InDelta(t, 0.32, Calc(viewer, params, dead), 1e-4)

	biased := params
	biased.Bias = 0.4
	assert.InDelta(t, 0.3, Calc(viewer, biased, in), 1e-4)

	modelBias := in
	modelBias.ModelBias = 0.5
	assert.Zero(t, Calc(viewer, params, modelBias), "clamped at zero")

	scaled := in
	scaled.EntityScale = 2
	scaled.ModelScale = 0.5
	assert.InDelta(t, base, Calc(viewer, params, scaled), 1e-4)

	behind := in
	behind.Origin = mgl32.Vec3{0, 0, 100}
	assert.Equal(t, float32(1), Calc(viewer, params, behind), "an unprojectable sphere keeps full detail")
}

func TestIndex(t *testing.T) {
	cases := []struct {
		flod float32
		want int
	}{
		{1.5, 0},
		{1, 0},
		{0.8, 0},
		{0.75, 1},
		{0.6, 1},
		{0.5, 2},
		{0.4, 2},
		{0.35, 3},
		{0, 3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Index(c.flod), "flod %v", c.flod)
	}

	prev := 0
	for f := float32(1); f >= 0; f -= 0.01 {
		idx := Index(f)
		assert.GreaterOrEqual(t, idx, prev)
		prev = idx
	}
}

func TestRenderCount(t *testing.T) {
	params := DefaultParams()
	assert.Equal(t, 50, RenderCount(100, 30, 0.5, 0, params))
	assert.Equal(t, 30, RenderCount(100, 30, 0.1, 0, params))
	assert.Equal(t, 100, RenderCount(100, 30, 1, 0, params))
	assert.Equal(t, 10, RenderCount(10, 30, 0.5, 0, params), "never above the vertex count")
	assert.Equal(t, 30, RenderCount(100, 30, 0.1, common.FlagDeadLod, params), "relaxed mode is off by default")

	relaxed := params
	relaxed.AllowDeadBelowMin = true
	relaxed.DeadFloor = 0.2
	assert.Equal(t, 20, RenderCount(100, 30, 0.1, common.FlagDeadLod, relaxed))
	assert.Equal(t, 25, RenderCount(100, 30, 0.25, common.FlagDeadLod, relaxed))
	assert.Equal(t, 30, RenderCount(100, 30, 0.1, 0, relaxed), "only dead entities go below the minimum")

	prev := 101
	for f := float32(0); f <= 1; f += 0.05 {
		n := RenderCount(100, 30, f, 0, params)
		assert.GreaterOrEqual(t, n, 30)
		if prev <= 100 {
			assert.GreaterOrEqual(t, n, prev)
		}
		prev = n
	}
}

// strip is a row of quads, two triangles each, whose vertices collapse towards the start of the strip.
func strip(quads int) *model.Surface {
	n := 2 * (quads + 1)
	s := &model.Surface{
		Vertices:    make([]model.Vertex, n),
		CollapseMap: make([]int32, n),
		MinLod:      4,
	}
	for q := range quads {
		a := int32(2 * q)
		s.Triangles = append(s.Triangles, model.Triangle{a, a + 1, a + 2}, model.Triangle{a + 2, a + 1, a + 3})
	}
	for i := 2; i < n; i++ {
		s.CollapseMap[i] = int32(i - 2)
	}
	s.CollapseMap[1] = 0
	return s
}

func TestReduceFullDetail(t *testing.T) {
	var r Reducer
	tris := []model.Triangle{{0, 1, 2}, {2, 1, 3}, {0, 1, 9}}
	out := r.Reduce(tris, []int32{0, 0, 1, 1}, 4, 4, 10, nil)
	assert.Equal(t, []uint32{10, 11, 12, 12, 11, 13}, out, "out-of-range triangles are dropped")

	out = r.Reduce(tris[:2], []int32{0, 0}, 4, 2, 0, nil)
	assert.Len(t, out, 6, "an incomplete collapse map renders at full detail")
}

func TestReduceCollapses(t *testing.T) {
	var r Reducer
	tris := []model.Triangle{{0, 1, 2}, {2, 1, 3}}
	collapse := []int32{0, 0, 1, 1}

	assert.Equal(t, []uint32{0, 1, 2}, r.Reduce(tris, collapse, 4, 3, 0, nil))
	assert.Empty(t, r.Reduce(tris, collapse, 4, 2, 0, nil))

	out := []uint32{7}
	out = r.Reduce(tris, collapse, 4, 3, 100, out)
	assert.Equal(t, []uint32{7, 100, 101, 102}, out, "appends after existing indices")

	chain := []int32{0, 0, 1, 2}
	assert.Empty(t, r.Reduce(tris, chain, 4, 2, 0, nil), "collapse targets are followed transitively")
}

func TestReduceOutputIsWellFormed(t *testing.T) {
	s := strip(12)
	numVerts := len(s.Vertices)
	var r Reducer

	prevTris := len(s.Triangles) + 1
	for count := numVerts; count >= 1; count-- {
		out := r.Reduce(s.Triangles, s.CollapseMap, numVerts, count, 0, nil)
		require.Zero(t, len(out)%3)
		for i := 0; i < len(out); i += 3 {
			a, b, c := out[i], out[i+1], out[i+2]
			assert.True(t, a != b && b != c && c != a, "degenerate triangle at count %d", count)
			assert.Less(t, int(a), count)
			assert.Less(t, int(b), count)
			assert.Less(t, int(c), count)
		}
		assert.LessOrEqual(t, len(out)/3, prevTris, "count %d", count)
		prevTris = len(out) / 3
	}
}

func TestBuildIndexBuffers(t *testing.T) {
	s := strip(12)
	levels := BuildIndexBuffers(s)
	require.Len(t, levels, MaxLods)
	assert.Len(t, levels[0], len(s.Triangles)*3)
	for i := 1; i < MaxLods; i++ {
		assert.LessOrEqual(t, len(levels[i]), len(levels[i-1]))
	}

	small := &model.Surface{
		Vertices:    make([]model.Vertex, 4),
		Triangles:   []model.Triangle{{0, 1, 2}, {2, 1, 3}},
		CollapseMap: []int32{0, 0, 1, 1},
		MinLod:      2,
	}
	levels = BuildIndexBuffers(small)
	assert.Len(t, levels[0], 6)
	assert.Len(t, levels[1], 3)
	assert.Empty(t, levels[2])
	assert.Empty(t, levels[3])
}
