package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-mdm/engine/camera"
	"github.com/Carmen-Shannon/oxy-mdm/engine/game_object"
	"github.com/Carmen-Shannon/oxy-mdm/engine/loader"
	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walker(t *testing.T) loader.Asset {
	t.Helper()
	a, err := loader.NewLoader(loader.BackendTypeProcedural).Load(loader.Recipe{Name: "walker"})
	require.NoError(t, err)
	return a
}

func newWalker(a loader.Asset, frame int32, options ...game_object.GameObjectBuilderOption) game_object.GameObject {
	obj := game_object.NewGameObject(append([]game_object.GameObjectBuilderOption{
		game_object.WithModel(a.Model),
		game_object.WithEnabled(true),
	}, options...)...)
	obj.UpdateEntity(func(e *skeleton.Entity) {
		e.SetLegs(a.Skeleton, frame, frame, 0)
		e.SetTorso(a.Skeleton, frame, frame, 0)
	})
	return obj
}

func TestNewScenePanicsWithoutCamera(t *testing.T) {
	assert.Panics(t, func() { NewScene("empty", nil) })
}

func TestAddCreatesAnimator(t *testing.T) {
	a := walker(t)
	cam := camera.NewCamera()
	s := NewScene("main", cam, WithActive(true), WithComputeWorkers(2))
	defer s.Release()

	assert.Equal(t, "main", s.Name())
	assert.True(t, s.Active())

	first := newWalker(a, 0)
	second := newWalker(a, 0, game_object.WithID(42))
	id1 := s.Add(first)
	id2 := s.Add(second)
	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(42), id2, "preset IDs are kept")
	assert.Equal(t, 2, s.Count())
	assert.Same(t, first, s.Get(id1))
	assert.Nil(t, s.Get(7))

	require.NotNil(t, first.Animator())
	assert.Equal(t, animator.BackendTypeCPU, first.Animator().BackendType())
	assert.Equal(t, cam, first.Animator().Viewer())
	assert.NotSame(t, first.Animator(), second.Animator(), "each object gets its own animator")

	objs := s.Objects()
	require.Len(t, objs, 2)
	assert.Equal(t, id1, objs[0].ID())
	assert.Equal(t, id2, objs[1].ID())

	assert.Panics(t, func() { s.Add(game_object.NewGameObject()) }, "objects need a model")
}

func TestAddKeepsCallerAnimator(t *testing.T) {
	a := walker(t)
	s := NewScene("main", camera.NewCamera())
	mine := animator.NewAnimator(animator.BackendTypeCPU)
	obj := newWalker(a, 0, game_object.WithAnimator(mine))
	id := s.Add(obj)

	s.Remove(id)
	assert.Zero(t, s.Count())
	assert.Same(t, mine, obj.Animator(), "only animators the scene created are detached")
}

func TestRemoveAndClearReleaseOwned(t *testing.T) {
	a := walker(t)
	s := NewScene("main", camera.NewCamera())
	first := newWalker(a, 0)
	second := newWalker(a, 0)
	id := s.Add(first)
	s.Add(second)

	s.Remove(id)
	assert.Nil(t, first.Animator())
	assert.Equal(t, 1, s.Count())
	s.Remove(id)

	s.Clear()
	assert.Zero(t, s.Count())
	assert.Nil(t, second.Animator())
}

func TestPrepareFrame(t *testing.T) {
	a := walker(t)
	p := profiler.NewProfiler()
	s := NewScene("main", camera.NewCamera(), WithProfiler(p), WithComputeWorkers(3))
	defer s.Release()

	var verts, tris int
	for i := range a.Model.SurfaceCount() {
		verts += len(a.Model.Surface(i).Vertices)
		tris += len(a.Model.Surface(i).Triangles)
	}

	for i := range 6 {
		s.Add(newWalker(a, int32(i)))
	}
	disabled := newWalker(a, 0, game_object.WithEnabled(false))
	s.Add(disabled)

	stats, err := s.PrepareFrame()
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Objects, "disabled objects are skipped")
	assert.Equal(t, 6*a.Model.SurfaceCount(), stats.Draws)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 6*verts, stats.Skin.TotalVerts)
	assert.Equal(t, 6*tris, stats.Skin.TotalTris)
	assert.Equal(t, 6*verts, stats.Skin.RenderedVerts, "objects behind the camera keep full detail")
	assert.Empty(t, s.StagedWriteData(), "the CPU path stages nothing")
	assert.Empty(t, disabled.Results())
}

func TestPrepareFrameMatchesSerial(t *testing.T) {
	a := walker(t)
	s := NewScene("main", camera.NewCamera(), WithComputeWorkers(4))
	defer s.Release()

	var objs []game_object.GameObject
	for i := range 8 {
		obj := newWalker(a, int32(i), game_object.WithPosition(mgl32.Vec3{float32(i) * 50, 0, -float32(i) * 400}))
		objs = append(objs, obj)
		s.Add(obj)
	}

	_, err := s.PrepareFrame()
	require.NoError(t, err)

	for _, obj := range objs {
		serial := animator.NewAnimator(animator.BackendTypeCPU, animator.WithViewer(s.Camera()))
		e := obj.Entity()
		want, err := serial.DrawModel(&e, nil)
		require.NoError(t, err)

		got := obj.Results()
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].NumVertexes, got[i].NumVertexes)
			assert.Equal(t, want[i].NumIndexes, got[i].NumIndexes)
			assert.Equal(t, want[i].Detail, got[i].Detail)
		}

		tw, tg := serial.Tess(), obj.Animator().Tess()
		require.Equal(t, tw.NumVertexes, tg.NumVertexes)
		assert.Equal(t, tw.XYZ[:tw.NumVertexes], tg.XYZ[:tg.NumVertexes])
		assert.Equal(t, tw.Indexes[:tw.NumIndexes], tg.Indexes[:tg.NumIndexes])
	}
}

func TestPrepareFrameDistantObjectsReduce(t *testing.T) {
	a := walker(t)
	s := NewScene("main", camera.NewCamera())
	defer s.Release()

	s.Add(newWalker(a, 0, game_object.WithPosition(mgl32.Vec3{0, 0, -100000})))
	stats, err := s.PrepareFrame()
	require.NoError(t, err)
	assert.Less(t, stats.Skin.RenderedVerts, stats.Skin.TotalVerts)
	assert.Less(t, stats.Skin.RenderedTris, stats.Skin.TotalTris)
}

func TestPrepareFrameReportsFailures(t *testing.T) {
	a := walker(t)
	s := NewScene("main", camera.NewCamera())
	defer s.Release()

	good := newWalker(a, 0)
	bad := newWalker(a, 0)
	bad.UpdateEntity(func(e *skeleton.Entity) {
		e.Frame = 999
	})
	s.Add(good)
	s.Add(bad)

	stats, err := s.PrepareFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, animator.ErrMissingFrames)
	assert.Equal(t, 2, stats.Objects)
	assert.Equal(t, 1, stats.Failed)
	assert.Len(t, good.Results(), a.Model.SurfaceCount(), "the other objects are unaffected")
}

func TestEphemeralObjectsLastOneFrame(t *testing.T) {
	a := walker(t)
	s := NewScene("main", camera.NewCamera())
	defer s.Release()

	s.Add(newWalker(a, 0))
	flash := newWalker(a, 0, game_object.WithEphemeral(true))
	s.Add(flash)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 1, s.CountEphemeral())
	require.NotNil(t, flash.Animator())

	stats, err := s.PrepareFrame()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Objects)
	assert.Zero(t, s.CountEphemeral())
	assert.Nil(t, flash.Animator(), "the scene releases what it created")

	stats, err = s.PrepareFrame()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Objects)
}

func TestSetLodParams(t *testing.T) {
	a := walker(t)
	s := NewScene("main", camera.NewCamera())
	defer s.Release()

	before := newWalker(a, 0)
	s.Add(before)

	p := lod.Params{Scale: 2, Bias: 1}
	s.SetLodParams(p)
	assert.Equal(t, p, before.Animator().Params())

	after := newWalker(a, 0)
	s.Add(after)
	assert.Equal(t, p, after.Animator().Params())
}

func TestSetCamera(t *testing.T) {
	a := walker(t)
	s := NewScene("main", camera.NewCamera())
	defer s.Release()

	obj := newWalker(a, 0)
	s.Add(obj)

	cam := camera.NewCamera(camera.WithFar(100))
	s.SetCamera(cam)
	assert.Equal(t, cam, s.Camera())
	assert.Equal(t, cam, obj.Animator().Viewer())
	assert.Panics(t, func() { s.SetCamera(nil) })
}

func TestPrepareFrameGPUStagesPalettes(t *testing.T) {
	a := walker(t)
	s := NewScene("main", camera.NewCamera(), WithBackendType(animator.BackendTypeGPU))
	defer s.Release()

	for i := range 3 {
		s.Add(newWalker(a, int32(i)))
	}

	stats, err := s.PrepareFrame()
	require.NoError(t, err)
	assert.Equal(t, 3*a.Model.SurfaceCount(), stats.Draws)

	writes := s.StagedWriteData()
	require.Len(t, writes, 3*a.Model.SurfaceCount(), "one palette write per drawn surface")
	targets := make(map[bind_group_provider.BindGroupProvider]bool)
	for _, w := range writes {
		assert.Equal(t, bind_group_provider.BindingBonePalette, w.Binding)
		assert.NotEmpty(t, w.Data)
		require.NotNil(t, w.Provider)
		assert.Equal(t, uint64(len(w.Data)), w.Provider.BufferSize(w.Binding), "the palette fills its buffer")
		targets[w.Provider] = true
	}
	assert.Len(t, targets, len(writes), "no two writes land in the same buffer")

	for _, obj := range s.Objects() {
		for _, res := range obj.Results() {
			assert.Same(t, a.Model.SurfaceProvider(res.Surface), res.Provider, "surface resources are shared")
			assert.NotEmpty(t, res.Provider.VertexData())
		}
	}

	_, err = s.PrepareFrame()
	require.NoError(t, err)
	assert.Len(t, s.StagedWriteData(), 3*a.Model.SurfaceCount(), "writes do not pile up across frames")
}

func TestWithObjects(t *testing.T) {
	a := walker(t)
	s := NewScene("main", camera.NewCamera(),
		WithBackendType(animator.BackendTypeGPU),
		WithObjects(newWalker(a, 0), newWalker(a, 1)),
	)
	defer s.Release()

	require.Equal(t, 2, s.Count())
	for _, obj := range s.Objects() {
		assert.Equal(t, animator.BackendTypeGPU, obj.Animator().BackendType())
	}
}
