package loader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/tess"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-3

func restEntity(a Asset, frame int32) *skeleton.Entity {
	e := &skeleton.Entity{Model: a.Model, TorsoAxis: common.IdentityAxis()}
	e.SetLegs(a.Skeleton, frame, frame, 0)
	e.SetTorso(a.Skeleton, frame, frame, 0)
	return e
}

func loadWalker(t *testing.T, r Recipe) Asset {
	t.Helper()
	l := NewLoader(BackendTypeProcedural)
	a, err := l.Load(r)
	require.NoError(t, err)
	return a
}

func TestLoadDefaults(t *testing.T) {
	a := loadWalker(t, Recipe{Name: "walker"})

	require.NotNil(t, a.Skeleton)
	assert.Equal(t, "walker", a.Model.Name())
	assert.Equal(t, len(humanoid), a.Skeleton.NumBones())
	assert.Equal(t, 16, a.Skeleton.NumFrames())
	assert.Equal(t, bonePelvis, a.Skeleton.TorsoParent())
	assert.Equal(t, float32(figureRadius), a.Model.BoundingRadius())

	require.Equal(t, 2, a.Model.SurfaceCount())
	upper, lower := a.Model.Surface(0), a.Model.Surface(1)
	assert.Equal(t, "upper", upper.Name)
	assert.Equal(t, 8*8*3, len(upper.Vertices))
	assert.Equal(t, 8*5*2*2, len(lower.Triangles))
	assert.Equal(t, 3*5*3, lower.MinLod)
	assert.Equal(t, []int32{bonePelvis, boneThighL, boneCalfL, boneThighR, boneCalfR}, lower.BoneReferences)
	assert.Contains(t, upper.BoneReferences, bonePelvis, "ancestors are referenced")

	var names []string
	for _, tag := range a.Model.Tags() {
		names = append(names, tag.Name)
	}
	assert.Equal(t, []string{"tag_head", "tag_weapon", "tag_foot_left", "tag_foot_right"}, names)
}

func TestLoadCaches(t *testing.T) {
	l := NewLoader(BackendTypeProcedural, WithSurfaceProviders(true))
	a, err := l.Load(Recipe{Name: "walker", Segments: 6})
	require.NoError(t, err)
	b, err := l.Load(Recipe{Name: "walker", Segments: 12})
	require.NoError(t, err)
	assert.Same(t, a.Skeleton, b.Skeleton, "recipes are cached by name")

	got, ok := l.Get("walker")
	require.True(t, ok)
	assert.Same(t, a.Skeleton, got.Skeleton)
	assert.Len(t, l.Assets(), 1)

	p := a.Model.SurfaceProvider(0)
	require.NotNil(t, p)
	assert.Equal(t, lod.MaxLods, p.LodLevels())
	assert.Len(t, p.VertexData(), len(a.Model.Surface(0).Vertices)*144, "preloaded providers carry the skin vertices")

	l.Release()
	assert.Empty(t, l.Assets())
	assert.Nil(t, a.Model.SurfaceProvider(0))

	pre := NewLoader(BackendTypeProcedural, WithAsset("walker", a))
	got, err = pre.Load(Recipe{Name: "walker"})
	require.NoError(t, err)
	assert.Same(t, a.Skeleton, got.Skeleton)
}

func TestRecipeValidation(t *testing.T) {
	l := NewLoader(BackendTypeProcedural)
	for _, r := range []Recipe{
		{},
		{Name: "flat", Segments: 2},
		{Name: "stub", Rings: 1},
		{Name: "still", Frames: -1},
		{Name: "mirror", Scale: -1},
	} {
		_, err := l.Load(r)
		assert.ErrorIs(t, err, ErrInvalidRecipe, "%+v", r)
	}
	assert.Empty(t, l.Assets())
}

func TestRecipeDefaults(t *testing.T) {
	r := Recipe{Name: "walker", Segments: 12, Swing: 10}.withDefaults()
	assert.Equal(t, 16, r.Frames)
	assert.Equal(t, 12, r.Segments, "set fields are kept")
	assert.Equal(t, 3, r.Rings)
	assert.Equal(t, float32(1), r.Scale)
	assert.Equal(t, float32(10), r.Swing)
}

func TestCollapseMapPointsBackwards(t *testing.T) {
	for _, r := range []Recipe{
		{Name: "default"},
		{Name: "odd", Segments: 7, Rings: 4},
		{Name: "coarse", Segments: 3, Rings: 2},
	} {
		a := loadWalker(t, r)
		for _, surf := range a.Model.Surfaces() {
			n := len(surf.Vertices)
			require.Len(t, surf.CollapseMap, n)
			assert.Equal(t, int32(0), surf.CollapseMap[0])
			for i := 1; i < n; i++ {
				assert.Less(t, surf.CollapseMap[i], int32(i), "%s %s vertex %d", r.Name, surf.Name, i)
				assert.GreaterOrEqual(t, surf.CollapseMap[i], int32(0))
			}
			for _, tri := range surf.Triangles {
				for _, v := range tri {
					assert.Less(t, int(v), n)
				}
			}
			assert.LessOrEqual(t, surf.MinLod, n)

			var red lod.Reducer
			atMin := red.Reduce(surf.Triangles, surf.CollapseMap, n, surf.MinLod, 0, nil)
			assert.NotEmpty(t, atMin, "%s %s keeps a closed shape at its minimum", r.Name, surf.Name)
		}
	}
}

func TestSegmentOrder(t *testing.T) {
	assert.Equal(t, []int{0, 4, 2, 6, 1, 3, 5, 7}, segmentOrder(8))
	assert.Equal(t, []int{0, 3, 1, 2, 4, 5}, segmentOrder(6))
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6}, segmentOrder(7))
}

func TestSkinVertexRoundTrip(t *testing.T) {
	a := loadWalker(t, Recipe{Name: "walker"})
	rest, err := restPose(a.Skeleton)
	require.NoError(t, err)

	pos := mgl32.Vec3{3, -2, 44}
	normal := mgl32.Vec3{0, 1, 0}
	for _, joint := range []bool{false, true} {
		v := skinVertex(boneForearmR, joint, pos, normal, mgl32.Vec3{0, 0, -1}, rest)
		out := tess.New(1, 0)
		animator.SkinVertices(animator.DefaultKernel, rest, []model.Vertex{v}, out, 0)
		for i := range pos {
			assert.InDelta(t, pos[i], out.XYZ[0][i], tol)
			if !joint {
				assert.InDelta(t, normal[i], out.Normals[0][i], tol)
			}
		}
	}
}

func TestRestPoseSkinsInsideBounds(t *testing.T) {
	a := loadWalker(t, Recipe{Name: "walker", Rings: 4})
	e := restEntity(a, 0)
	s := skeleton.NewSolver()
	frame, _, ok := a.Skeleton.Frame(0)
	require.True(t, ok)

	for _, surf := range a.Model.Surfaces() {
		require.True(t, s.CalcBones(e, surf.BoneReferences))
		bones := s.Bones()
		out := tess.New(len(surf.Vertices), 0)
		animator.SkinVertices(animator.DefaultKernel, bones, surf.Vertices, out, 0)

		for i, v := range surf.Vertices {
			p := out.XYZ[i].Vec3()
			assert.LessOrEqual(t, p.Sub(frame.LocalOrigin).Len(), frame.Radius, "%s vertex %d", surf.Name, i)

			// every influence of a joint vertex agrees on where it sits
			for _, w := range v.Weights {
				b := &bones[w.BoneIndex]
				q := b.Matrix.Transform(w.Offset).Add(b.Translation)
				assert.InDelta(t, 0, q.Sub(p).Len(), tol, "%s vertex %d bone %d", surf.Name, i, w.BoneIndex)
			}
		}
	}
}

func TestTagsAtRest(t *testing.T) {
	a := loadWalker(t, Recipe{Name: "walker"})
	e := restEntity(a, 0)
	s := skeleton.NewSolver()

	head, idx := s.BoneTag(e, 0, "tag_head")
	require.GreaterOrEqual(t, idx, 0)
	ident := common.IdentityAxis()
	for j := range head.Axis {
		for k := range head.Axis[j] {
			assert.InDelta(t, ident[j][k], head.Axis[j][k], tol)
		}
	}
	assert.Greater(t, head.Origin[2], float32(hipHeight))

	foot, idx := s.BoneTag(e, 0, "tag_foot_left")
	require.GreaterOrEqual(t, idx, 0)
	assert.Less(t, foot.Origin[2], float32(hipHeight)/2)
	assert.Greater(t, foot.Origin[1], float32(0), "left is +Y")

	e.TorsoAxis = skeleton.DefaultSinTable.InglesToAxis([3]int32{0, 16384, 0})
	turned, idx := s.BoneTag(e, 0, "tag_weapon")
	require.GreaterOrEqual(t, idx, 0)
	still, _ := s.BoneTag(e, 0, "tag_foot_right")
	e.TorsoAxis = common.IdentityAxis()
	rest, _ := s.BoneTag(e, 0, "tag_weapon")
	restFoot, _ := s.BoneTag(e, 0, "tag_foot_right")
	assert.Greater(t, turned.Origin.Sub(rest.Origin).Len(), float32(1), "the torso turn moves the hand")
	assert.InDelta(t, 0, still.Origin.Sub(restFoot.Origin).Len(), tol, "legs ignore the torso axis")
}

func TestWalkCycleKeepsJointsConnected(t *testing.T) {
	a := loadWalker(t, Recipe{Name: "walker", Frames: 8})
	s := skeleton.NewSolver()
	upper := a.Model.Surface(0)
	for f := range int32(8) {
		e := restEntity(a, f)
		require.True(t, s.CalcBones(e, upper.BoneReferences))
		bones := s.Bones()
		root := bones[bonePelvis].Translation
		assert.InDelta(t, hipHeight, root[2], bobHeight+tol, "frame %d", f)

		// the chest sits at the end of the spine's tube
		spine := bones[boneSpine]
		_, _, length := restTube(boneSpine)
		assert.InDelta(t, length, bones[boneChest].Translation.Sub(spine.Translation).Len(), 0.05, "frame %d", f)
	}
}
