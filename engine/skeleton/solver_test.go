package skeleton

import (
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-3

const (
	quarterTurn = 16384
	eighthTurn  = 8192
)

func assertVec(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "component %d of %v", i, got)
	}
}

// testSkeleton builds a four bone rig: a root, a legs bone, a torso bone and a half torso arm.
// Frame 0 is the rest pose with every bone pointing along +X; frame 1 turns the root and the arm
// a quarter turn and lifts the root.
func testSkeleton(t *testing.T) *model.Skeleton {
	t.Helper()
	bones := []model.BoneInfo{
		{Name: "root", Parent: -1},
		{Name: "shin", Parent: 0, ParentDist: 10},
		{Name: "chest", Parent: 0, ParentDist: 5, TorsoWeight: 1},
		{Name: "arm", Parent: 2, ParentDist: 4, TorsoWeight: 0.5},
	}
	frames := []model.FrameHeader{
		{ParentOffset: mgl32.Vec3{0, 0, 20}},
		{ParentOffset: mgl32.Vec3{0, 0, 22}},
	}
	frameBones := make([]model.CompressedBone, len(frames)*len(bones))
	frameBones[4+0].Angles[yaw] = quarterTurn
	frameBones[4+3].Angles[yaw] = quarterTurn
	skel, err := model.NewSkeleton("rig", bones, 0, frames, frameBones)
	require.NoError(t, err)
	return skel
}

func restEntity(skel *model.Skeleton) *Entity {
	e := &Entity{TorsoAxis: common.IdentityAxis()}
	e.SetLegs(skel, 0, 0, 0)
	e.SetTorso(skel, 0, 0, 0)
	return e
}

func TestCalcBonesSolvesParentsFirst(t *testing.T) {
	skel := testSkeleton(t)
	var order []int32
	s := NewSolver(WithSolveObserver(func(b int32) { order = append(order, b) }))

	require.True(t, s.CalcBones(restEntity(skel), []int32{3}))
	assert.Equal(t, []int32{0, 2, 3}, order)
}

func TestCalcBonesRestPose(t *testing.T) {
	skel := testSkeleton(t)
	s := NewSolver()
	require.True(t, s.CalcBones(restEntity(skel), []int32{0, 1, 2, 3}))

	bones := s.Bones()
	require.Len(t, bones, 4)
	assertVec(t, mgl32.Vec3{0, 0, 20}, bones[0].Translation)
	assertVec(t, mgl32.Vec3{10, 0, 20}, bones[1].Translation)
	assertVec(t, mgl32.Vec3{5, 0, 20}, bones[2].Translation)
	assertVec(t, mgl32.Vec3{9, 0, 20}, bones[3].Translation)
	for _, b := range bones {
		for r := range b.Matrix {
			assertVec(t, common.IdentityAxis()[r], b.Matrix[r])
		}
	}
}

func TestCalcBonesReusesCachedBones(t *testing.T) {
	skel := testSkeleton(t)
	var order []int32
	s := NewSolver(WithSolveObserver(func(b int32) { order = append(order, b) }))
	e := restEntity(skel)

	require.True(t, s.CalcBones(e, []int32{3}))
	order = nil
	require.True(t, s.CalcBones(e, []int32{3, 1}))
	assert.Equal(t, []int32{1}, order, "only the bone missing from the generation is solved")

	order = nil
	require.True(t, s.CalcBones(e, []int32{0, 1, 2, 3}))
	assert.Empty(t, order)
}

func TestCalcBonesInvalidation(t *testing.T) {
	skel := testSkeleton(t)
	var solved int
	s := NewSolver(WithSolveObserver(func(int32) { solved++ }))
	e := restEntity(skel)
	all := []int32{0, 1, 2, 3}

	require.True(t, s.CalcBones(e, all))
	assert.Equal(t, 4, solved)

	e.Flags |= common.FlagDeadLod
	require.True(t, s.CalcBones(e, all))
	assert.Equal(t, 8, solved, "a changed flag starts a new generation")

	s.Invalidate()
	require.True(t, s.CalcBones(e, all))
	assert.Equal(t, 12, solved)

	e.BackLerp = 0.25
	require.True(t, s.CalcBones(e, all))
	assert.Equal(t, 16, solved, "a changed fraction starts a new generation even when frames match")
}

func TestStatsFlushOnNewGeneration(t *testing.T) {
	skel := testSkeleton(t)
	s := NewSolver()
	e := restEntity(skel)

	require.True(t, s.CalcBones(e, []int32{0}))
	s.RecordSurface(10, 20, 4, 8)
	s.RecordSurface(10, 20, 4, 8)
	assert.Equal(t, Stats{RenderedVerts: 20, TotalVerts: 40, RenderedTris: 8, TotalTris: 16}, s.Stats())
	assert.InDelta(t, 50, s.Stats().Ratio(), tol)

	require.True(t, s.CalcBones(e, []int32{1}))
	assert.Equal(t, 20, s.Stats().RenderedVerts, "same snapshot keeps the generation")

	e.Frame = 1
	require.True(t, s.CalcBones(e, []int32{1}))
	assert.Equal(t, Stats{}, s.Stats())
	assert.InDelta(t, 100, Stats{}.Ratio(), tol)
}

func TestCalcBonesAborts(t *testing.T) {
	skel := testSkeleton(t)

	var solved int
	s := NewSolver(WithSolveObserver(func(int32) { solved++ }))

	e := restEntity(skel)
	e.TorsoFrameModel = nil
	assert.False(t, s.CalcBones(e, []int32{0}))

	e = restEntity(skel)
	e.Frame = 2
	assert.False(t, s.CalcBones(e, []int32{0}))

	e = restEntity(skel)
	e.OldTorsoFrame = -1
	assert.False(t, s.CalcBones(e, []int32{0}))

	assert.False(t, s.CalcBones(nil, []int32{0}))
	assert.Zero(t, solved)

	small := NewSolver(WithMaxBones(2))
	assert.False(t, small.CalcBones(restEntity(skel), []int32{0}))
}

func TestCalcBonesSkipsOutOfRangeBones(t *testing.T) {
	skel := testSkeleton(t)
	var order []int32
	s := NewSolver(WithSolveObserver(func(b int32) { order = append(order, b) }))

	require.True(t, s.CalcBones(restEntity(skel), []int32{-1, 99, 1}))
	assert.Equal(t, []int32{0, 1}, order)

	_, ok := s.Bone(99)
	assert.False(t, ok)
	b, ok := s.Bone(1)
	require.True(t, ok)
	assertVec(t, mgl32.Vec3{10, 0, 20}, b.Translation)
}

func TestCalcBonesInterpolatesKeyframes(t *testing.T) {
	skel := testSkeleton(t)
	s := NewSolver()
	e := restEntity(skel)
	e.SetLegs(skel, 1, 0, 0.5)

	require.True(t, s.CalcBones(e, []int32{0}))
	root, _ := s.Bone(0)
	assertVec(t, mgl32.Vec3{0, 0, 21}, root.Translation)
	want := DefaultSinTable.InglesToAxis([3]int32{0, eighthTurn, 0})
	assertVec(t, want[0], root.Matrix[0])
	assert.InDelta(t, 0.7071, root.Matrix[0][0], tol)
}

func TestCalcBonesBlendsPartialTorsoBones(t *testing.T) {
	skel := testSkeleton(t)
	s := NewSolver()
	e := restEntity(skel)
	e.SetTorso(skel, 1, 1, 0)

	require.True(t, s.CalcBones(e, []int32{3}))
	arm, _ := s.Bone(3)
	assertVec(t, mgl32.Vec3{0.7071, 0.7071, 0}, arm.Matrix[0])
}

func TestTorsoCorrection(t *testing.T) {
	skel := testSkeleton(t)
	s := NewSolver()
	e := restEntity(skel)
	e.TorsoAxis = DefaultSinTable.InglesToAxis([3]int32{0, quarterTurn, 0})
	all := []int32{0, 1, 2, 3}

	for range 2 {
		require.True(t, s.CalcBones(e, all))
		bones := s.Bones()
		assertVec(t, mgl32.Vec3{0, 0, 20}, bones[0].Translation)
		assertVec(t, mgl32.Vec3{10, 0, 20}, bones[1].Translation)
		assertVec(t, mgl32.Vec3{0, 5, 20}, bones[2].Translation)
		assertVec(t, mgl32.Vec3{4.5, 4.5, 20}, bones[3].Translation)
	}
}

func TestTorsoCorrectionCoversAncestorsSolvedOnDemand(t *testing.T) {
	skel := testSkeleton(t)
	newEntity := func() *Entity {
		e := restEntity(skel)
		e.TorsoAxis = DefaultSinTable.InglesToAxis([3]int32{0, quarterTurn, 0})
		return e
	}

	s := NewSolver()
	e := newEntity()
	require.True(t, s.CalcBones(e, []int32{3}))
	chest, ok := s.Bone(2)
	require.True(t, ok)
	assertVec(t, mgl32.Vec3{0, 5, 20}, chest.Translation)

	require.True(t, s.CalcBones(e, []int32{0, 2}))
	fresh := NewSolver()
	require.True(t, fresh.CalcBones(newEntity(), []int32{0, 2}))

	got, _ := s.Bone(2)
	want, _ := fresh.Bone(2)
	assert.Equal(t, want, got, "the result does not depend on which bones were asked for first")
}

func TestCalcBonesRepeatsExactly(t *testing.T) {
	skel := testSkeleton(t)
	s := NewSolver()
	e := restEntity(skel)
	e.SetLegs(skel, 1, 0, 0.25)
	e.SetTorso(skel, 1, 0, 0.25)
	e.TorsoAxis = DefaultSinTable.InglesToAxis([3]int32{0, eighthTurn, 0})
	all := []int32{0, 1, 2, 3}

	require.True(t, s.CalcBones(e, all))
	first := slices.Clone(s.Bones())
	require.True(t, s.CalcBones(e, all))
	assert.Equal(t, first, s.Bones(), "an unchanged entity reproduces its pose bit for bit")
}

func TestInterpolateIngleTakesShortestPath(t *testing.T) {
	cur := int32(common.AngleToShort(179))
	old := int32(common.AngleToShort(-179))

	mid := InterpolateIngle(cur, old, 0.5)
	half := int32(common.AngleToShort(180))
	assert.LessOrEqual(t, abs32(Wrap16(mid-half)), int32(2), "midpoint of 179 and -179 is 180, not 0")

	assert.Equal(t, cur, InterpolateIngle(cur, old, 0))
	assert.LessOrEqual(t, abs32(Wrap16(InterpolateIngle(cur, old, 1)-old)), int32(1))
	assert.Equal(t, int32(-2), Wrap16(65534))
	assert.Equal(t, int32(100), Wrap16(100))
}

func TestBlendIngle(t *testing.T) {
	assert.Equal(t, int32(eighthTurn), BlendIngle(0, quarterTurn, 0.5))
	assert.Equal(t, int32(0), BlendIngle(0, quarterTurn, 0))
	assert.LessOrEqual(t, abs32(Wrap16(BlendIngle(int32(common.AngleToShort(170)), int32(common.AngleToShort(-170)), 0.5)-int32(common.AngleToShort(180)))), int32(2))
}

func TestInglesToAxis(t *testing.T) {
	a := DefaultSinTable.InglesToAxis([3]int32{0, quarterTurn, 0})
	assertVec(t, mgl32.Vec3{0, 1, 0}, a[0])
	assertVec(t, mgl32.Vec3{-1, 0, 0}, a[1])
	assertVec(t, mgl32.Vec3{0, 0, 1}, a[2])

	down := DefaultSinTable.ForwardFromOffset([2]int16{quarterTurn, 0})
	assertVec(t, mgl32.Vec3{0, 0, -1}, down)

	assert.Same(t, DefaultSinTable, SinTableFor(FuncTableShift))
	assert.Same(t, SinTableFor(6), SinTableFor(6))
	assert.Equal(t, uint(FuncTableShift), NewSinTable(15).Shift())
}

func TestBoneTag(t *testing.T) {
	skel := testSkeleton(t)
	tags := []model.Tag{
		{Name: "tag_hand", BoneIndex: 3, Offset: mgl32.Vec3{1, 0, 0}, Axis: common.IdentityAxis(), BoneReferences: []int32{0, 2, 3}},
		{Name: "tag_broken", BoneIndex: 9, Axis: common.IdentityAxis(), BoneReferences: []int32{0}},
		{Name: "tag_hand", BoneIndex: 1, Axis: common.IdentityAxis(), BoneReferences: []int32{0, 1}},
	}
	e := restEntity(skel)
	e.Model = model.NewModel(model.WithTags(tags...))
	s := NewSolver()

	or, idx := s.BoneTag(e, 0, "tag_hand")
	require.Equal(t, 0, idx)
	assertVec(t, mgl32.Vec3{10, 0, 20}, or.Origin)
	assertVec(t, mgl32.Vec3{1, 0, 0}, or.Axis[0])

	or, idx = s.BoneTag(e, 1, "tag_hand")
	require.Equal(t, 2, idx)
	assertVec(t, mgl32.Vec3{10, 0, 20}, or.Origin)

	_, idx = s.BoneTag(e, 0, "tag_missing")
	assert.Equal(t, -1, idx)
	_, idx = s.BoneTag(e, 0, "tag_broken")
	assert.Equal(t, -1, idx)
	_, idx = s.BoneTag(e, 4, "tag_hand")
	assert.Equal(t, -1, idx)

	e.Frame = 7
	or, idx = s.BoneTag(e, 0, "tag_hand")
	assert.Equal(t, -1, idx)
	assert.Equal(t, common.Orientation{}, or)
}

func TestBoneTagFollowsTorso(t *testing.T) {
	skel := testSkeleton(t)
	tags := []model.Tag{
		{Name: "tag_chest", BoneIndex: 2, Offset: mgl32.Vec3{2, 0, 0}, Axis: common.IdentityAxis(), BoneReferences: []int32{0, 2}},
	}
	e := restEntity(skel)
	e.Model = model.NewModel(model.WithTags(tags...))
	e.TorsoAxis = DefaultSinTable.InglesToAxis([3]int32{0, quarterTurn, 0})

	or, idx := NewSolver().BoneTag(e, 0, "tag_chest")
	require.Equal(t, 0, idx)
	assert.InDelta(t, 20, or.Origin[2], tol)
	assert.InDelta(t, 7, or.Origin.Sub(mgl32.Vec3{0, 0, 20}).Len(), tol)
}

func TestBoneTagOnRotatedRoot(t *testing.T) {
	skel := testSkeleton(t)
	tags := []model.Tag{
		{Name: "tag_origin", BoneIndex: 0, Axis: common.IdentityAxis(), BoneReferences: []int32{0}},
	}
	e := restEntity(skel)
	e.SetLegs(skel, 1, 1, 0)
	e.SetTorso(skel, 1, 1, 0)
	e.Model = model.NewModel(model.WithTags(tags...))
	s := NewSolver()

	or, idx := s.BoneTag(e, 0, "tag_origin")
	require.Equal(t, 0, idx)
	root, ok := s.Bone(0)
	require.True(t, ok)
	assertVec(t, mgl32.Vec3{0, 0, 22}, root.Translation)
	assertVec(t, root.Translation, or.Origin)

	for j := range or.Axis {
		column := mgl32.Vec3{root.Matrix[0][j], root.Matrix[1][j], root.Matrix[2][j]}
		assertVec(t, column, or.Axis[j])
	}
	assertVec(t, mgl32.Vec3{0, -1, 0}, or.Axis[0])
	assertVec(t, mgl32.Vec3{1, 0, 0}, or.Axis[1])
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
