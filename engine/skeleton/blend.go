package skeleton

import (
	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/go-gl/mathgl/mgl32"
)

// applyTorsoCorrection rotates every torso bone solved in this pass around the torso pivot by the
// entity's torso axis, attenuated by the bone's torso weight. Ancestors solved on demand are corrected
// along with the requested bones. Bones reused from the cache take last pass's corrected value instead,
// so the correction is never applied twice.
func (s *solver) applyTorsoCorrection(e *Entity) {
	info := s.pass.info
	torsoAxis := e.TorsoAxis.Transpose()
	pivot := s.torsoParentOffset

	var weight float32
	var pivotMat mgl32.Mat4
	for b := range s.numBones {
		w := info[b].TorsoWeight
		if w <= 0 {
			continue
		}
		if !s.fresh[b] {
			s.bones[b] = s.old[b]
			continue
		}

		bone := &s.bones[b]
		local := axisPlusTranslation(&bone.Matrix, bone.Translation.Sub(pivot))
		if w != weight {
			weight = w
			pivotMat = scaledAxisPlusTranslation(&torsoAxis, weight, pivot)
		}

		m := pivotMat.Mul4(local)
		bone.Matrix = common.Axis{m.Row(0).Vec3(), m.Row(1).Vec3(), m.Row(2).Vec3()}
		bone.Translation = mgl32.Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)}
	}
}

// axisPlusTranslation builds [a | t] with the axis rows as matrix rows.
func axisPlusTranslation(a *common.Axis, t mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Mat4FromRows(
		a[0].Vec4(t[0]),
		a[1].Vec4(t[1]),
		a[2].Vec4(t[2]),
		mgl32.Vec4{0, 0, 0, 1},
	)
}

// scaledAxisPlusTranslation builds [w*a + (1-w)*I | t].
func scaledAxisPlusTranslation(a *common.Axis, w float32, t mgl32.Vec3) mgl32.Mat4 {
	rest := 1 - w
	r0 := a[0].Mul(w)
	r1 := a[1].Mul(w)
	r2 := a[2].Mul(w)
	r0[0] += rest
	r1[1] += rest
	r2[2] += rest
	return mgl32.Mat4FromRows(
		r0.Vec4(t[0]),
		r1.Vec4(t[1]),
		r2.Vec4(t[2]),
		mgl32.Vec4{0, 0, 0, 1},
	)
}
