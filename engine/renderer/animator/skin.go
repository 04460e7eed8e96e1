package animator

import (
	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/tess"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Kernel is the 3x3 transform at the heart of the skinning loop.
// Implementations must be interchangeable: for the same inputs they return the same vector
// up to float rounding.
type Kernel interface {
	// Transform3x3 applies an orientation to a vector.
	//
	// Parameters:
	//   - in: the vector
	//   - m: the orientation, as rows
	//
	// Returns:
	//   - mgl32.Vec3: the transformed vector
	Transform3x3(in mgl32.Vec3, m *common.Axis) mgl32.Vec3
}

// ScalarKernel writes the three dot products out by hand.
type ScalarKernel struct{}

func (ScalarKernel) Transform3x3(in mgl32.Vec3, m *common.Axis) mgl32.Vec3 {
	return mgl32.Vec3{
		in[0]*m[0][0] + in[1]*m[0][1] + in[2]*m[0][2],
		in[0]*m[1][0] + in[1]*m[1][1] + in[2]*m[1][2],
		in[0]*m[2][0] + in[1]*m[2][1] + in[2]*m[2][2],
	}
}

// MatKernel goes through mgl32.Mat3, leaving the arithmetic to the math library.
type MatKernel struct{}

func (MatKernel) Transform3x3(in mgl32.Vec3, m *common.Axis) mgl32.Vec3 {
	return mgl32.Mat3FromRows(m[0], m[1], m[2]).Mul3x1(in)
}

// DefaultKernel is the kernel used when none is configured.
var DefaultKernel Kernel = ScalarKernel{}

// SkinVertices deforms vertices by the solved bones and writes them to t starting at baseVertex.
// Positions start at the origin with w = 1; normals, tangents and binormals start at zero.
// Every weight adds its share of the rigidly transformed offset and vectors. The weight sum is
// not renormalized. Weights that name a bone outside bones are skipped.
//
// Parameters:
//   - k: the transform kernel
//   - bones: the solved bones, indexed by bone number
//   - verts: the vertices to skin, in output order
//   - t: the output buffers; t must hold baseVertex+len(verts) vertices
//   - baseVertex: the first output slot
func SkinVertices(k Kernel, bones []skeleton.Bone, verts []model.Vertex, t *tess.Tess, baseVertex int) {
	xyz := t.XYZ[baseVertex : baseVertex+len(verts)]
	normals := t.Normals[baseVertex : baseVertex+len(verts)]
	tangents := t.Tangents[baseVertex : baseVertex+len(verts)]
	binormals := t.Binormals[baseVertex : baseVertex+len(verts)]
	texCoords := t.TexCoords[baseVertex : baseVertex+len(verts)]

	for i := range verts {
		v := &verts[i]
		var pos, n, tan, bin mgl32.Vec3
		for _, w := range v.Weights {
			if w.BoneIndex < 0 || int(w.BoneIndex) >= len(bones) {
				continue
			}
			bone := &bones[w.BoneIndex]
			pos = pos.Add(k.Transform3x3(w.Offset, &bone.Matrix).Add(bone.Translation).Mul(w.BoneWeight))
			n = n.Add(k.Transform3x3(v.Normal, &bone.Matrix).Mul(w.BoneWeight))
			tan = tan.Add(k.Transform3x3(v.Tangent, &bone.Matrix).Mul(w.BoneWeight))
			bin = bin.Add(k.Transform3x3(v.Binormal, &bone.Matrix).Mul(w.BoneWeight))
		}
		xyz[i] = pos.Vec4(1)
		normals[i] = n.Vec4(0)
		tangents[i] = tan.Vec4(0)
		binormals[i] = bin.Vec4(0)
		texCoords[i] = v.TexCoords
	}
}
