package animator

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/bind_group_provider"
)

// MaxGPUWeights is the number of bone influences a vertex carries on the GPU path.
const MaxGPUWeights = 4

// GPUSkinVertex is the GPU-aligned static vertex of the vertex-shader skinning path.
// Each influence stores its bone-local offset in xyz and its weight in w; bone indexes refer
// to the surface's compact palette, not to skeleton bone numbers.
// Size: 144 bytes (std430 aligned).
type GPUSkinVertex struct {
	Offsets     [MaxGPUWeights][4]float32 // offset 0, size 64
	BoneIndexes [MaxGPUWeights]uint32     // offset 64, size 16
	Normal      [4]float32                // offset 80
	Tangent     [4]float32                // offset 96
	Binormal    [4]float32                // offset 112
	TexCoords   [2]float32                // offset 128
	_pad        [2]float32                // offset 136
}

// Size returns the size of the GPUSkinVertex struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUSkinVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSkinVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 144-byte buffer ready for GPU upload.
func (g *GPUSkinVertex) Marshal() []byte {
	buf := make([]byte, 144)
	off := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	for _, o := range g.Offsets {
		for _, v := range o {
			put(v)
		}
	}
	for _, b := range g.BoneIndexes {
		binary.LittleEndian.PutUint32(buf[off:off+4], b)
		off += 4
	}
	for _, vec := range [][4]float32{g.Normal, g.Tangent, g.Binormal} {
		for _, v := range vec {
			put(v)
		}
	}
	put(g.TexCoords[0])
	put(g.TexCoords[1])
	return buf
}

// BoneRemap is the compact palette of one surface: only the bones its vertices reference,
// in first-use order.
type BoneRemap struct {
	// Inverse maps a palette slot to its skeleton bone number.
	Inverse []int32
	// Slot maps a referenced skeleton bone number to its palette slot.
	Slot map[int32]uint32
}

// NewBoneRemap builds the compact palette of a surface from its vertex weights.
// Only the first MaxGPUWeights weights of a vertex are considered.
//
// Parameters:
//   - s: the surface
//
// Returns:
//   - BoneRemap: the palette mapping
func NewBoneRemap(s *model.Surface) BoneRemap {
	r := BoneRemap{Slot: make(map[int32]uint32)}
	for i := range s.Vertices {
		weights := s.Vertices[i].Weights
		for k := range min(len(weights), MaxGPUWeights) {
			b := weights[k].BoneIndex
			if _, ok := r.Slot[b]; ok {
				continue
			}
			r.Slot[b] = uint32(len(r.Inverse))
			r.Inverse = append(r.Inverse, b)
		}
	}
	return r
}

// NewGPUSkinVertices converts a surface's vertices to the GPU layout using the palette slots of r.
// Weights past MaxGPUWeights are dropped.
//
// Parameters:
//   - s: the surface
//   - r: the surface's bone remap
//
// Returns:
//   - []GPUSkinVertex: one entry per surface vertex
func NewGPUSkinVertices(s *model.Surface, r BoneRemap) []GPUSkinVertex {
	out := make([]GPUSkinVertex, len(s.Vertices))
	for i := range s.Vertices {
		v := &s.Vertices[i]
		g := &out[i]
		for k := range min(len(v.Weights), MaxGPUWeights) {
			w := v.Weights[k]
			g.Offsets[k] = [4]float32{w.Offset[0], w.Offset[1], w.Offset[2], w.BoneWeight}
			g.BoneIndexes[k] = r.Slot[w.BoneIndex]
		}
		g.Normal = [4]float32{v.Normal[0], v.Normal[1], v.Normal[2], 0}
		g.Tangent = [4]float32{v.Tangent[0], v.Tangent[1], v.Tangent[2], 0}
		g.Binormal = [4]float32{v.Binormal[0], v.Binormal[1], v.Binormal[2], 0}
		g.TexCoords = [2]float32{v.TexCoords[0], v.TexCoords[1]}
	}
	return out
}

// MarshalGPUSkinVertices packs vertices back to back in their upload layout.
//
// Parameters:
//   - verts: the vertices
//
// Returns:
//   - []byte: len(verts) * 144 bytes
func MarshalGPUSkinVertices(verts []GPUSkinVertex) []byte {
	buf := make([]byte, 0, len(verts)*int(unsafe.Sizeof(GPUSkinVertex{})))
	for i := range verts {
		buf = append(buf, verts[i].Marshal()...)
	}
	return buf
}

// NewSurfaceProvider creates the static GPU resources of a surface, shared by every entity that draws it:
// the skin vertices indexed by the surface's compact palette and one index list per detail level.
//
// Parameters:
//   - label: a debug label for the provider
//   - s: the surface
//
// Returns:
//   - bind_group_provider.BindGroupProvider: the surface provider
func NewSurfaceProvider(label string, s *model.Surface) bind_group_provider.BindGroupProvider {
	verts := NewGPUSkinVertices(s, NewBoneRemap(s))
	return bind_group_provider.NewBindGroupProvider(label,
		bind_group_provider.WithVertexData(MarshalGPUSkinVertices(verts)),
		bind_group_provider.WithLodIndices(lod.BuildIndexBuffers(s)),
	)
}
