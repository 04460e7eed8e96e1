package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUBoneMatrix is one entry of the per-draw bone palette uploaded for vertex-shader skinning.
// It is a column-major 4x4: columns 0..2 hold the columns of the bone matrix, column 3 holds the translation.
// Size: 64 bytes (std430 aligned, no padding required).
type GPUBoneMatrix [16]float32

// NewGPUBoneMatrix packs a solved bone into palette layout.
//
// Parameters:
//   - m: the bone orientation (rows)
//   - t: the bone translation
//
// Returns:
//   - GPUBoneMatrix: the packed matrix
func NewGPUBoneMatrix(m *common.Axis, t mgl32.Vec3) GPUBoneMatrix {
	return GPUBoneMatrix{
		m[0][0], m[1][0], m[2][0], 0,
		m[0][1], m[1][1], m[2][1], 0,
		m[0][2], m[1][2], m[2][2], 0,
		t[0], t[1], t[2], 1,
	}
}

// Size returns the size of the GPUBoneMatrix in bytes.
//
// Returns:
//   - int: the size of the matrix in bytes.
func (g *GPUBoneMatrix) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUBoneMatrix into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte little-endian buffer.
func (g *GPUBoneMatrix) Marshal() []byte {
	buf := make([]byte, 64)
	for i, v := range g {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

// Mat4 views the palette entry as an mgl32 matrix.
func (g *GPUBoneMatrix) Mat4() mgl32.Mat4 {
	return mgl32.Mat4(*g)
}
