package common

import (
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Perspective creates a perspective projection matrix.
// The matrix is column-major, maps view-space -Z forward, and targets the WebGPU clip space [0, 1].
// Clip-space w of a view-space point equals its distance in front of the eye.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / math32.Tan(fovY/2.0)

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// LookAt creates a view matrix that positions and orients the camera.
// The resulting matrix transforms world coordinates to view/camera space.
//
// Parameters:
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector defining camera orientation
//
// Returns:
//   - mgl32.Mat4: the column-major view matrix
func LookAt(eye, center, up mgl32.Vec3) mgl32.Mat4 {
	z := eye.Sub(center)
	if z.Len() == 0 {
		z = mgl32.Vec3{0, 0, 1}
	}
	z = z.Normalize()

	x := up.Cross(z)
	if x.Len() != 0 {
		x = x.Normalize()
	}
	y := z.Cross(x)

	return mgl32.Mat4{
		x[0], y[0], z[0], 0,
		x[1], y[1], z[1], 0,
		x[2], y[2], z[2], 0,
		-x.Dot(eye), -y.Dot(eye), -z.Dot(eye), 1,
	}
}

// ShortToAngle converts a 16-bit packed angle to degrees in [0, 360).
func ShortToAngle(s int16) float32 {
	return float32(uint16(s)) * (360.0 / 65536.0)
}

// AngleToShort converts degrees to a 16-bit packed angle, wrapping out-of-range input.
func AngleToShort(a float32) int16 {
	return int16(uint16(int32(a*(65536.0/360.0)) & 0xffff))
}

// AngleNormalize360 wraps an angle in degrees into [0, 360).
func AngleNormalize360(a float32) float32 {
	a = math32.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// AngleNormalize180 wraps an angle in degrees into (-180, 180].
func AngleNormalize180(a float32) float32 {
	a = AngleNormalize360(a)
	if a > 180 {
		a -= 360
	}
	return a
}

// Clamp restricts v to the closed range [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
