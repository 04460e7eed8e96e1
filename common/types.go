// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "github.com/go-gl/mathgl/mgl32"

// RenderFlags are per-entity render switches consumed by the LOD selector and the skeleton cache key.
type RenderFlags uint32

const (
	// FlagForceLod halves the computed detail factor regardless of distance.
	FlagForceLod RenderFlags = 1 << iota
	// FlagDeadLod marks a dead character; it lowers detail and, when enabled in config, allows rendering below the surface minimum.
	FlagDeadLod
)

// Has reports whether every bit in f is set.
func (r RenderFlags) Has(f RenderFlags) bool {
	return r&f == f
}

// Axis is a 3x3 orientation stored as three row vectors.
// Transforming a vector by an Axis yields out[i] = dot(in, Axis[i]).
type Axis [3]mgl32.Vec3

// IdentityAxis returns the identity orientation.
func IdentityAxis() Axis {
	return Axis{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Transform applies the axis to v, projecting v onto each row.
//
// Parameters:
//   - v: the vector to transform
//
// Returns:
//   - mgl32.Vec3: the transformed vector
func (a *Axis) Transform(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		v[0]*a[0][0] + v[1]*a[0][1] + v[2]*a[0][2],
		v[0]*a[1][0] + v[1]*a[1][1] + v[2]*a[1][2],
		v[0]*a[2][0] + v[1]*a[2][1] + v[2]*a[2][2],
	}
}

// Transpose returns the axis with rows and columns swapped.
func (a Axis) Transpose() Axis {
	return Axis{
		{a[0][0], a[1][0], a[2][0]},
		{a[0][1], a[1][1], a[2][1]},
		{a[0][2], a[1][2], a[2][2]},
	}
}

// Column returns column j of the axis.
func (a *Axis) Column(j int) mgl32.Vec3 {
	return mgl32.Vec3{a[0][j], a[1][j], a[2][j]}
}

// Orientation is a world-space origin with three axis vectors, the result of a tag query.
type Orientation struct {
	Origin mgl32.Vec3
	Axis   Axis
}
