package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController defines the interface for orbit camera control.
// Controllers own positional state (position, target). Camera reads from the controller
// and computes view/projection matrices. The position is kept on a sphere around the target
// described by radius, azimuth and elevation.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space camera position
	Position() mgl32.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - mgl32.Vec3: world-space target position
	Target() mgl32.Vec3

	// SetTarget sets the look-at/pivot point and recomputes position from spherical coordinates.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target mgl32.Vec3)

	// Zoom adjusts the camera's distance by modifying orbit radius.
	// Positive delta zooms in (closer to target).
	//
	// Parameters:
	//   - delta: zoom amount scaled by ZoomSpeed
	Zoom(delta float32)

	// Orbit rotates the camera around the target. Elevation is clamped to its bounds.
	//
	// Parameters:
	//   - dAzimuth: horizontal rotation in radians
	//   - dElevation: vertical rotation in radians
	Orbit(dAzimuth, dElevation float32)

	// Radius returns the current orbit radius (distance from target).
	//
	// Returns:
	//   - float32: the radius
	Radius() float32

	// SetRadius sets the orbit radius, clamped to the radius bounds.
	//
	// Parameters:
	//   - radius: the new radius
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around the Y axis in radians.
	//
	// Returns:
	//   - float32: the azimuth
	Azimuth() float32

	// Elevation returns the vertical angle from the horizontal plane in radians.
	//
	// Returns:
	//   - float32: the elevation
	Elevation() float32
}
