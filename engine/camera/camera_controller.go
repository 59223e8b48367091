package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController defines the union interface for camera control systems.
// Controllers own positional state (position and viewing direction). Camera reads from the
// controller and computes view/projection matrices and corner rays. Embeds both
// lookCameraController and planarCameraController so mouse look and keyboard movement can
// drive a single controller instance.
type CameraController interface {
	lookCameraController
	planarCameraController

	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space camera position
	Position() mgl32.Vec3

	// Target returns a point one unit in front of the camera along its viewing direction.
	//
	// Returns:
	//   - mgl32.Vec3: world-space look-at point
	Target() mgl32.Vec3

	// SetPosition moves the camera without changing its viewing direction.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetPosition(x, y, z float32)

	// SetTarget turns the camera to face the given point. Yaw and pitch are derived from the
	// direction between the current position and the point.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetTarget(x, y, z float32)

	// Zoom dollies the camera along its viewing direction.
	// Positive delta moves forward.
	//
	// Parameters:
	//   - delta: zoom amount scaled by ZoomSpeed
	Zoom(delta float32)
}

// lookCameraController defines first-person look methods driven by yaw and pitch angles.
// Yaw 0 and pitch 0 look down the -Z axis.
type lookCameraController interface {
	// Look rotates the viewing direction by a mouse delta scaled by MouseSensitivity.
	// Pitch is clamped short of straight up and straight down.
	//
	// Parameters:
	//   - dx: horizontal mouse delta, positive turns right
	//   - dy: vertical mouse delta, positive turns down
	Look(dx, dy float32)

	// Yaw returns the horizontal angle around the Y axis.
	//
	// Returns:
	//   - float32: yaw in radians
	Yaw() float32

	// SetYaw sets the horizontal angle around the Y axis.
	//
	// Parameters:
	//   - yaw: yaw in radians
	SetYaw(yaw float32)

	// Pitch returns the vertical angle from the horizontal plane.
	//
	// Returns:
	//   - float32: pitch in radians
	Pitch() float32

	// SetPitch sets the vertical angle from the horizontal plane, clamped to the pitch limit.
	//
	// Parameters:
	//   - pitch: pitch in radians
	SetPitch(pitch float32)

	// MouseSensitivity returns the radians turned per unit of mouse movement.
	//
	// Returns:
	//   - float32: the mouse sensitivity
	MouseSensitivity() float32

	// ZoomSpeed returns the zoom multiplier.
	//
	// Returns:
	//   - float32: the zoom speed
	ZoomSpeed() float32
}

// planarCameraController defines movement along the camera's local axes.
type planarCameraController interface {
	// PanRight moves the camera along its right vector.
	// Positive delta moves right, negative moves left.
	//
	// Parameters:
	//   - delta: movement amount scaled by PanSpeed
	PanRight(delta float32)

	// PanUp moves the camera along the world up axis.
	// Positive delta moves up.
	//
	// Parameters:
	//   - delta: movement amount scaled by PanSpeed
	PanUp(delta float32)

	// PanForward moves the camera along its viewing direction.
	// Positive delta moves forward.
	//
	// Parameters:
	//   - delta: movement amount scaled by PanSpeed
	PanForward(delta float32)

	// PanSpeed returns the movement multiplier.
	//
	// Returns:
	//   - float32: the pan speed
	PanSpeed() float32
}
