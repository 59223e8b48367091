package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// maxPitch keeps the viewing direction away from the poles where LookAt degenerates.
const maxPitch = float32(math.Pi/2 - 0.01)

// cameraControllerImpl is the single implementation of CameraController.
// The viewing direction is stored as yaw and pitch; the target is derived from it.
type cameraControllerImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3

	yaw   float32
	pitch float32

	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new first-person camera controller with sensible defaults.
// The default camera sits at (0, 1, 5) and faces the origin.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:       &sync.Mutex{},
		position: mgl32.Vec3{0, 1, 5},

		mouseSensitivity: 0.002,
		zoomSpeed:        0.5,
		panSpeed:         1.0,
	}
	cc.lookAt(mgl32.Vec3{0, 0, 0})

	for _, option := range options {
		option(cc)
	}
	return cc
}

// --- internal helpers ---

// forward returns the unit viewing direction for the current yaw and pitch.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) forward() mgl32.Vec3 {
	cosPitch := float32(math.Cos(float64(cc.pitch)))
	return mgl32.Vec3{
		float32(math.Sin(float64(cc.yaw))) * cosPitch,
		float32(math.Sin(float64(cc.pitch))),
		-float32(math.Cos(float64(cc.yaw))) * cosPitch,
	}
}

// right returns the horizontal unit vector to the right of the viewing direction.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) right() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(cc.yaw))),
		0,
		float32(math.Sin(float64(cc.yaw))),
	}
}

// lookAt derives yaw and pitch from the direction towards target.
// A target equal to the position leaves the angles unchanged.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) lookAt(target mgl32.Vec3) {
	dir := target.Sub(cc.position)
	if dir.Len() < 1e-8 {
		return
	}
	dir = dir.Normalize()
	cc.yaw = float32(math.Atan2(float64(dir[0]), float64(-dir[2])))
	cc.pitch = mgl32.Clamp(float32(math.Asin(float64(dir[1]))), -maxPitch, maxPitch)
}

// --- CameraController shared methods ---

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position.Add(cc.forward())
}

func (cc *cameraControllerImpl) SetPosition(x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.position = mgl32.Vec3{x, y, z}
}

func (cc *cameraControllerImpl) SetTarget(x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.lookAt(mgl32.Vec3{x, y, z})
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.position = cc.position.Add(cc.forward().Mul(delta * cc.zoomSpeed))
}

// --- lookCameraController implementation ---

func (cc *cameraControllerImpl) Look(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.yaw += dx * cc.mouseSensitivity
	cc.pitch = mgl32.Clamp(cc.pitch-dy*cc.mouseSensitivity, -maxPitch, maxPitch)
}

func (cc *cameraControllerImpl) Yaw() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.yaw
}

func (cc *cameraControllerImpl) SetYaw(yaw float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.yaw = yaw
}

func (cc *cameraControllerImpl) Pitch() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pitch
}

func (cc *cameraControllerImpl) SetPitch(pitch float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pitch = mgl32.Clamp(pitch, -maxPitch, maxPitch)
}

func (cc *cameraControllerImpl) MouseSensitivity() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mouseSensitivity
}

func (cc *cameraControllerImpl) ZoomSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.zoomSpeed
}

// --- planarCameraController implementation ---

func (cc *cameraControllerImpl) PanRight(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.position = cc.position.Add(cc.right().Mul(delta * cc.panSpeed))
}

func (cc *cameraControllerImpl) PanUp(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.position[1] += delta * cc.panSpeed
}

func (cc *cameraControllerImpl) PanForward(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.position = cc.position.Add(cc.forward().Mul(delta * cc.panSpeed))
}

func (cc *cameraControllerImpl) PanSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.panSpeed
}
