package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const epsilon = 1e-4

// absClose compares with an absolute tolerance. mgl32's ApproxEqualThreshold falls back to
// epsilon squared when a component is zero, which float32 rounding exceeds.
func absClose(a, b, tolerance float32) bool {
	return mgl32.Abs(a-b) < tolerance
}

func vecClose(a, b mgl32.Vec3) bool {
	for i := range a {
		if !absClose(a[i], b[i], epsilon) {
			return false
		}
	}
	return true
}

func matClose(a, b mgl32.Mat4, tolerance float32) bool {
	for i := range a {
		if !absClose(a[i], b[i], tolerance) {
			return false
		}
	}
	return true
}

func TestCornerRaysPointThroughFrustumCorners(t *testing.T) {
	cam := NewCamera(
		WithFovDegrees(90),
		WithAspect(1),
		WithController(NewCameraController(
			WithPosition(0, 0, 0),
			WithYaw(0),
			WithPitch(0),
		)),
	)

	inv := float32(1 / math.Sqrt(3))
	want := CornerRays{
		Ray00: mgl32.Vec3{-inv, -inv, -inv},
		Ray10: mgl32.Vec3{inv, -inv, -inv},
		Ray01: mgl32.Vec3{-inv, inv, -inv},
		Ray11: mgl32.Vec3{inv, inv, -inv},
	}

	got := cam.CornerRays()
	for name, pair := range map[string][2]mgl32.Vec3{
		"ray00": {got.Ray00, want.Ray00},
		"ray10": {got.Ray10, want.Ray10},
		"ray01": {got.Ray01, want.Ray01},
		"ray11": {got.Ray11, want.Ray11},
	} {
		if !vecClose(pair[0], pair[1]) {
			t.Errorf("%s = %v, want %v", name, pair[0], pair[1])
		}
	}
}

func TestCornerRaysAreUnitLength(t *testing.T) {
	cam := NewCamera(WithAspect(16.0 / 9.0))
	rays := cam.CornerRays()
	for _, r := range []mgl32.Vec3{rays.Ray00, rays.Ray10, rays.Ray01, rays.Ray11} {
		if l := r.Len(); math.Abs(float64(l-1)) > epsilon {
			t.Errorf("ray %v has length %f, want 1", r, l)
		}
	}
}

func TestUpdateTracksControllerPosition(t *testing.T) {
	cam := NewCamera()
	before := cam.CornerRays()

	cam.Controller().SetPosition(10, 2, -3)
	if vecClose(cam.Position(), mgl32.Vec3{10, 2, -3}) {
		t.Fatalf("camera position changed before Update")
	}

	cam.Update()
	if !vecClose(cam.Position(), mgl32.Vec3{10, 2, -3}) {
		t.Errorf("Position() = %v after Update, want (10, 2, -3)", cam.Position())
	}

	cam.Controller().Look(300, 0)
	cam.Update()
	if vecClose(cam.CornerRays().Ray00, before.Ray00) {
		t.Errorf("corner rays did not change after the controller turned")
	}
}

func TestViewProjectionComposition(t *testing.T) {
	cam := NewCamera(WithAspect(4.0 / 3.0))
	want := cam.ProjectionMatrix().Mul4(cam.ViewMatrix())
	if !matClose(cam.ViewProjectionMatrix(), want, epsilon) {
		t.Errorf("ViewProjectionMatrix() != Projection * View")
	}
	identity := cam.ViewProjectionMatrix().Mul4(cam.InverseViewProjectionMatrix())
	if !matClose(identity, mgl32.Ident4(), 1e-3) {
		t.Errorf("inverse view-projection does not invert: %v", identity)
	}
}

func TestControllerLookClampsPitch(t *testing.T) {
	cc := NewCameraController(WithMouseSensitivity(1))
	cc.Look(0, -10)
	if cc.Pitch() > maxPitch+epsilon {
		t.Errorf("pitch %f exceeds limit %f", cc.Pitch(), maxPitch)
	}
	cc.Look(0, 20)
	if cc.Pitch() < -maxPitch-epsilon {
		t.Errorf("pitch %f below limit %f", cc.Pitch(), -maxPitch)
	}
}

func TestControllerMovement(t *testing.T) {
	tests := []struct {
		name string
		move func(CameraController)
		want mgl32.Vec3
	}{
		{"forward", func(c CameraController) { c.PanForward(2) }, mgl32.Vec3{0, 0, -2}},
		{"right", func(c CameraController) { c.PanRight(1) }, mgl32.Vec3{1, 0, 0}},
		{"up", func(c CameraController) { c.PanUp(3) }, mgl32.Vec3{0, 3, 0}},
		{"zoom", func(c CameraController) { c.Zoom(4) }, mgl32.Vec3{0, 0, -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := NewCameraController(
				WithPosition(0, 0, 0),
				WithYaw(0),
				WithPitch(0),
				WithPanSpeed(1),
				WithZoomSpeed(0.5),
			)
			tt.move(cc)
			if !vecClose(cc.Position(), tt.want) {
				t.Errorf("Position() = %v, want %v", cc.Position(), tt.want)
			}
		})
	}
}

func TestControllerSetTargetFacesPoint(t *testing.T) {
	cc := NewCameraController(WithPosition(0, 0, 0))
	cc.SetTarget(5, 0, 0)
	dir := cc.Target().Sub(cc.Position())
	if !vecClose(dir, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("viewing direction = %v, want +X", dir)
	}
}

func TestVecCloseToleratesRoundingAtZero(t *testing.T) {
	if !vecClose(mgl32.Vec3{1, 0, 4.371139e-08}, mgl32.Vec3{1, 0, 0}) {
		t.Error("rounding noise on a zero component was rejected")
	}
	if !matClose(mgl32.Ident4().Add(mgl32.Mat4{0, -0.000002}), mgl32.Ident4(), 1e-3) {
		t.Error("rounding noise on a zero matrix entry was rejected")
	}
	if vecClose(mgl32.Vec3{1, 0, 0.01}, mgl32.Vec3{1, 0, 0}) {
		t.Error("a real difference was accepted")
	}
}
