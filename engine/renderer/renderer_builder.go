package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithMode sets the render mode active after construction.
//
// Parameters:
//   - mode: the initial RenderMode
//
// Returns:
//   - RendererBuilderOption: a function that applies the mode option to a renderer
func WithMode(mode RenderMode) RendererBuilderOption {
	return func(r *renderer) {
		r.mode = mode
	}
}

// WithStrategy replaces or adds the FrameStrategy run for a mode.
//
// Parameters:
//   - mode: the mode the strategy serves
//   - strategy: the strategy to run
//
// Returns:
//   - RendererBuilderOption: a function that applies the strategy option to a renderer
func WithStrategy(mode RenderMode, strategy FrameStrategy) RendererBuilderOption {
	return func(r *renderer) {
		if r.pendingStrategies == nil {
			r.pendingStrategies = make(map[RenderMode]FrameStrategy)
		}
		r.pendingStrategies[mode] = strategy
	}
}

// WithCamera sets the camera recomputed every frame. By default a camera with the surface
// aspect ratio is created.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - RendererBuilderOption: a function that applies the camera option to a renderer
func WithCamera(cam camera.Camera) RendererBuilderOption {
	return func(r *renderer) {
		r.camera = cam
	}
}

// WithClock sets the time source of the frame clock.
//
// Parameters:
//   - now: a function returning the current time
//
// Returns:
//   - RendererBuilderOption: a function that applies the clock option to a renderer
func WithClock(now func() time.Time) RendererBuilderOption {
	return func(r *renderer) {
		r.now = now
	}
}

// WithClearColor sets the color the frame is cleared to.
//
// Parameters:
//   - color: RGBA clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(color mgl32.Vec4) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = color
	}
}

// WithShaderDir loads program sources from <dir>/<language>/ instead of the embedded copies.
//
// Parameters:
//   - dir: the shader root directory, empty for the embedded sources
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader directory option to a renderer
func WithShaderDir(dir string) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderDir = dir
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for raster passes.
// Only the WebGPU backend honours it.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
