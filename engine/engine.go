package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/profiler"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/Carmen-Shannon/oxy-trace/log"
)

var logger = log.New("engine")

const (
	// defaultMoveSpeed is the camera speed in world units per second.
	defaultMoveSpeed = 3

	// maxFrameErrors is the number of consecutive failed frames after which Run gives up.
	maxFrameErrors = 30
)

// engine implements the Engine interface.
// Every callback runs on the goroutine that called Run, which must be the thread the
// window was created on.
type engine struct {
	window   window.Window
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickCallback     func(deltaTime float32)
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	controls  bool
	moveSpeed float32
	pressed   map[uint32]bool
	mouseX    int32
	mouseY    int32
	mouseSeen bool

	frameErrors int
	quitting    bool
	err         error
}

// Engine is the main entry point for the viewer.
// It owns the single-threaded frame loop that ties the window, the renderer and the camera together.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer driven by the loop.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickCallback registers the function called each frame before rendering.
	// Use this for animation and other per-frame updates.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the frame loop and blocks until the window closes or Quit is called.
	//
	// Returns:
	//   - error: the error that stopped the loop, or nil on a normal close
	Run() error

	// Quit stops the loop after the current frame. Safe to call multiple times.
	Quit()
}

// NewEngine creates a new Engine from a window and a renderer and installs the input and
// resize handlers.
//
// Parameters:
//   - options: functional options; WithWindow and WithRenderer are required
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the window or renderer is missing
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		profiler:  profiler.NewProfiler(),
		controls:  true,
		moveSpeed: defaultMoveSpeed,
		pressed:   make(map[uint32]bool),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		return nil, errors.New("engine: a window is required")
	}
	if e.renderer == nil {
		return nil, errors.New("engine: a renderer is required")
	}

	e.window.SetResizeCallback(e.resize)
	if e.controls {
		e.window.SetKeyDownCallback(e.keyDown)
		e.window.SetKeyUpCallback(e.keyUp)
		e.window.SetMouseMoveCallback(e.mouseMove)
		e.window.SetScrollCallback(func(delta float32) {
			e.renderer.Camera().Controller().Zoom(delta)
		})
	}
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() error {
	if e.controls {
		e.window.SetRelativeMouseMode(true)
		e.window.ShowCursor(false)
	}
	logger.Noticef("running %s renderer in %s mode", e.renderer.BackendType(), e.renderer.Mode())

	e.window.SetUpdateCallback(e.frame)
	e.window.ProcessMessages()
	e.window.SetUpdateCallback(nil)

	if e.profilingEnabled {
		logger.Noticef("frame statistics\n%s", e.profiler.Summary())
	}
	return e.err
}

// Quit stops the loop after the current frame.
func (e *engine) Quit() {
	if e.quitting {
		return
	}
	e.quitting = true
	e.window.RequestClose()
}

// frame runs one iteration of the loop: clock, input, tick callback, render, profiler.
// A panic stops the loop and is returned from Run instead of crashing the process.
func (e *engine) frame() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("frame loop recovered from panic: %v", r)
			e.stop(fmt.Errorf("engine: frame loop panic: %v", r))
		}
	}()
	if e.quitting {
		return
	}

	start := time.Now()
	dt := float32(e.renderer.UpdateDeltaTime().Seconds())
	e.applyMovement(dt)

	if e.tickCallback != nil {
		e.tickCallback(dt)
	}

	if err := e.renderer.RenderFrame(); err != nil {
		e.frameErrors++
		logger.Warningf("frame failed: %v", err)
		if e.frameErrors >= maxFrameErrors {
			e.stop(fmt.Errorf("engine: %d consecutive frames failed: %w", e.frameErrors, err))
			return
		}
	} else {
		e.frameErrors = 0
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// stop records the first fatal error and quits.
func (e *engine) stop(err error) {
	if e.err == nil {
		e.err = err
	}
	e.Quit()
}

// resize follows the window's framebuffer size. A minimized window reports 0x0 and is ignored.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if err := e.renderer.Resize(width, height); err != nil {
		logger.Errorf("resize to %dx%d: %v", width, height, err)
		return
	}
	e.renderer.Camera().SetAspect(float32(width) / float32(height))
}

// keyDown tracks held keys and toggles the render mode. Auto-repeat is reported as key down
// as well, so a key that is already held does not toggle again.
func (e *engine) keyDown(key uint32) {
	if e.pressed[key] {
		return
	}
	e.pressed[key] = true

	switch key {
	case common.KeyTab, common.KeyM:
		mode := e.renderer.ToggleMode()
		logger.Noticef("render mode: %s", mode)
	}
}

func (e *engine) keyUp(key uint32) {
	delete(e.pressed, key)
}

// mouseMove turns relative cursor motion into camera look deltas.
func (e *engine) mouseMove(x, y int32) {
	if e.mouseSeen {
		e.renderer.Camera().Controller().Look(float32(x-e.mouseX), float32(y-e.mouseY))
	}
	e.mouseX, e.mouseY = x, y
	e.mouseSeen = true
}

// applyMovement moves the camera for every held movement key. WASD moves in the view plane,
// E and Q move up and down.
func (e *engine) applyMovement(dt float32) {
	step := e.moveSpeed * dt
	if step == 0 || len(e.pressed) == 0 {
		return
	}
	ctrl := e.renderer.Camera().Controller()

	if e.pressed[common.KeyW] {
		ctrl.PanForward(step)
	}
	if e.pressed[common.KeyS] {
		ctrl.PanForward(-step)
	}
	if e.pressed[common.KeyD] {
		ctrl.PanRight(step)
	}
	if e.pressed[common.KeyA] {
		ctrl.PanRight(-step)
	}
	if e.pressed[common.KeyE] {
		ctrl.PanUp(step)
	}
	if e.pressed[common.KeyQ] {
		ctrl.PanUp(-step)
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
