package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-trace/common"

	"github.com/cogentcore/webgpu/wgpu"
)

// GraphicsAPI selects which client API context the window is created with.
type GraphicsAPI int

const (
	// APIOpenGL creates an OpenGL 4.3 core, forward-compatible context and makes it current.
	APIOpenGL GraphicsAPI = iota

	// APINone creates the window without a client API. Used by the WebGPU backend, which
	// builds its own surface from the native handle.
	APINone
)

// String returns the API name.
func (a GraphicsAPI) String() string {
	switch a {
	case APIOpenGL:
		return "opengl"
	case APINone:
		return "none"
	}
	return fmt.Sprintf("api(%d)", int(a))
}

// Window provides platform windowing and input event handling.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the window is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMiddleMouseDownCallback sets the callback for middle mouse button press.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseDownCallback(callback func(x, y int32))

	// SetMiddleMouseUpCallback sets the callback for middle mouse button release.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseUpCallback(callback func(x, y int32))

	// SetMouseMoveCallback sets the callback for mouse movement. In relative mouse mode the
	// position is virtual and unbounded, so callers should work with deltas between calls.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// GraphicsAPI reports the client API the window was created with.
	//
	// Returns:
	//   - GraphicsAPI: APIOpenGL or APINone
	GraphicsAPI() GraphicsAPI

	// SwapBuffers presents the back buffer of the OpenGL context.
	SwapBuffers()

	// SetSwapInterval sets how many vertical blanks SwapBuffers waits for. 1 is vsync, 0 is uncapped.
	//
	// Parameters:
	//   - interval: the swap interval
	SetSwapInterval(interval int)

	// SetRelativeMouseMode hides the cursor and locks it to the window, reporting unbounded
	// motion instead of positions.
	//
	// Parameters:
	//   - enabled: true to enter relative mode, false to restore the normal cursor
	SetRelativeMouseMode(enabled bool)

	// ShowCursor shows or hides the cursor while it is over the window.
	//
	// Parameters:
	//   - visible: whether the cursor is drawn
	ShowCursor(visible bool)

	// DisplayMode returns the resolution of the primary monitor captured when the window was created.
	//
	// Returns:
	//   - int: screen width in pixels
	//   - int: screen height in pixels
	DisplayMode() (width, height int)

	// Resize sets the window size and centers the window on the screen.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// Position returns the top-left corner of the window in screen coordinates.
	//
	// Returns:
	//   - int: x position
	//   - int: y position
	Position() (x, y int)

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// RequestClose asks the message loop to stop after the current iteration. The window
	// stays valid until Close.
	RequestClose()

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels. On high-DPI displays this is
	// larger than the window width in screen coordinates.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// api is the client API requested at creation.
	api GraphicsAPI

	// maxWidth is the maximum allowed window width during resize.
	maxWidth int

	// maxHeight is the maximum allowed window height during resize.
	maxHeight int

	// minWidth is the minimum allowed window width during resize.
	minWidth int

	// minHeight is the minimum allowed window height during resize.
	minHeight int

	// width and height are the window client area size in screen coordinates.
	width  int
	height int

	// fbWidth and fbHeight are the framebuffer size in pixels, zero until the platform reports it.
	fbWidth  int
	fbHeight int

	// screenWidth and screenHeight are the primary monitor resolution captured at creation.
	screenWidth  int
	screenHeight int

	// x and y are the window position in screen coordinates.
	x int
	y int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// onUpdate is called each iteration of the message loop (if set).
	onUpdate func()

	// onResize is called when the window is resized.
	onResize func(width, height int)

	// onScroll is called for mouse wheel events.
	// Positive delta = scroll up (zoom in), negative = scroll down (zoom out).
	onScroll func(delta float32)

	// onKeyDown is called when a key is pressed.
	onKeyDown func(keyCode uint32)

	// onKeyUp is called when a key is released.
	onKeyUp func(keyCode uint32)

	// onMiddleMouseDown is called when the middle mouse button is pressed.
	onMiddleMouseDown func(x, y int32)

	// onMiddleMouseUp is called when the middle mouse button is released.
	onMiddleMouseUp func(x, y int32)

	// onMouseMove is called when the mouse moves within the window.
	onMouseMove func(x, y int32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order. The window is centered on the
// primary monitor. With APIOpenGL the context is current on the calling thread when this returns.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the created window
//   - error: a *WindowInitError or *ContextCreationError on failure
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-trace",
		api:       APIOpenGL,
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  320,
		minHeight: 240,
		width:     1024,
		height:    768,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

// centeredPosition returns the top-left corner that centers a window of the given size on a screen.
func centeredPosition(screenWidth, screenHeight, width, height int) (x, y int) {
	return screenWidth/2 - width/2, screenHeight/2 - height/2
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMiddleMouseDownCallback(callback func(x, y int32)) {
	w.onMiddleMouseDown = callback
}

func (w *engineWindow) SetMiddleMouseUpCallback(callback func(x, y int32)) {
	w.onMiddleMouseUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) GraphicsAPI() GraphicsAPI {
	return w.api
}

func (w *engineWindow) SwapBuffers() {
	platformSwapBuffers(w)
}

func (w *engineWindow) SetSwapInterval(interval int) {
	platformSetSwapInterval(w, interval)
}

func (w *engineWindow) SetRelativeMouseMode(enabled bool) {
	platformSetRelativeMouseMode(w, enabled)
}

func (w *engineWindow) ShowCursor(visible bool) {
	platformShowCursor(w, visible)
}

func (w *engineWindow) DisplayMode() (int, int) {
	return w.screenWidth, w.screenHeight
}

// Resize recenters against the screen size captured at creation, not the monitor the window
// currently sits on.
func (w *engineWindow) Resize(width, height int) {
	w.width = width
	w.height = height
	w.x, w.y = centeredPosition(w.screenWidth, w.screenHeight, width, height)
	platformSetBounds(w)
}

func (w *engineWindow) Position() (int, int) {
	return w.x, w.y
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

// Width falls back to the window size before the platform has reported a framebuffer.
func (w *engineWindow) Width() int {
	if w.fbWidth > 0 {
		return w.fbWidth
	}
	return w.width
}

func (w *engineWindow) Height() int {
	if w.fbHeight > 0 {
		return w.fbHeight
	}
	return w.height
}

// isCloseKey reports whether a key press closes the window.
func isCloseKey(key uint32) bool {
	return key == common.KeyEsc
}
