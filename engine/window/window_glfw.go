package window

import (
	"errors"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	parent  *engineWindow
	window  *glfw.Window
	running bool
}

// newPlatformWindow creates the GLFW window with input callbacks and stores it as the internal window.
// For APIOpenGL the context is made current and the GL function pointers are loaded.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return &WindowInitError{Op: "glfw init", Err: err}
	}

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Visible, glfw.False)
	switch w.api {
	case APIOpenGL:
		// Compute shaders and image load/store need 4.3. Forward compatibility is required on macOS.
		// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 3)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	default:
		// WebGPU provides its own graphics API, so disable OpenGL context creation.
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	}

	if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
		if mode := monitor.GetVideoMode(); mode != nil {
			w.screenWidth = mode.Width
			w.screenHeight = mode.Height
		}
	}

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return &WindowInitError{Op: "create window", Err: err}
	}

	if w.api == APIOpenGL {
		win.MakeContextCurrent()
		if err := gl.Init(); err != nil {
			win.Destroy()
			glfw.Terminate()
			return &ContextCreationError{Err: err}
		}
	}

	gw := &glfwWindow{
		parent:  w,
		window:  win,
		running: true,
	}
	w.internalWindow = gw

	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)
	w.x, w.y = centeredPosition(w.screenWidth, w.screenHeight, w.width, w.height)
	win.SetPos(w.x, w.y)

	// Register GLFW callbacks for input and window events.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetKeyCallback
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if isCloseKey(uint32(key)) && action == glfw.Press {
			gw.running = false
			win.SetShouldClose(true)
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			if w.onKeyDown != nil {
				w.onKeyDown(uint32(key))
			}
		case glfw.Release:
			if w.onKeyUp != nil {
				w.onKeyUp(uint32(key))
			}
		}
	})

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetScrollCallback
	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetMouseButtonCallback
	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button == glfw.MouseButtonMiddle {
			xpos, ypos := win.GetCursorPos()
			switch action {
			case glfw.Press:
				if w.onMiddleMouseDown != nil {
					w.onMiddleMouseDown(int32(xpos), int32(ypos))
				}
			case glfw.Release:
				if w.onMiddleMouseUp != nil {
					w.onMiddleMouseUp(int32(xpos), int32(ypos))
				}
			}
		}
	})

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetCursorPosCallback
	win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		if w.onMouseMove != nil {
			w.onMouseMove(int32(xpos), int32(ypos))
		}
	})

	win.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
	})

	win.SetPosCallback(func(_ *glfw.Window, xpos, ypos int) {
		w.x = xpos
		w.y = ypos
	})

	// Use framebuffer size callback for pixel-accurate resize events.
	// On high-DPI displays (e.g., macOS Retina), framebuffer size differs from window size.
	// The renderer requires pixel dimensions for correct surface configuration.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetFramebufferSizeCallback
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.fbWidth = width
		w.fbHeight = height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	// The framebuffer may be larger than the requested window size on high-DPI displays.
	w.fbWidth, w.fbHeight = win.GetFramebufferSize()

	win.Show()
	return nil
}

// glfwWindowOf returns the GLFW window, or nil before creation and after Close.
func glfwWindowOf(w *engineWindow) *glfwWindow {
	gw, _ := w.internalWindow.(*glfwWindow)
	return gw
}

// platformGetSurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW window.
// Uses the wgpuglfw bridge package which has per-platform implementations (Windows, X11, Wayland, macOS).
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw := glfwWindowOf(w)
	if gw == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

func platformSwapBuffers(w *engineWindow) {
	if gw := glfwWindowOf(w); gw != nil && w.api == APIOpenGL {
		gw.window.SwapBuffers()
	}
}

// platformSetSwapInterval applies to the current context, so it is a no-op without one.
func platformSetSwapInterval(w *engineWindow, interval int) {
	if gw := glfwWindowOf(w); gw != nil && w.api == APIOpenGL {
		glfw.SwapInterval(interval)
	}
}

// platformSetRelativeMouseMode switches between the disabled and normal cursor modes.
//
// Reference: https://www.glfw.org/docs/latest/input_guide.html#cursor_mode
func platformSetRelativeMouseMode(w *engineWindow, enabled bool) {
	gw := glfwWindowOf(w)
	if gw == nil {
		return
	}
	mode := glfw.CursorNormal
	if enabled {
		mode = glfw.CursorDisabled
		if glfw.RawMouseMotionSupported() {
			gw.window.SetInputMode(glfw.RawMouseMotion, glfw.True)
		}
	}
	gw.window.SetInputMode(glfw.CursorMode, mode)
}

func platformShowCursor(w *engineWindow, visible bool) {
	gw := glfwWindowOf(w)
	if gw == nil {
		return
	}
	// A disabled cursor is already hidden; switching it to hidden would release the lock.
	if gw.window.GetInputMode(glfw.CursorMode) == glfw.CursorDisabled {
		return
	}
	mode := glfw.CursorHidden
	if visible {
		mode = glfw.CursorNormal
	}
	gw.window.SetInputMode(glfw.CursorMode, mode)
}

// platformSetBounds applies the stored size and position to the GLFW window.
func platformSetBounds(w *engineWindow) {
	gw := glfwWindowOf(w)
	if gw == nil {
		return
	}
	gw.window.SetSize(w.width, w.height)
	gw.window.SetPos(w.x, w.y)
}

// platformIsRunningCheck returns whether the GLFW window is still active.
// Returns false if the internal window is nil, the running flag is cleared, or GLFW reports ShouldClose.
//
// Parameters:
//   - w: the engineWindow to check
//
// Returns:
//   - bool: true if the window is still running
func platformIsRunningCheck(w *engineWindow) bool {
	gw := glfwWindowOf(w)
	if gw == nil {
		return false
	}
	return gw.running && !gw.window.ShouldClose()
}

func platformRequestClose(w *engineWindow) {
	if gw := glfwWindowOf(w); gw != nil {
		gw.running = false
		gw.window.SetShouldClose(true)
	}
}

// platformCloseWindow destroys the GLFW window and terminates the GLFW library.
// Returns an error if the internal window has not been initialized.
//
// Parameters:
//   - w: the engineWindow to close
//
// Returns:
//   - error: error if the window is not initialized
func platformCloseWindow(w *engineWindow) error {
	gw := glfwWindowOf(w)
	if gw == nil {
		return errors.New("window: not initialized")
	}
	gw.running = false
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	w.internalWindow = nil
	glfw.Terminate()
	return nil
}

// platformProcessMessages polls GLFW for pending events without blocking.
// This is the GLFW equivalent of the Win32 PeekMessage loop.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
