package opengl

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/Carmen-Shannon/oxy-trace/log"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("opengl")

// contextSurface is the window the OpenGL backend draws into. The window owns the context:
// it is created, made current and loaded with gl.Init before the backend exists.
type contextSurface interface {
	renderer.Surface
	GraphicsAPI() window.GraphicsAPI
	SwapBuffers()
	SetSwapInterval(interval int)
}

// program is a linked GL program and the uniform locations looked up so far.
type program struct {
	name      string
	id        uint32
	compute   bool
	locations map[string]int32
}

// geometry is a vertex array with its single vertex buffer.
type geometry struct {
	vao    uint32
	vbo    uint32
	count  int32
	layout renderer.VertexLayout
}

// image is an immutable-storage texture usable both as an image unit and a sampler.
type image struct {
	cfg     renderer.ImageConfig
	texture uint32
}

// openglRendererBackendImpl is the OpenGL 4.3 core implementation of renderer.RendererBackend.
// Every method must be called from the goroutine the context is current on.
type openglRendererBackendImpl struct {
	surface contextSurface

	width  int
	height int

	// emptyVAO is bound for draws without geometry. Core profile rejects draws with no VAO bound.
	emptyVAO uint32

	programs   map[renderer.ProgramHandle]*program
	geometries map[renderer.GeometryHandle]*geometry
	images     map[renderer.ImageHandle]*image
	textures   map[uint32]renderer.ImageHandle
	nextHandle uint32

	frameErr error
}

var _ renderer.RendererBackend = &openglRendererBackendImpl{}

func init() {
	renderer.RegisterBackend(renderer.BackendTypeOpenGL, newOpenGLRendererBackend)
}

// newOpenGLRendererBackend wraps the current GL context of an OpenGL window.
//
// Parameters:
//   - surface: a window created with window.APIOpenGL
//   - cfg: construction settings; MSAA is ignored by this backend
//
// Returns:
//   - renderer.RendererBackend: the backend
//   - error: an error if the surface has no GL context
func newOpenGLRendererBackend(surface renderer.Surface, cfg renderer.BackendConfig) (renderer.RendererBackend, error) {
	cs, ok := surface.(contextSurface)
	if !ok {
		return nil, errors.New("opengl: surface does not provide a GL context")
	}
	if cs.GraphicsAPI() != window.APIOpenGL {
		return nil, fmt.Errorf("opengl: window was created with graphics API %s", cs.GraphicsAPI())
	}

	b := &openglRendererBackendImpl{
		surface:    cs,
		width:      cs.Width(),
		height:     cs.Height(),
		programs:   make(map[renderer.ProgramHandle]*program),
		geometries: make(map[renderer.GeometryHandle]*geometry),
		images:     make(map[renderer.ImageHandle]*image),
		textures:   make(map[uint32]renderer.ImageHandle),
		nextHandle: 1,
	}

	logger.Infof("OpenGL %s on %s", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))
	if cfg.MSAA > renderer.MSAAOff {
		logger.Debugf("MSAA %dx requested, the OpenGL backend renders without multisampling", cfg.MSAA)
	}

	gl.GenVertexArrays(1, &b.emptyVAO)
	gl.DepthFunc(gl.LESS)
	gl.Viewport(0, 0, int32(b.width), int32(b.height))
	b.SetPresentMode(cfg.PresentMode)

	if err := glError("initialize"); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

func (b *openglRendererBackendImpl) ShaderLanguage() renderer.ShaderLanguage {
	return renderer.ShaderLanguageGLSL
}

// BeginFrame clears the default framebuffer. Errors left over from the previous frame are dropped.
func (b *openglRendererBackendImpl) BeginFrame(clear mgl32.Vec4) {
	b.frameErr = nil
	gl.ClearColor(clear[0], clear[1], clear[2], clear[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Present swaps buffers and returns the first error recorded during the frame, including
// any pending glGetError state.
func (b *openglRendererBackendImpl) Present() error {
	if err := glError("frame"); err != nil {
		b.fail(err)
	}
	b.surface.SwapBuffers()

	err := b.frameErr
	b.frameErr = nil
	return err
}

// Resize updates the viewport. A zero or negative extent, e.g. a minimized window, is ignored.
func (b *openglRendererBackendImpl) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	b.width = width
	b.height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	return glError("resize")
}

func (b *openglRendererBackendImpl) SetPresentMode(mode renderer.PresentMode) {
	b.surface.SetSwapInterval(swapInterval(mode))
}

// Release deletes every program, buffer and texture owned by the backend.
func (b *openglRendererBackendImpl) Release() {
	for h, p := range b.programs {
		gl.DeleteProgram(p.id)
		delete(b.programs, h)
	}
	for h, g := range b.geometries {
		gl.DeleteBuffers(1, &g.vbo)
		gl.DeleteVertexArrays(1, &g.vao)
		delete(b.geometries, h)
	}
	for h := range b.images {
		b.ReleaseImage(h)
	}
	if b.emptyVAO != 0 {
		gl.DeleteVertexArrays(1, &b.emptyVAO)
		b.emptyVAO = 0
	}
}

// fail records the first error of the frame.
func (b *openglRendererBackendImpl) fail(err error) {
	if b.frameErr == nil {
		b.frameErr = err
	}
	logger.Debugf("%v", err)
}

func (b *openglRendererBackendImpl) handle() uint32 {
	h := b.nextHandle
	b.nextHandle++
	return h
}

// swapInterval maps a present mode onto a GLFW swap interval.
func swapInterval(mode renderer.PresentMode) int {
	if mode == renderer.PresentModeUncapped {
		return 0
	}
	return 1
}

// glError drains the GL error queue and returns the first error as a Go error.
func glError(op string) error {
	var first uint32
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		if first == 0 {
			first = code
		}
	}
	if first == 0 {
		return nil
	}
	return fmt.Errorf("opengl: %s: %s", op, errorName(first))
}

// errorName returns the symbolic name of a glGetError code.
func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	case gl.STACK_UNDERFLOW:
		return "GL_STACK_UNDERFLOW"
	case gl.STACK_OVERFLOW:
		return "GL_STACK_OVERFLOW"
	}
	return fmt.Sprintf("GL error 0x%04X", code)
}
