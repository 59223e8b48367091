package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeOpenGL selects the OpenGL 4.3 core backend. Compute shaders and image
	// load/store require 4.3.
	BackendTypeOpenGL RendererBackendType = iota

	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU

	// BackendTypeRecorder selects the CommandRecorder, which records commands instead of
	// talking to a GPU. It needs no window.
	BackendTypeRecorder
)

// String returns the lowercase backend name used on the command line.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeOpenGL:
		return "opengl"
	case BackendTypeWGPU:
		return "webgpu"
	case BackendTypeRecorder:
		return "recorder"
	}
	return fmt.Sprintf("backend(%d)", int(t))
}

// ParseBackendType converts a backend name into a RendererBackendType.
//
// Parameters:
//   - name: one of opengl, gl, webgpu, wgpu or recorder
//
// Returns:
//   - RendererBackendType: the parsed backend type
//   - error: ErrUnknownBackend if the name is not recognised
func ParseBackendType(name string) (RendererBackendType, error) {
	switch name {
	case "opengl", "gl":
		return BackendTypeOpenGL, nil
	case "webgpu", "wgpu":
		return BackendTypeWGPU, nil
	case "recorder":
		return BackendTypeRecorder, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only the WebGPU backend honours values above MSAAOff.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// Surface is the part of a window a backend factory needs to size its targets.
// Backends type-assert it to the richer window interfaces they require.
type Surface interface {
	Width() int
	Height() int
}

// BackendConfig carries the construction-time settings collected by the renderer builder.
type BackendConfig struct {
	// PresentMode is the initial present mode.
	PresentMode PresentMode

	// MSAA is the sample count for the color target of raster passes.
	MSAA MSAASampleCount

	// ForceFallbackAdapter requests a software adapter where the backend supports one.
	ForceFallbackAdapter bool
}

// RendererBackend is the GPU API abstraction consumed by the Renderer. It embeds the
// CommandEncoder that frame strategies record into and adds resource lifetime management.
type RendererBackend interface {
	CommandEncoder

	// ShaderLanguage reports which shading language CreateProgram accepts.
	//
	// Returns:
	//   - ShaderLanguage: GLSL or WGSL
	ShaderLanguage() ShaderLanguage

	// CreateProgram compiles and links the given stages into a program.
	//
	// Parameters:
	//   - desc: the program name and its per-stage sources
	//
	// Returns:
	//   - ProgramHandle: the handle used in commands
	//   - error: a *ShaderCompileError when a stage fails to compile or the program fails to link
	CreateProgram(desc ProgramDesc) (ProgramHandle, error)

	// CreateGeometry uploads a non-indexed vertex buffer.
	//
	// Parameters:
	//   - vertices: interleaved vertex data
	//   - layout: the attribute layout of the interleaved data
	//
	// Returns:
	//   - GeometryHandle: the handle used in draw commands
	//   - error: an error if the upload fails
	CreateGeometry(vertices []float32, layout VertexLayout) (GeometryHandle, error)

	// CreateImage creates a 2D image that compute programs can write and render programs can sample.
	//
	// Parameters:
	//   - cfg: size, format, filtering and wrap configuration
	//
	// Returns:
	//   - ImageHandle: the handle used in dispatch and texture binding commands
	//   - error: an error if the image cannot be created
	CreateImage(cfg ImageConfig) (ImageHandle, error)

	// ReleaseImage frees an image created by CreateImage.
	//
	// Parameters:
	//   - image: the image to release
	ReleaseImage(image ImageHandle)

	// BeginFrame starts a new frame and clears the color and depth targets.
	//
	// Parameters:
	//   - clear: the RGBA clear color
	BeginFrame(clear mgl32.Vec4)

	// Present finishes the frame and hands it to the display. Any error recorded while
	// encoding the frame is returned here.
	//
	// Returns:
	//   - error: the first error recorded during the frame
	Present() error

	// Resize reconfigures the presentation surface.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the surface cannot be reconfigured
	Resize(width, height int) error

	// SetPresentMode changes vsync behaviour.
	//
	// Parameters:
	//   - mode: the PresentMode to apply
	SetPresentMode(mode PresentMode)

	// Release frees every GPU resource owned by the backend.
	Release()
}

// BackendFactory constructs a RendererBackend for a surface.
type BackendFactory func(surface Surface, cfg BackendConfig) (RendererBackend, error)

var (
	// ErrUnknownBackend is returned when no factory is registered for a backend type.
	ErrUnknownBackend = errors.New("renderer: unknown backend")

	factoriesMu sync.RWMutex
	factories   = map[RendererBackendType]BackendFactory{}
)

// RegisterBackend makes a backend available to NewRenderer. Backend packages call this from
// their init function, so importing a backend package for side effects enables it.
//
// Parameters:
//   - backendType: the type the factory serves
//   - factory: the constructor for the backend
func RegisterBackend(backendType RendererBackendType, factory BackendFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[backendType] = factory
}

// lookupBackend returns the factory registered for backendType.
func lookupBackend(backendType RendererBackendType) (BackendFactory, error) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	factory, ok := factories[backendType]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not registered", ErrUnknownBackend, backendType)
	}
	return factory, nil
}

func init() {
	RegisterBackend(BackendTypeRecorder, func(surface Surface, _ BackendConfig) (RendererBackend, error) {
		return NewCommandRecorder(surface.Width(), surface.Height()), nil
	})
}
