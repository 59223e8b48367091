package renderer

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/Carmen-Shannon/oxy-trace/log"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("renderer")

// defaultClearColor is the background behind raster batches.
var defaultClearColor = mgl32.Vec4{0.2, 0.3, 0.4, 1.0}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	camera      camera.Camera

	mode       RenderMode
	strategies map[RenderMode]FrameStrategy

	clock      *frameClock
	clearColor mgl32.Vec4
	shaderDir  string

	programs     Programs
	output       ImageHandle
	outputWidth  int
	outputHeight int
	batches      []GeometryBatch
	initialized  bool

	// Pre-creation config collected from builder options
	now                  func() time.Time
	pendingStrategies    map[RenderMode]FrameStrategy
	forceFallbackAdapter bool
	pendingPresentMode   PresentMode
	pendingMSAA          MSAASampleCount
}

// Renderer is the render loop. It owns the frame clock, the active RenderMode and the
// geometry batches, and runs one frame per RenderFrame call:
// clear, camera recompute, the active FrameStrategy, present.
type Renderer interface {
	// Init builds the programs for the backend's shading language, creates the output image at
	// the surface size and seeds the frame clock.
	//
	// Returns:
	//   - error: a *ShaderCompileError when a built-in program fails to build, or an image creation error
	Init() error

	// RenderFrame renders exactly one frame.
	// The order is fixed: clear color and depth, recompute the camera projection, view and
	// corner rays, run the strategy of the active mode, present.
	//
	// Returns:
	//   - error: ErrNotInitialized before Init, or the first backend error recorded during the frame
	RenderFrame() error

	// UpdateDeltaTime advances the frame clock and returns the time since the previous call,
	// or since Init for the first call. The result is never negative.
	//
	// Returns:
	//   - time.Duration: the elapsed time
	UpdateDeltaTime() time.Duration

	// DeltaTime returns the value computed by the last UpdateDeltaTime.
	//
	// Returns:
	//   - time.Duration: the last frame delta
	DeltaTime() time.Duration

	// Mode returns the active render mode.
	//
	// Returns:
	//   - RenderMode: the active mode
	Mode() RenderMode

	// SetMode selects the strategy used from the next frame on.
	//
	// Parameters:
	//   - mode: the mode to activate
	//
	// Returns:
	//   - error: ErrUnknownMode when no strategy is registered for mode; the active mode is unchanged
	SetMode(mode RenderMode) error

	// ToggleMode switches between the path tracer and the rasterizer.
	//
	// Returns:
	//   - RenderMode: the newly active mode
	ToggleMode() RenderMode

	// Camera returns the camera recomputed every frame.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// LoadMeshes uploads meshes as geometry batches translated to each mesh position.
	// Meshes without vertices are skipped.
	//
	// Parameters:
	//   - meshes: the meshes to upload
	//
	// Returns:
	//   - error: an error if an upload fails; batches uploaded before the failure are kept
	LoadMeshes(meshes ...loader.Mesh) error

	// Batches returns a copy of the geometry batches in draw order.
	//
	// Returns:
	//   - []GeometryBatch: the batches
	Batches() []GeometryBatch

	// Resize reconfigures the surface and recreates the output image at the new size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the surface or image cannot be recreated
	Resize(width, height int) error

	// SetPresentMode changes vsync behaviour.
	//
	// Parameters:
	//   - mode: the PresentMode to apply
	SetPresentMode(mode PresentMode)

	// Backend returns the backend the renderer records into.
	//
	// Returns:
	//   - RendererBackend: the backend
	Backend() RendererBackend

	// BackendType returns the type the renderer was created with.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Close releases all GPU resources. The renderer must not be used afterwards.
	Close()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer for the given backend with all specified options applied.
// The backend must be registered, usually by importing its package for side effects.
//
// Parameters:
//   - backendType: the backend to create
//   - surface: the window or surface the backend presents to
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the new renderer
//   - error: ErrUnknownBackend or the backend construction error
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:                 &sync.Mutex{},
		backendType:        backendType,
		mode:               RenderModePathTracer,
		clearColor:         defaultClearColor,
		pendingPresentMode: PresentModeVSync,
		pendingMSAA:        MSAAOff,
	}
	for _, option := range options {
		option(r)
	}

	r.strategies = defaultStrategies()
	for mode, strategy := range r.pendingStrategies {
		r.strategies[mode] = strategy
	}
	if _, ok := r.strategies[r.mode]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, r.mode)
	}
	r.clock = newFrameClock(r.now)

	if r.camera == nil {
		aspect := float32(1)
		if surface.Height() > 0 {
			aspect = float32(surface.Width()) / float32(surface.Height())
		}
		r.camera = camera.NewCamera(camera.WithAspect(aspect))
	}

	factory, err := lookupBackend(backendType)
	if err != nil {
		return nil, err
	}
	backend, err := factory(surface, BackendConfig{
		PresentMode:          r.pendingPresentMode,
		MSAA:                 r.pendingMSAA,
		ForceFallbackAdapter: r.forceFallbackAdapter,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s backend: %w", backendType, err)
	}
	r.backend = backend
	r.outputWidth, r.outputHeight = surface.Width(), surface.Height()

	logger.Infof("created %s backend (%dx%d, mode %s)", backendType, r.outputWidth, r.outputHeight, r.mode)
	return r, nil
}

func (r *renderer) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	lang := r.backend.ShaderLanguage()
	handles := make(map[string]ProgramHandle, len(programStages))
	for _, name := range BuiltinPrograms() {
		desc, err := LoadProgramDesc(lang, name, r.shaderDir)
		if err != nil {
			return err
		}
		handle, err := r.backend.CreateProgram(desc)
		if err != nil {
			return err
		}
		logger.Debugf("built %s program %q as handle %d", lang, name, handle)
		handles[name] = handle
	}
	r.programs = Programs{
		Geometry:   handles[ProgramGeometry],
		PathTracer: handles[ProgramPathTracer],
		Screen:     handles[ProgramScreen],
	}

	if err := r.createOutputImage(r.outputWidth, r.outputHeight); err != nil {
		return err
	}

	r.clock.seed()
	r.initialized = true
	return nil
}

func (r *renderer) RenderFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}

	r.backend.BeginFrame(r.clearColor)

	r.camera.Update()
	ctx := &FrameContext{
		Encoder:      r.backend,
		Projection:   r.camera.ProjectionMatrix(),
		View:         r.camera.ViewMatrix(),
		Eye:          r.camera.Position(),
		Rays:         r.camera.CornerRays(),
		Batches:      r.batches,
		Programs:     r.programs,
		Output:       r.output,
		OutputWidth:  r.outputWidth,
		OutputHeight: r.outputHeight,
		DeltaTime:    r.clock.delta,
	}
	r.strategies[r.mode].Draw(ctx)

	return r.backend.Present()
}

func (r *renderer) UpdateDeltaTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.update()
}

func (r *renderer) DeltaTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.delta
}

func (r *renderer) Mode() RenderMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *renderer) SetMode(mode RenderMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.strategies[mode]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	if mode != r.mode {
		logger.Noticef("render mode %s -> %s", r.mode, mode)
	}
	r.mode = mode
	return nil
}

func (r *renderer) ToggleMode() RenderMode {
	next := r.Mode().Next()
	if err := r.SetMode(next); err != nil {
		logger.Warningf("toggle mode: %v", err)
	}
	return r.Mode()
}

func (r *renderer) Camera() camera.Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}

func (r *renderer) LoadMeshes(meshes ...loader.Mesh) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mesh := range meshes {
		count := mesh.VertexCount()
		if count == 0 {
			logger.Warningf("skipping mesh %q without vertices", mesh.Name)
			continue
		}
		geometry, err := r.backend.CreateGeometry(mesh.Vertices, PositionNormalLayout)
		if err != nil {
			return fmt.Errorf("renderer: upload mesh %q: %w", mesh.Name, err)
		}
		r.batches = append(r.batches, GeometryBatch{
			Name:        mesh.Name,
			Geometry:    geometry,
			Transform:   mgl32.Translate3D(mesh.Position[0], mesh.Position[1], mesh.Position[2]),
			VertexCount: int32(count),
		})
		logger.Debugf("uploaded mesh %q (%d vertices) at %v", mesh.Name, count, mesh.Position)
	}
	return nil
}

func (r *renderer) Batches() []GeometryBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GeometryBatch, len(r.batches))
	copy(out, r.batches)
	return out
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if width <= 0 || height <= 0 {
		// Minimized windows report a zero framebuffer; keep the old targets.
		return nil
	}
	if err := r.backend.Resize(width, height); err != nil {
		return fmt.Errorf("renderer: resize to %dx%d: %w", width, height, err)
	}
	if !r.initialized {
		r.outputWidth, r.outputHeight = width, height
		return nil
	}
	old := r.output
	if err := r.createOutputImage(width, height); err != nil {
		return err
	}
	r.backend.ReleaseImage(old)
	return nil
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.Release()
	r.batches = nil
	r.initialized = false
}

// createOutputImage creates the path tracer target. Caller must hold the mutex.
func (r *renderer) createOutputImage(width, height int) error {
	image, err := r.backend.CreateImage(ImageConfig{
		Width:  width,
		Height: height,
		Format: FormatRGBA32F,
		Filter: FilterLinear,
		Wrap:   WrapClampToEdge,
	})
	if err != nil {
		return fmt.Errorf("renderer: create %dx%d output image: %w", width, height, err)
	}
	r.output = image
	r.outputWidth, r.outputHeight = width, height
	return nil
}
