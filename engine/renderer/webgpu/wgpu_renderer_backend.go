package webgpu

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/log"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("webgpu")

// surfaceProvider is implemented by windows that can hand out a platform surface descriptor.
type surfaceProvider interface {
	renderer.Surface
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

// program is a compiled pipeline together with the bind groups built for it.
type program struct {
	pipeline pipeline.Pipeline
	bindings bind_group_provider.BindGroupProvider
	modules  map[renderer.ShaderStage]*wgpu.ShaderModule

	// uniformOffset is the ring offset of the last upload and uniformFrame the frame it was made in.
	uniformOffset uint32
	uniformFrame  uint64
	uniformDirty  bool
}

type geometry struct {
	buffer *wgpu.Buffer
	count  int32
	stride uint64
}

type image struct {
	cfg     renderer.ImageConfig
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

// frameState is the encoder state of the frame being recorded.
type frameState struct {
	surface *wgpu.Texture
	view    *wgpu.TextureView
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	clear   mgl32.Vec4
	cleared bool
}

type wgpuRendererBackendImpl struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	presentMode   wgpu.PresentMode
	sampleCount   renderer.MSAASampleCount
	width, height int

	msaaTexture  *wgpu.Texture
	msaaView     *wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	ringBuffer *wgpu.Buffer
	ring       *uniformRing

	programs   map[renderer.ProgramHandle]*program
	geometries map[renderer.GeometryHandle]*geometry
	images     map[renderer.ImageHandle]*image
	nextHandle uint32

	// textures maps texture units to the images bound by BindTexture.
	textures map[uint32]renderer.ImageHandle

	frame      frameState
	frameIndex uint64
	frameErr   error
}

var _ renderer.RendererBackend = &wgpuRendererBackendImpl{}

func init() {
	renderer.RegisterBackend(renderer.BackendTypeWGPU, newWGPURendererBackend)
}

// newWGPURendererBackend creates the device for a window surface and configures the swapchain.
// The calling goroutine is locked to its OS thread, as the surface belongs to the window thread.
func newWGPURendererBackend(surface renderer.Surface, cfg renderer.BackendConfig) (renderer.RendererBackend, error) {
	sp, ok := surface.(surfaceProvider)
	if !ok {
		return nil, fmt.Errorf("webgpu: %T does not provide a surface descriptor", surface)
	}
	surfaceDescriptor := sp.SurfaceDescriptor()
	if surfaceDescriptor == nil {
		return nil, errors.New("webgpu: window has no native surface")
	}

	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: cfg.MSAA,
		ring:        newUniformRing(uniformRingSize),
		programs:    make(map[renderer.ProgramHandle]*program),
		geometries:  make(map[renderer.GeometryHandle]*geometry),
		images:      make(map[renderer.ImageHandle]*image),
		textures:    make(map[uint32]renderer.ImageHandle),
	}
	if b.sampleCount == 0 {
		b.sampleCount = renderer.MSAAOff
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.ForceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %w", err)
	}
	b.adapter = adapter

	limits := wgpu.DefaultLimits()
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	b.ringBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Uniform Ring",
		Size:  uniformRingSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("webgpu: create uniform ring: %w", err)
	}

	b.presentMode = wgpuPresentMode(cfg.PresentMode)
	if err := b.configureSurface(surface.Width(), surface.Height()); err != nil {
		b.Release()
		return nil, err
	}
	logger.Infof("webgpu backend ready: %dx%d surface format %v, %dx MSAA", b.width, b.height, b.surfaceFormat, b.sampleCount)
	return b, nil
}

func wgpuPresentMode(mode renderer.PresentMode) wgpu.PresentMode {
	if mode == renderer.PresentModeVSync {
		return wgpu.PresentModeFifo
	}
	return wgpu.PresentModeImmediate
}

// configureSurface configures the swapchain and recreates the depth and MSAA targets.
// Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) configureSurface(width, height int) error {
	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("webgpu: surface reports no formats")
	}
	b.surfaceFormat = capabilities.Formats[0]
	if len(capabilities.AlphaModes) > 0 {
		b.alphaMode = capabilities.AlphaModes[0]
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   b.alphaMode,
	})
	b.width, b.height = width, height
	b.releaseTargets()

	count := uint32(b.sampleCount)
	size := wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}

	if count > 1 {
		// the MSAA texture is resolved into the swapchain view at the end of each pass
		tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "MSAA Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("webgpu: create msaa target: %w", err)
		}
		b.msaaTexture = tex
		if b.msaaView, err = tex.CreateView(nil); err != nil {
			return fmt.Errorf("webgpu: create msaa view: %w", err)
		}
	}

	// Depth texture sample count must match the color attachment.
	depth, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("webgpu: create depth target: %w", err)
	}
	b.depthTexture = depth
	if b.depthView, err = depth.CreateView(nil); err != nil {
		return fmt.Errorf("webgpu: create depth view: %w", err)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) releaseTargets() {
	if b.msaaView != nil {
		b.msaaView.Release()
		b.msaaView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.depthView != nil {
		b.depthView.Release()
		b.depthView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *wgpuRendererBackendImpl) ShaderLanguage() renderer.ShaderLanguage {
	return renderer.ShaderLanguageWGSL
}

func (b *wgpuRendererBackendImpl) BeginFrame(clear mgl32.Vec4) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frameErr = nil
	if b.frame.surface != nil {
		b.fail(errors.New("webgpu: previous frame was not presented"))
		return
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		b.fail(fmt.Errorf("webgpu: acquire surface texture: %w", err))
		return
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		b.fail(fmt.Errorf("webgpu: create surface view: %w", err))
		return
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		b.fail(fmt.Errorf("webgpu: create command encoder: %w", err))
		return
	}

	b.frameIndex++
	b.ring.reset()
	for unit := range b.textures {
		delete(b.textures, unit)
	}
	b.frame = frameState{
		surface: surfaceTexture,
		view:    view,
		encoder: encoder,
		clear:   clear,
	}
}

func (b *wgpuRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.encoder != nil {
		if !b.frame.cleared {
			// nothing was drawn; still clear the targets
			b.beginRenderPass()
		}
		b.endRenderPass()
		b.submit()
	}
	if b.frame.surface != nil {
		b.surface.Present()
		b.frame.view.Release()
		b.frame.surface.Release()
	}
	b.frame = frameState{}

	err := b.frameErr
	b.frameErr = nil
	return err
}

func (b *wgpuRendererBackendImpl) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.configureSurface(width, height)
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode renderer.PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.presentMode = wgpuPresentMode(mode)
	if b.device != nil && b.width > 0 && b.height > 0 {
		if err := b.configureSurface(b.width, b.height); err != nil {
			logger.Warningf("reconfigure surface for present mode: %v", err)
		}
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for h, p := range b.programs {
		b.releaseProgram(p)
		delete(b.programs, h)
	}
	for h, g := range b.geometries {
		g.buffer.Release()
		delete(b.geometries, h)
	}
	for h, img := range b.images {
		img.release()
		delete(b.images, h)
	}
	b.releaseTargets()
	if b.ringBuffer != nil {
		b.ringBuffer.Release()
		b.ringBuffer = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// fail keeps the first error of the frame. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) fail(err error) {
	if b.frameErr == nil {
		b.frameErr = err
	}
}

// beginRenderPass opens the frame's render pass. The first pass of a frame clears the
// targets and later passes load them. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) beginRenderPass() {
	if b.frame.pass != nil {
		return
	}
	loadOp := wgpu.LoadOpLoad
	if !b.frame.cleared {
		loadOp = wgpu.LoadOpClear
	}

	color := wgpu.RenderPassColorAttachment{
		View:    b.frame.view,
		LoadOp:  loadOp,
		StoreOp: wgpu.StoreOpStore,
		ClearValue: wgpu.Color{
			R: float64(b.frame.clear[0]),
			G: float64(b.frame.clear[1]),
			B: float64(b.frame.clear[2]),
			A: float64(b.frame.clear[3]),
		},
	}
	if b.sampleCount > 1 {
		color.View = b.msaaView
		color.ResolveTarget = b.frame.view
	}

	b.frame.pass = b.frame.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthView,
			DepthLoadOp:     loadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	b.frame.cleared = true
}

func (b *wgpuRendererBackendImpl) endRenderPass() {
	if b.frame.pass == nil {
		return
	}
	b.frame.pass.End()
	b.frame.pass.Release()
	b.frame.pass = nil
}

// submit finishes the frame encoder and submits it. Caller must hold the mutex and have
// ended any open pass.
func (b *wgpuRendererBackendImpl) submit() {
	if b.frame.encoder == nil {
		return
	}
	commandBuffer, err := b.frame.encoder.Finish(nil)
	b.frame.encoder.Release()
	b.frame.encoder = nil
	if err != nil {
		b.fail(fmt.Errorf("webgpu: finish command encoder: %w", err))
		return
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
}

func (img *image) release() {
	if img.sampler != nil {
		img.sampler.Release()
	}
	if img.view != nil {
		img.view.Release()
	}
	if img.texture != nil {
		img.texture.Release()
	}
}
