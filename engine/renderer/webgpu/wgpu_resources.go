package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
)

// CreateProgram reflects each WGSL stage, creates the bind group and pipeline layouts and,
// for compute programs, the compute pipeline. Render pipelines are created per topology on
// the first draw that needs them.
func (b *wgpuRendererBackendImpl) CreateProgram(desc renderer.ProgramDesc) (renderer.ProgramHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pipelineType := pipeline.PipelineTypeRender
	lastStage := renderer.ShaderStageFragment
	if desc.IsCompute() {
		pipelineType = pipeline.PipelineTypeCompute
		lastStage = renderer.ShaderStageCompute
	}

	var opts []pipeline.PipelineBuilderOption
	for stage, src := range desc.Stages {
		s, err := shader.NewShader(desc.Name, stage, src)
		if err != nil {
			return 0, err
		}
		opts = append(opts, pipeline.WithShader(s))
		if stage == renderer.ShaderStageVertex && len(s.VertexLayouts()) == 0 {
			// full-screen passes generate their vertices and draw over everything
			opts = append(opts, pipeline.WithDepthTestEnabled(false), pipeline.WithDepthWriteEnabled(false))
		}
	}

	p, err := pipeline.NewPipeline(desc.Name, pipelineType, opts...)
	if err != nil {
		return 0, &renderer.ShaderCompileError{Program: desc.Name, Stage: lastStage, Link: true, Log: err.Error()}
	}

	prog := &program{
		pipeline: p,
		bindings: bind_group_provider.NewBindGroupProvider(desc.Name),
		modules:  make(map[renderer.ShaderStage]*wgpu.ShaderModule),
	}
	if err := b.initProgram(prog, lastStage); err != nil {
		b.releaseProgram(prog)
		return 0, err
	}

	b.nextHandle++
	handle := renderer.ProgramHandle(b.nextHandle)
	b.programs[handle] = prog
	logger.Debugf("program %q: %d groups, workgroup %v", desc.Name, p.MaxGroup()+1, workgroupSize(p))
	return handle, nil
}

func workgroupSize(p pipeline.Pipeline) [3]uint32 {
	if cs := p.Shader(renderer.ShaderStageCompute); cs != nil {
		return cs.WorkgroupSize()
	}
	return [3]uint32{}
}

// initProgram creates the GPU objects of a program. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) initProgram(prog *program, lastStage renderer.ShaderStage) error {
	p := prog.pipeline
	name := p.PipelineKey()
	descriptors := p.BindGroupLayoutDescriptors()

	for g := 0; g <= p.MaxGroup(); g++ {
		desc := descriptors[g]
		desc.Label = fmt.Sprintf("%s group %d", name, g)
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return &renderer.ShaderCompileError{Program: name, Stage: lastStage, Link: true, Log: fmt.Sprintf("bind group layout %d: %v", g, err)}
		}
		prog.bindings.SetBindGroupLayout(g, layout)
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            name,
		BindGroupLayouts: prog.bindings.BindGroupLayouts(p.MaxGroup()),
	})
	if err != nil {
		return &renderer.ShaderCompileError{Program: name, Stage: lastStage, Link: true, Log: err.Error()}
	}
	p.SetPipelineLayout(layout)

	if err := b.bindUniformRing(prog); err != nil {
		return err
	}

	for _, stage := range []renderer.ShaderStage{renderer.ShaderStageVertex, renderer.ShaderStageFragment, renderer.ShaderStageCompute} {
		s := p.Shader(stage)
		if s == nil {
			continue
		}
		module, err := b.device.CreateShaderModule(s.Module())
		if err != nil {
			return &renderer.ShaderCompileError{Program: name, Stage: stage, Log: err.Error()}
		}
		prog.modules[stage] = module
	}

	if p.Type() != pipeline.PipelineTypeCompute {
		return nil
	}
	cs := p.Shader(renderer.ShaderStageCompute)
	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  name + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     prog.modules[renderer.ShaderStageCompute],
			EntryPoint: cs.EntryPoint(),
		},
	})
	if err != nil {
		return &renderer.ShaderCompileError{Program: name, Stage: renderer.ShaderStageCompute, Link: true, Log: err.Error()}
	}
	p.SetComputePipeline(created)
	return nil
}

// renderPipeline returns the program's render pipeline for a topology, creating it on first
// use. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) renderPipeline(prog *program, topology renderer.Topology) (*wgpu.RenderPipeline, error) {
	p := prog.pipeline
	if rp := p.RenderPipeline(topology); rp != nil {
		return rp, nil
	}
	vs := p.Shader(renderer.ShaderStageVertex)
	fs := p.Shader(renderer.ShaderStageFragment)

	depthCompare := wgpu.CompareFunctionLess
	if !p.DepthTestEnabled() {
		depthCompare = wgpu.CompareFunctionAlways
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s %s Render Pipeline", p.PipelineKey(), topology),
		Layout: p.PipelineLayout(),
		Vertex: wgpu.VertexState{
			Module:     prog.modules[renderer.ShaderStageVertex],
			EntryPoint: vs.EntryPoint(),
			Buffers:    p.VertexBufferLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     prog.modules[renderer.ShaderStageFragment],
			EntryPoint: fs.EntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    b.surfaceFormat,
				WriteMask: p.WriteMask(),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  pipeline.WGPUTopology(topology),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: program %q %s pipeline: %w", p.PipelineKey(), topology, err)
	}
	p.SetRenderPipeline(topology, created)
	return created, nil
}

// bindUniformRing points the program's uniform group at the current ring buffer. Programs
// without a uniform block are left alone. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) bindUniformRing(prog *program) error {
	block, ok := prog.pipeline.UniformBlock()
	if !ok {
		return nil
	}
	name := prog.pipeline.PipelineKey()
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  name + " uniforms",
		Layout: prog.bindings.BindGroupLayout(block.Group),
		Entries: []wgpu.BindGroupEntry{{
			Binding: uint32(block.Binding),
			Buffer:  b.ringBuffer,
			Offset:  0,
			Size:    block.Size,
		}},
	})
	if err != nil {
		return fmt.Errorf("webgpu: program %q uniform bind group: %w", name, err)
	}
	prog.bindings.SetStaticBindGroup(block.Group, bg)
	return nil
}

// largestUniformBlock returns the biggest uniform block of all programs. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) largestUniformBlock() uint64 {
	var largest uint64
	for _, prog := range b.programs {
		if block, ok := prog.pipeline.UniformBlock(); ok && block.Size > largest {
			largest = block.Size
		}
	}
	return largest
}

// ensureRingCapacity grows the uniform ring so a frame can draw every geometry once, then
// rebinds the uniform groups of every program to the new buffer. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) ensureRingCapacity() error {
	size := ringSizeFor(len(b.geometries), b.largestUniformBlock())
	if size <= b.ring.size {
		return nil
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Uniform Ring",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("webgpu: grow uniform ring to %d bytes: %w", size, err)
	}

	old := b.ringBuffer
	b.ringBuffer = buf
	b.ring = newUniformRing(size)
	for _, prog := range b.programs {
		if err := b.bindUniformRing(prog); err != nil {
			return err
		}
	}
	old.Release()
	logger.Debugf("uniform ring grown to %d bytes for %d geometries", size, len(b.geometries))
	return nil
}

func (b *wgpuRendererBackendImpl) releaseProgram(prog *program) {
	prog.pipeline.Release()
	prog.bindings.Release()
	for stage, module := range prog.modules {
		module.Release()
		delete(prog.modules, stage)
	}
}

func (b *wgpuRendererBackendImpl) CreateGeometry(vertices []float32, layout renderer.VertexLayout) (renderer.GeometryHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if layout.Stride <= 0 || len(vertices) == 0 || len(vertices)%layout.Stride != 0 {
		return 0, fmt.Errorf("webgpu: %d floats do not form whole vertices of stride %d", len(vertices), layout.Stride)
	}
	data := common.SliceToBytes(vertices)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Vertex Buffer",
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("webgpu: create vertex buffer: %w", err)
	}
	b.queue.WriteBuffer(buf, 0, data)

	b.nextHandle++
	handle := renderer.GeometryHandle(b.nextHandle)
	b.geometries[handle] = &geometry{
		buffer: buf,
		count:  int32(len(vertices) / layout.Stride),
		stride: uint64(layout.Stride) * 4,
	}
	if err := b.ensureRingCapacity(); err != nil {
		buf.Release()
		delete(b.geometries, handle)
		return 0, err
	}
	return handle, nil
}

// CreateImage creates an rgba32float texture that compute passes can store to and render
// passes can read.
func (b *wgpuRendererBackendImpl) CreateImage(cfg renderer.ImageConfig) (renderer.ImageHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, fmt.Errorf("webgpu: invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Format != renderer.FormatRGBA32F {
		return 0, fmt.Errorf("webgpu: unsupported image format %d", cfg.Format)
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "Trace Image",
		Usage:     wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(cfg.Width),
			Height:             uint32(cfg.Height),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA32Float,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("webgpu: create image: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("webgpu: create image view: %w", err)
	}

	b.nextHandle++
	handle := renderer.ImageHandle(b.nextHandle)
	b.images[handle] = &image{cfg: cfg, texture: tex, view: view}
	return handle, nil
}

func (b *wgpuRendererBackendImpl) ReleaseImage(handle renderer.ImageHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	img, ok := b.images[handle]
	if !ok {
		return
	}
	for _, prog := range b.programs {
		prog.bindings.ReleaseImage(handle)
	}
	img.release()
	delete(b.images, handle)
	for unit, bound := range b.textures {
		if bound == handle {
			delete(b.textures, unit)
		}
	}
}

// imageSampler returns the sampler matching an image's filter and wrap settings.
func (b *wgpuRendererBackendImpl) imageSampler(img *image) (*wgpu.Sampler, error) {
	if img.sampler != nil {
		return img.sampler, nil
	}
	filter := wgpu.FilterModeLinear
	if img.cfg.Filter == renderer.FilterNearest {
		filter = wgpu.FilterModeNearest
	}
	address := wgpu.AddressModeClampToEdge
	if img.cfg.Wrap == renderer.WrapRepeat {
		address = wgpu.AddressModeRepeat
	}
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Image Sampler",
		AddressModeU:  address,
		AddressModeV:  address,
		AddressModeW:  address,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	img.sampler = samp
	return samp, nil
}
