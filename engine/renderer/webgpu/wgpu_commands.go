package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupSetter is the SetBindGroup method shared by compute and render passes.
type bindGroupSetter interface {
	SetBindGroup(groupIndex uint32, group *wgpu.BindGroup, dynamicOffsets []uint32)
}

func (b *wgpuRendererBackendImpl) SetUniforms(handle renderer.ProgramHandle, uniforms ...renderer.Uniform) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prog := b.program(handle)
	if prog == nil {
		return
	}
	for _, u := range uniforms {
		if err := prog.pipeline.SetUniform(u); err != nil {
			b.fail(fmt.Errorf("webgpu: %w", err))
			return
		}
	}
	prog.uniformDirty = true
}

// Dispatch records a compute pass with the image bound to the program's first storage texture.
func (b *wgpuRendererBackendImpl) Dispatch(cmd renderer.DispatchCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.encoder == nil {
		return
	}
	prog := b.program(cmd.Program)
	if prog == nil {
		return
	}
	if prog.pipeline.Type() != pipeline.PipelineTypeCompute {
		b.fail(fmt.Errorf("webgpu: dispatch of render program %q", prog.pipeline.PipelineKey()))
		return
	}

	b.endRenderPass()
	storage := map[int]renderer.ImageHandle{0: cmd.Image}
	pass := b.frame.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: prog.pipeline.PipelineKey()})
	pass.SetPipeline(prog.pipeline.ComputePipeline())
	if b.setBindGroups(pass, prog, storage) {
		pass.DispatchWorkgroups(cmd.Groups[0], cmd.Groups[1], cmd.Groups[2])
	}
	pass.End()
	pass.Release()
}

// MemoryBarrier ends the current submission. Commands recorded afterwards go into a new
// command buffer, so they observe every image store made before the barrier.
func (b *wgpuRendererBackendImpl) MemoryBarrier(barrier renderer.Barrier) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.encoder == nil {
		return
	}
	if barrier != renderer.BarrierShaderImageAccess {
		b.fail(fmt.Errorf("webgpu: unsupported barrier %s", barrier))
		return
	}

	b.endRenderPass()
	b.submit()
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		b.fail(fmt.Errorf("webgpu: create command encoder: %w", err))
		return
	}
	b.frame.encoder = encoder
}

func (b *wgpuRendererBackendImpl) BindTexture(binding renderer.TextureBinding) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.images[binding.Image]; !ok {
		b.fail(fmt.Errorf("webgpu: bind of unknown image %d", binding.Image))
		return
	}
	b.textures[binding.Unit] = binding.Image
}

func (b *wgpuRendererBackendImpl) Draw(cmd renderer.DrawCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.encoder == nil {
		return
	}
	prog := b.program(cmd.Program)
	if prog == nil {
		return
	}
	if prog.pipeline.Type() != pipeline.PipelineTypeRender {
		b.fail(fmt.Errorf("webgpu: draw with compute program %q", prog.pipeline.PipelineKey()))
		return
	}

	var geom *geometry
	if cmd.Geometry != renderer.NoGeometry {
		geom = b.geometries[cmd.Geometry]
		if geom == nil {
			b.fail(fmt.Errorf("webgpu: draw with unknown geometry %d", cmd.Geometry))
			return
		}
		layouts := prog.pipeline.VertexBufferLayouts()
		if len(layouts) == 0 || layouts[0].ArrayStride != geom.stride {
			b.fail(fmt.Errorf("webgpu: geometry %d stride %d does not match program %q", cmd.Geometry, geom.stride, prog.pipeline.PipelineKey()))
			return
		}
		if cmd.First < 0 || cmd.First+cmd.Count > geom.count {
			b.fail(fmt.Errorf("webgpu: draw of %d vertices from %d overruns geometry %d with %d vertices", cmd.Count, cmd.First, cmd.Geometry, geom.count))
			return
		}
	}

	rp, err := b.renderPipeline(prog, cmd.Topology)
	if err != nil {
		b.fail(err)
		return
	}

	b.beginRenderPass()
	pass := b.frame.pass
	pass.SetPipeline(rp)
	if !b.setBindGroups(pass, prog, nil) {
		return
	}
	if geom != nil {
		pass.SetVertexBuffer(0, geom.buffer, 0, wgpu.WholeSize)
	}
	pass.Draw(uint32(cmd.Count), 1, uint32(cmd.First), 0)
}

// program looks up a program and records an error for unknown handles. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) program(handle renderer.ProgramHandle) *program {
	prog, ok := b.programs[handle]
	if !ok {
		b.fail(fmt.Errorf("webgpu: unknown program %d", handle))
		return nil
	}
	return prog
}

// uploadUniforms copies the staged uniform block into the ring when it changed since the
// last upload of this frame, and returns its offset.
func (b *wgpuRendererBackendImpl) uploadUniforms(prog *program) (uint32, error) {
	if !prog.uniformDirty && prog.uniformFrame == b.frameIndex {
		return prog.uniformOffset, nil
	}
	data := prog.pipeline.UniformData()
	offset, err := b.ring.alloc(uint64(len(data)))
	if err != nil {
		return 0, err
	}
	b.queue.WriteBuffer(b.ringBuffer, uint64(offset), data)
	prog.uniformOffset = offset
	prog.uniformFrame = b.frameIndex
	prog.uniformDirty = false
	return offset, nil
}

// setBindGroups binds every group of the program on a pass. Image groups are looked up in
// the program's cache by the images they bind, and built on a miss.
//
// Parameters:
//   - pass: the compute or render pass
//   - prog: the program being used
//   - storage: images bound to storage texture units
//
// Returns:
//   - bool: false if a bind group could not be built; the error is recorded
func (b *wgpuRendererBackendImpl) setBindGroups(pass bindGroupSetter, prog *program, storage map[int]renderer.ImageHandle) bool {
	p := prog.pipeline
	block, hasUniforms := p.UniformBlock()

	for g := 0; g <= p.MaxGroup(); g++ {
		if hasUniforms && g == block.Group {
			offset, err := b.uploadUniforms(prog)
			if err != nil {
				b.fail(err)
				return false
			}
			pass.SetBindGroup(uint32(g), prog.bindings.StaticBindGroup(g), []uint32{offset})
			continue
		}

		bg, err := b.imageBindGroup(prog, g, storage)
		if err != nil {
			b.fail(fmt.Errorf("webgpu: program %q group %d: %w", p.PipelineKey(), g, err))
			return false
		}
		pass.SetBindGroup(uint32(g), bg, nil)
	}
	return true
}

// groupResources lists the texture resources of one group with the image bound to each.
func (b *wgpuRendererBackendImpl) groupResources(p pipeline.Pipeline, group int, storage map[int]renderer.ImageHandle) ([]pipeline.ResourceBinding, []renderer.ImageHandle, error) {
	var bindings []pipeline.ResourceBinding
	var images []renderer.ImageHandle

	for _, rb := range p.StorageTextureBindings() {
		if rb.Group != group {
			continue
		}
		h, ok := storage[rb.Unit]
		if !ok {
			return nil, nil, fmt.Errorf("no image for storage unit %d", rb.Unit)
		}
		bindings = append(bindings, rb)
		images = append(images, h)
	}
	for _, rb := range p.TextureBindings() {
		if rb.Group != group {
			continue
		}
		h, ok := b.textures[uint32(rb.Unit)]
		if !ok {
			return nil, nil, fmt.Errorf("no texture bound to unit %d", rb.Unit)
		}
		bindings = append(bindings, rb)
		images = append(images, h)
	}
	if len(images) > bind_group_provider.MaxImagesPerGroup {
		return nil, nil, fmt.Errorf("%d images in one group", len(images))
	}
	return bindings, images, nil
}

func (b *wgpuRendererBackendImpl) imageBindGroup(prog *program, group int, storage map[int]renderer.ImageHandle) (*wgpu.BindGroup, error) {
	p := prog.pipeline
	bindings, images, err := b.groupResources(p, group, storage)
	if err != nil {
		return nil, err
	}

	key := bind_group_provider.BindGroupKey{Group: group}
	copy(key.Images[:], images)
	if bg, ok := prog.bindings.BindGroup(key); ok {
		return bg, nil
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(bindings))
	var first *image
	for i, rb := range bindings {
		img := b.images[images[i]]
		if img == nil {
			return nil, fmt.Errorf("unknown image %d", images[i])
		}
		if first == nil {
			first = img
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: rb.Binding, TextureView: img.view})
	}
	for _, rb := range p.SamplerBindings() {
		if rb.Group != group {
			continue
		}
		if first == nil {
			return nil, fmt.Errorf("sampler %d has no image to take settings from", rb.Binding)
		}
		samp, err := b.imageSampler(first)
		if err != nil {
			return nil, err
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: rb.Binding, Sampler: samp})
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s group %d", p.PipelineKey(), group),
		Layout:  prog.bindings.BindGroupLayout(group),
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	prog.bindings.SetBindGroup(key, bg)
	return bg, nil
}
