package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// ErrUnknownUniform is returned by SetUniform when the uniform block has no member of that name.
var ErrUnknownUniform = errors.New("pipeline: unknown uniform")

// ResourceBinding locates a texture resource in a pipeline's bind groups. Unit is the
// position of the resource among the pipeline's resources of the same kind, ordered by
// group and binding, and matches the texture unit used in renderer commands.
type ResourceBinding struct {
	Group   int
	Binding uint32
	Unit    int
}

// pipeline is the implementation of the Pipeline interface.
// It holds a program's reflected shaders, the GPU pipeline objects created for it and the
// staging bytes of its uniform block.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	shaders map[renderer.ShaderStage]shader.Shader

	// layouts is the merged bind group layout of all stages, keyed by group
	layouts      map[int]wgpu.BindGroupLayoutDescriptor
	uniform      *shader.UniformBlock
	uniformData  []byte
	textures     []ResourceBinding
	storage      []ResourceBinding
	samplers     []ResourceBinding
	maxGroup     int
	vertexLayout []wgpu.VertexBufferLayout

	// render pipelines are created per topology on first use
	renderPipelines map[renderer.Topology]*wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline
	pipelineLayout  *wgpu.PipelineLayout

	depthTestEnabled  bool
	depthWriteEnabled bool
	cullMode          wgpu.CullMode
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
}

// Pipeline is a compiled program as the WebGPU backend sees it: the reflected stages, the
// bind group layouts they declare, the uniform values staged for the next command and the
// GPU pipeline objects built from them.
type Pipeline interface {
	// Type returns whether this is a render or a compute pipeline.
	Type() PipelineType

	// PipelineKey returns the program name used for labels and diagnostics.
	PipelineKey() string

	// Shader retrieves the shader for a stage, or nil if the pipeline has none.
	//
	// Parameters:
	//   - stage: the pipeline stage
	//
	// Returns:
	//   - shader.Shader: the shader, or nil
	Shader(stage renderer.ShaderStage) shader.Shader

	// BindGroupLayoutDescriptors returns the merged layouts of all stages keyed by group.
	// The uniform buffer entry is marked as using a dynamic offset.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// MaxGroup returns the highest declared group index, or -1 if the pipeline binds nothing.
	MaxGroup() int

	// UniformBlock returns the pipeline's uniform block, if it declares one.
	//
	// Returns:
	//   - shader.UniformBlock: the block
	//   - bool: false if the pipeline has no uniforms
	UniformBlock() (shader.UniformBlock, bool)

	// SetUniform packs a value into the staged uniform block at the member's offset.
	//
	// Parameters:
	//   - u: the uniform to stage
	//
	// Returns:
	//   - error: ErrUnknownUniform if no member has the uniform's name or size
	SetUniform(u renderer.Uniform) error

	// UniformData returns the staged uniform block bytes. The slice is reused between calls.
	UniformData() []byte

	// TextureBindings returns the sampled textures in unit order.
	TextureBindings() []ResourceBinding

	// StorageTextureBindings returns the storage textures in unit order.
	StorageTextureBindings() []ResourceBinding

	// SamplerBindings returns the samplers in unit order.
	SamplerBindings() []ResourceBinding

	// VertexBufferLayouts returns the vertex buffer layouts of the vertex stage.
	VertexBufferLayouts() []wgpu.VertexBufferLayout

	// RenderPipeline returns the render pipeline created for a topology, or nil.
	RenderPipeline(topology renderer.Topology) *wgpu.RenderPipeline

	// SetRenderPipeline stores the render pipeline created for a topology.
	SetRenderPipeline(topology renderer.Topology, p *wgpu.RenderPipeline)

	// ComputePipeline returns the compute pipeline, or nil.
	ComputePipeline() *wgpu.ComputePipeline

	// SetComputePipeline stores the compute pipeline.
	SetComputePipeline(p *wgpu.ComputePipeline)

	// PipelineLayout returns the pipeline layout shared by every GPU pipeline of the program.
	PipelineLayout() *wgpu.PipelineLayout

	// SetPipelineLayout stores the pipeline layout.
	SetPipelineLayout(layout *wgpu.PipelineLayout)

	// DepthTestEnabled returns whether fragments are depth tested.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether fragments write depth.
	DepthWriteEnabled() bool

	// CullMode returns the face culling mode.
	CullMode() wgpu.CullMode

	// FrontFace returns the front face winding order.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask.
	WriteMask() wgpu.ColorWriteMask

	// Release frees the GPU pipeline objects. Bind group layouts are owned by the caller.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline builds a Pipeline from reflected shaders. A render pipeline needs a vertex
// and a fragment shader and a compute pipeline a compute shader.
//
// Parameters:
//   - pipelineKey: the program name
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the pipeline
//   - error: an error if required shaders are missing or the layout is unsupported
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) (Pipeline, error) {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		shaders:           make(map[renderer.ShaderStage]shader.Shader),
		renderPipelines:   make(map[renderer.Topology]*wgpu.RenderPipeline),
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          wgpu.CullModeNone,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		maxGroup:          -1,
	}
	for _, opt := range opts {
		opt(p)
	}

	var stages []renderer.ShaderStage
	switch pipelineType {
	case PipelineTypeRender:
		stages = []renderer.ShaderStage{renderer.ShaderStageVertex, renderer.ShaderStageFragment}
	case PipelineTypeCompute:
		stages = []renderer.ShaderStage{renderer.ShaderStageCompute}
	}
	for _, stage := range stages {
		if p.shaders[stage] == nil {
			return nil, fmt.Errorf("pipeline %q: missing %s shader", pipelineKey, stage)
		}
	}

	descriptors := make([]map[int]wgpu.BindGroupLayoutDescriptor, 0, len(stages))
	for _, stage := range stages {
		s := p.shaders[stage]
		descriptors = append(descriptors, s.BindGroupLayoutDescriptors())
		for _, block := range s.UniformBlocks() {
			if p.uniform == nil {
				b := block
				p.uniform = &b
				continue
			}
			if block.Group != p.uniform.Group || block.Binding != p.uniform.Binding {
				return nil, fmt.Errorf("pipeline %q: only one uniform block is supported, found %s and %s", pipelineKey, p.uniform.Var, block.Var)
			}
		}
	}
	if vs := p.shaders[renderer.ShaderStageVertex]; vs != nil {
		for i := 0; i < len(vs.VertexLayouts()); i++ {
			p.vertexLayout = append(p.vertexLayout, vs.VertexLayout(i)...)
		}
	}

	p.layouts = MergeBindGroupLayouts(descriptors...)
	if p.uniform != nil {
		if err := p.markDynamicUniform(); err != nil {
			return nil, err
		}
		p.uniformData = make([]byte, p.uniform.Size)
	}
	p.collectResources()
	return p, nil
}

// markDynamicUniform flags the uniform entry for dynamic offsets. The uniform must be the
// only entry of its group so its bind group can be shared by every command.
func (p *pipeline) markDynamicUniform() error {
	desc := p.layouts[p.uniform.Group]
	if len(desc.Entries) != 1 {
		return fmt.Errorf("pipeline %q: uniform %s must be alone in group %d", p.pipelineKey, p.uniform.Var, p.uniform.Group)
	}
	entries := append([]wgpu.BindGroupLayoutEntry(nil), desc.Entries...)
	entries[0].Buffer.HasDynamicOffset = true
	entries[0].Buffer.MinBindingSize = p.uniform.Size
	desc.Entries = entries
	p.layouts[p.uniform.Group] = desc
	return nil
}

func (p *pipeline) collectResources() {
	groups := make([]int, 0, len(p.layouts))
	for g := range p.layouts {
		groups = append(groups, g)
	}
	sort.Ints(groups)

	for _, g := range groups {
		if g > p.maxGroup {
			p.maxGroup = g
		}
		for _, e := range p.layouts[g].Entries {
			switch {
			case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
				p.textures = append(p.textures, ResourceBinding{Group: g, Binding: e.Binding, Unit: len(p.textures)})
			case e.StorageTexture.Format != wgpu.TextureFormatUndefined:
				p.storage = append(p.storage, ResourceBinding{Group: g, Binding: e.Binding, Unit: len(p.storage)})
			case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
				p.samplers = append(p.samplers, ResourceBinding{Group: g, Binding: e.Binding, Unit: len(p.samplers)})
			}
		}
	}
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(stage renderer.ShaderStage) shader.Shader {
	return p.shaders[stage]
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return p.layouts
}

func (p *pipeline) MaxGroup() int {
	return p.maxGroup
}

func (p *pipeline) UniformBlock() (shader.UniformBlock, bool) {
	if p.uniform == nil {
		return shader.UniformBlock{}, false
	}
	return *p.uniform, true
}

func (p *pipeline) SetUniform(u renderer.Uniform) error {
	if p.uniform == nil {
		return fmt.Errorf("%w: %s has no uniform block for %q", ErrUnknownUniform, p.pipelineKey, u.Name)
	}
	field, ok := p.uniform.Field(u.Name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownUniform, p.uniform.Type, u.Name)
	}
	data := common.SliceToBytes(u.Floats())
	if uint64(len(data)) != field.Size {
		return fmt.Errorf("%w: %s.%s is %d bytes, got %d", ErrUnknownUniform, p.uniform.Type, u.Name, field.Size, len(data))
	}
	copy(p.uniformData[field.Offset:], data)
	return nil
}

func (p *pipeline) UniformData() []byte {
	return p.uniformData
}

func (p *pipeline) TextureBindings() []ResourceBinding {
	return p.textures
}

func (p *pipeline) StorageTextureBindings() []ResourceBinding {
	return p.storage
}

func (p *pipeline) SamplerBindings() []ResourceBinding {
	return p.samplers
}

func (p *pipeline) VertexBufferLayouts() []wgpu.VertexBufferLayout {
	return p.vertexLayout
}

func (p *pipeline) RenderPipeline(topology renderer.Topology) *wgpu.RenderPipeline {
	return p.renderPipelines[topology]
}

func (p *pipeline) SetRenderPipeline(topology renderer.Topology, rp *wgpu.RenderPipeline) {
	p.renderPipelines[topology] = rp
}

func (p *pipeline) ComputePipeline() *wgpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) PipelineLayout() *wgpu.PipelineLayout {
	return p.pipelineLayout
}

func (p *pipeline) SetPipelineLayout(layout *wgpu.PipelineLayout) {
	p.pipelineLayout = layout
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) Release() {
	for topology, rp := range p.renderPipelines {
		if rp != nil {
			rp.Release()
		}
		delete(p.renderPipelines, topology)
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
}

// WGPUTopology converts a renderer topology to the WebGPU primitive topology.
//
// Parameters:
//   - t: the renderer topology
//
// Returns:
//   - wgpu.PrimitiveTopology: the matching WebGPU topology
func WGPUTopology(t renderer.Topology) wgpu.PrimitiveTopology {
	if t == renderer.TopologyTriangleStrip {
		return wgpu.PrimitiveTopologyTriangleStrip
	}
	return wgpu.PrimitiveTopologyTriangleList
}

// MergeBindGroupLayouts combines the bind group layouts of several stages into the set
// used for one pipeline layout.
//
// For each group index present in any stage:
//   - Entries with the same binding number have their Visibility flags ORed together
//   - Entries unique to one stage are included with their original visibility
//
// Parameters:
//   - stageLayouts: bind group layout descriptors of each stage
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func MergeBindGroupLayouts(stageLayouts ...map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	byGroup := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	for _, layouts := range stageLayouts {
		for g, desc := range layouts {
			if byGroup[g] == nil {
				byGroup[g] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, e := range desc.Entries {
				if existing, ok := byGroup[g][e.Binding]; ok {
					existing.Visibility |= e.Visibility
					byGroup[g][e.Binding] = existing
				} else {
					byGroup[g][e.Binding] = e
				}
			}
		}
	}

	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(byGroup))
	for g, entryMap := range byGroup {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
		for _, e := range entryMap {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		merged[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return merged
}
