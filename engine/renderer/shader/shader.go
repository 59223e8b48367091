package shader

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/log"

	"github.com/cogentcore/webgpu/wgpu"
)

var logger = log.New("shader")

// UniformField is one member of a uniform struct with its byte offset per the WGSL layout rules.
type UniformField struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
}

// UniformBlock is a var<uniform> declaration and the layout of the struct it binds.
type UniformBlock struct {
	Group   int
	Binding int
	Var     string
	Type    string
	Size    uint64
	Fields  []UniformField
}

// Field returns the member with the given name.
func (b UniformBlock) Field(name string) (UniformField, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return UniformField{}, false
}

// shader is the implementation of the Shader interface.
// It holds the reflected WGSL metadata a backend needs to build pipelines and bind groups.
type shader struct {
	key                        string
	source                     string
	stage                      renderer.ShaderStage
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	uniformBlocks              []UniformBlock
	vertexLayouts              map[int][]wgpu.VertexBufferLayout
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
	spirv                      []byte
}

// Shader is a validated and reflected WGSL stage. It exposes the entry point, bind group
// layouts, uniform struct layouts, vertex buffer layouts and workgroup size.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for labels and diagnostics.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// Stage returns the pipeline stage the shader was built for.
	//
	// Returns:
	//   - renderer.ShaderStage: the stage
	Stage() renderer.ShaderStage

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a given group and variable name.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable name was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// BindGroupVarNames retrieves all variable names keyed by group and binding index.
	BindGroupVarNames() map[int]map[int]string

	// UniformBlocks returns every var<uniform> declaration with a resolvable struct layout,
	// ordered by group and binding.
	UniformBlocks() []UniformBlock

	// VertexLayout retrieves the vertex buffer layout for a specific key.
	//
	// Parameters:
	//   - key: the integer key identifying the vertex layout
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layout, or nil if not set
	VertexLayout(key int) []wgpu.VertexBufferLayout

	// VertexLayouts retrieves all vertex buffer layouts associated with this shader.
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// EntryPoint returns the entry point name for this shader.
	EntryPoint() string

	// WorkgroupSize returns the workgroup size for compute shaders.
	// Returns [0, 0, 0] for non-compute shaders and [1, 1, 1] when @workgroup_size is absent.
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor built from the WGSL source.
	Module() *wgpu.ShaderModuleDescriptor

	// SPIRV returns the SPIR-V produced while validating the source, or nil when the
	// validator could not translate a feature the source uses.
	SPIRV() []byte
}

var _ Shader = &shader{}

// NewShader validates a WGSL stage and reflects its layouts.
//
// Parameters:
//   - key: a unique identifier for the shader, used for labels and diagnostics
//   - stage: the stage the source is written for
//   - source: the WGSL source
//
// Returns:
//   - Shader: the reflected shader
//   - error: a *renderer.ShaderCompileError if validation fails or the entry point is missing
func NewShader(key string, stage renderer.ShaderStage, source string) (Shader, error) {
	s := &shader{
		key:                        key,
		source:                     source,
		stage:                      stage,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
		vertexLayouts:              make(map[int][]wgpu.VertexBufferLayout),
	}

	spirv, err := Validate(key, stage, source)
	if err != nil {
		return nil, err
	}
	s.spirv = spirv

	s.module = &wgpu.ShaderModuleDescriptor{
		Label: key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	}
	s.entryPoint = parseEntryPoint(source, stage)
	if s.entryPoint == "" {
		return nil, &renderer.ShaderCompileError{
			Program: key,
			Stage:   stage,
			Log:     fmt.Sprintf("no @%s entry point", stageAttribute(stage)),
		}
	}

	var visibility wgpu.ShaderStage
	switch stage {
	case renderer.ShaderStageVertex:
		visibility = wgpu.ShaderStageVertex
		s.vertexLayouts = parseVertexLayouts(source)
	case renderer.ShaderStageFragment:
		visibility = wgpu.ShaderStageFragment
	case renderer.ShaderStageCompute:
		visibility = wgpu.ShaderStageCompute
		s.workGroupSize = parseWorkgroupSize(source)
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames, s.uniformBlocks = parseBindGroupLayouts(source, visibility)
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Stage() renderer.ShaderStage {
	return s.stage
}

func (s *shader) VertexLayout(key int) []wgpu.VertexBufferLayout {
	return s.vertexLayouts[key]
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) BindGroupVarNames() map[int]map[int]string {
	return s.bindingVarNames
}

func (s *shader) UniformBlocks() []UniformBlock {
	return s.uniformBlocks
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) SPIRV() []byte {
	return s.spirv
}

// Groups returns the declared group indices of a shader in ascending order.
//
// Parameters:
//   - s: the shader
//
// Returns:
//   - []int: the group indices
func Groups(s Shader) []int {
	groups := make([]int, 0, len(s.BindGroupLayoutDescriptors()))
	for g := range s.BindGroupLayoutDescriptors() {
		groups = append(groups, g)
	}
	sort.Ints(groups)
	return groups
}

func stageAttribute(stage renderer.ShaderStage) string {
	switch stage {
	case renderer.ShaderStageVertex:
		return "vertex"
	case renderer.ShaderStageFragment:
		return "fragment"
	}
	return "compute"
}
