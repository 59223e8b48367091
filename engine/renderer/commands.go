package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ProgramHandle identifies a compiled program inside a backend.
type ProgramHandle uint32

// GeometryHandle identifies an uploaded vertex buffer inside a backend.
type GeometryHandle uint32

// NoGeometry draws without a vertex buffer; the vertex shader generates positions from the vertex index.
const NoGeometry GeometryHandle = 0

// ImageHandle identifies a 2D image inside a backend.
type ImageHandle uint32

// ShaderStage is the pipeline stage a shader source is compiled for.
type ShaderStage int

const (
	// ShaderStageVertex is the vertex stage of a render program.
	ShaderStageVertex ShaderStage = iota

	// ShaderStageFragment is the fragment stage of a render program.
	ShaderStageFragment

	// ShaderStageCompute is the single stage of a compute program.
	ShaderStageCompute
)

// String returns the stage name.
func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	case ShaderStageCompute:
		return "compute"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// ShaderLanguage is the source language a backend compiles.
type ShaderLanguage int

const (
	// ShaderLanguageGLSL is GLSL 4.30 core.
	ShaderLanguageGLSL ShaderLanguage = iota

	// ShaderLanguageWGSL is the WebGPU shading language.
	ShaderLanguageWGSL
)

// String returns the directory name shader sources for the language live under.
func (l ShaderLanguage) String() string {
	switch l {
	case ShaderLanguageGLSL:
		return "glsl"
	case ShaderLanguageWGSL:
		return "wgsl"
	}
	return fmt.Sprintf("language(%d)", int(l))
}

// ProgramDesc describes a program to compile: a name for diagnostics and one source per stage.
type ProgramDesc struct {
	Name   string
	Stages map[ShaderStage]string
}

// IsCompute reports whether the program is a compute program.
func (d ProgramDesc) IsCompute() bool {
	_, ok := d.Stages[ShaderStageCompute]
	return ok
}

// Topology is the primitive topology of a draw.
type Topology int

const (
	// TopologyTriangleList draws independent triangles from every three vertices.
	TopologyTriangleList Topology = iota

	// TopologyTriangleStrip draws a strip where each vertex after the second forms a triangle.
	TopologyTriangleStrip
)

// String returns the topology name.
func (t Topology) String() string {
	switch t {
	case TopologyTriangleList:
		return "triangle-list"
	case TopologyTriangleStrip:
		return "triangle-strip"
	}
	return fmt.Sprintf("topology(%d)", int(t))
}

// Barrier scopes a memory barrier.
type Barrier int

const (
	// BarrierShaderImageAccess makes image stores from earlier dispatches visible to later
	// image loads and texture fetches.
	BarrierShaderImageAccess Barrier = iota
)

// String returns the barrier name.
func (b Barrier) String() string {
	if b == BarrierShaderImageAccess {
		return "shader-image-access"
	}
	return fmt.Sprintf("barrier(%d)", int(b))
}

// ImageFormat is the texel format of an image.
type ImageFormat int

const (
	// FormatRGBA32F is four 32-bit float channels.
	FormatRGBA32F ImageFormat = iota
)

// ImageFilter is the filter used when an image is sampled.
type ImageFilter int

const (
	// FilterLinear interpolates between texels.
	FilterLinear ImageFilter = iota

	// FilterNearest picks the closest texel.
	FilterNearest
)

// ImageWrap is the addressing mode for coordinates outside [0, 1].
type ImageWrap int

const (
	// WrapClampToEdge clamps to the border texels.
	WrapClampToEdge ImageWrap = iota

	// WrapRepeat tiles the image.
	WrapRepeat
)

// ImageConfig describes an image created by RendererBackend.CreateImage.
type ImageConfig struct {
	Width  int
	Height int
	Format ImageFormat
	Filter ImageFilter
	Wrap   ImageWrap
}

// VertexAttribute is one float attribute inside an interleaved vertex.
type VertexAttribute struct {
	// Location is the shader input location.
	Location uint32

	// Components is the number of float components (1 to 4).
	Components int

	// Offset is the attribute offset in floats from the start of the vertex.
	Offset int
}

// VertexLayout describes interleaved float vertex data.
type VertexLayout struct {
	// Stride is the vertex size in floats.
	Stride     int
	Attributes []VertexAttribute
}

// PositionNormalLayout is the layout produced by the mesh loader: position at location 0 and
// normal at location 1, six floats per vertex.
var PositionNormalLayout = VertexLayout{
	Stride: 6,
	Attributes: []VertexAttribute{
		{Location: 0, Components: 3, Offset: 0},
		{Location: 1, Components: 3, Offset: 3},
	},
}

// UniformKind is the type of a uniform value.
type UniformKind int

const (
	// UniformVec3 is a vec3 of floats.
	UniformVec3 UniformKind = iota

	// UniformMat4 is a column-major 4x4 float matrix.
	UniformMat4
)

// Uniform is a named value set on a program. Only the field matching Kind is meaningful.
type Uniform struct {
	Name string
	Kind UniformKind
	Vec3 mgl32.Vec3
	Mat4 mgl32.Mat4
}

// Vec3Uniform builds a vec3 uniform.
func Vec3Uniform(name string, v mgl32.Vec3) Uniform {
	return Uniform{Name: name, Kind: UniformVec3, Vec3: v}
}

// Mat4Uniform builds a mat4 uniform.
func Mat4Uniform(name string, m mgl32.Mat4) Uniform {
	return Uniform{Name: name, Kind: UniformMat4, Mat4: m}
}

// Floats returns the uniform's value as a flat float slice.
func (u Uniform) Floats() []float32 {
	if u.Kind == UniformMat4 {
		return u.Mat4[:]
	}
	return u.Vec3[:]
}

// String formats the uniform for diagnostics.
func (u Uniform) String() string {
	if u.Kind == UniformMat4 {
		return fmt.Sprintf("%s=mat4", u.Name)
	}
	return fmt.Sprintf("%s=(%.3f, %.3f, %.3f)", u.Name, u.Vec3[0], u.Vec3[1], u.Vec3[2])
}

// DispatchCommand launches a compute program over a grid of work groups, with the image bound
// as the program's write-only storage image.
type DispatchCommand struct {
	Program ProgramHandle
	Image   ImageHandle
	Groups  [3]uint32
}

// TextureBinding binds an image as a sampled texture on a texture unit.
type TextureBinding struct {
	Unit  uint32
	Image ImageHandle
}

// DrawCommand issues a non-indexed draw.
type DrawCommand struct {
	Program  ProgramHandle
	Geometry GeometryHandle
	Topology Topology
	First    int32
	Count    int32
}

// CommandEncoder is the explicit GPU state that frame strategies record into. Every call names
// the program, image or geometry it uses, so no binding state carries over between calls.
// Errors are sticky and reported by RendererBackend.Present.
type CommandEncoder interface {
	// SetUniforms sets named uniform values on a program.
	SetUniforms(program ProgramHandle, uniforms ...Uniform)

	// Dispatch launches a compute program.
	Dispatch(cmd DispatchCommand)

	// MemoryBarrier blocks later commands until earlier writes in the barrier scope are visible.
	MemoryBarrier(barrier Barrier)

	// BindTexture binds an image for sampling by later draws.
	BindTexture(binding TextureBinding)

	// Draw issues a draw call.
	Draw(cmd DrawCommand)
}
