package opengl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// stageOrder is the order stages are compiled and attached in.
var stageOrder = []renderer.ShaderStage{
	renderer.ShaderStageVertex,
	renderer.ShaderStageFragment,
	renderer.ShaderStageCompute,
}

// CreateProgram compiles every stage of desc and links them.
//
// Parameters:
//   - desc: the program name and GLSL 430 sources per stage
//
// Returns:
//   - renderer.ProgramHandle: the program handle
//   - error: a *renderer.ShaderCompileError carrying the driver info log on failure
func (b *openglRendererBackendImpl) CreateProgram(desc renderer.ProgramDesc) (renderer.ProgramHandle, error) {
	if err := validateStages(desc); err != nil {
		return 0, err
	}

	var shaders []uint32
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}()

	var last renderer.ShaderStage
	for _, stage := range stageOrder {
		src, ok := desc.Stages[stage]
		if !ok {
			continue
		}
		s, err := compileShader(src, shaderType(stage))
		if err != nil {
			return 0, &renderer.ShaderCompileError{Program: desc.Name, Stage: stage, Log: err.Error()}
		}
		shaders = append(shaders, s)
		last = stage
	}

	id, err := linkProgram(shaders)
	if err != nil {
		return 0, &renderer.ShaderCompileError{Program: desc.Name, Stage: last, Link: true, Log: err.Error()}
	}

	h := renderer.ProgramHandle(b.handle())
	b.programs[h] = &program{
		name:      desc.Name,
		id:        id,
		compute:   desc.IsCompute(),
		locations: make(map[string]int32),
	}
	logger.Debugf("linked program %q (%s)", desc.Name, stageList(desc))
	return h, nil
}

// validateStages rejects stage combinations that cannot form a program.
func validateStages(desc renderer.ProgramDesc) error {
	if len(desc.Stages) == 0 {
		return &renderer.ShaderCompileError{Program: desc.Name, Link: true, Log: "program has no stages"}
	}
	if desc.IsCompute() {
		if len(desc.Stages) != 1 {
			return &renderer.ShaderCompileError{Program: desc.Name, Stage: renderer.ShaderStageCompute, Link: true, Log: "compute stage cannot be linked with other stages"}
		}
		return nil
	}
	for _, stage := range []renderer.ShaderStage{renderer.ShaderStageVertex, renderer.ShaderStageFragment} {
		if _, ok := desc.Stages[stage]; !ok {
			return &renderer.ShaderCompileError{Program: desc.Name, Stage: stage, Link: true, Log: fmt.Sprintf("missing %s stage", stage)}
		}
	}
	return nil
}

// compileShader compiles one shader object and returns the info log as the error on failure.
func compileShader(src string, kind uint32) (uint32, error) {
	shader := gl.CreateShader(kind)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(infoLog))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s", trimInfoLog(infoLog))
	}
	return shader, nil
}

// linkProgram links compiled shader objects into a program.
func linkProgram(shaders []uint32) (uint32, error) {
	prog := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(prog, s)
	}
	gl.LinkProgram(prog)
	for _, s := range shaders {
		gl.DetachShader(prog, s)
	}

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(infoLog))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("%s", trimInfoLog(infoLog))
	}
	return prog, nil
}

// CreateGeometry uploads interleaved float vertices into a new vertex array.
func (b *openglRendererBackendImpl) CreateGeometry(vertices []float32, layout renderer.VertexLayout) (renderer.GeometryHandle, error) {
	count, err := vertexCount(vertices, layout)
	if err != nil {
		return 0, err
	}

	g := &geometry{count: count, layout: layout}
	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)
	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	stride := int32(layout.Stride * 4)
	for _, attr := range layout.Attributes {
		gl.EnableVertexAttribArray(attr.Location)
		gl.VertexAttribPointer(attr.Location, int32(attr.Components), gl.FLOAT, false, stride, gl.PtrOffset(attr.Offset*4))
	}
	gl.BindVertexArray(0)

	if err := glError("create geometry"); err != nil {
		gl.DeleteBuffers(1, &g.vbo)
		gl.DeleteVertexArrays(1, &g.vao)
		return 0, err
	}

	h := renderer.GeometryHandle(b.handle())
	b.geometries[h] = g
	return h, nil
}

// vertexCount validates a layout against the data and returns the number of whole vertices.
func vertexCount(vertices []float32, layout renderer.VertexLayout) (int32, error) {
	if layout.Stride <= 0 {
		return 0, fmt.Errorf("opengl: vertex stride %d must be positive", layout.Stride)
	}
	if len(vertices)%layout.Stride != 0 {
		return 0, fmt.Errorf("opengl: %d floats is not a whole number of %d float vertices", len(vertices), layout.Stride)
	}
	for _, attr := range layout.Attributes {
		if attr.Components < 1 || attr.Components > 4 {
			return 0, fmt.Errorf("opengl: attribute %d has %d components", attr.Location, attr.Components)
		}
		if attr.Offset < 0 || attr.Offset+attr.Components > layout.Stride {
			return 0, fmt.Errorf("opengl: attribute %d does not fit in a %d float vertex", attr.Location, layout.Stride)
		}
	}
	return int32(len(vertices) / layout.Stride), nil
}

// CreateImage allocates an RGBA32F texture with immutable storage.
func (b *openglRendererBackendImpl) CreateImage(cfg renderer.ImageConfig) (renderer.ImageHandle, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, fmt.Errorf("opengl: invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	internal, err := internalFormat(cfg.Format)
	if err != nil {
		return 0, err
	}

	img := &image{cfg: cfg}
	gl.GenTextures(1, &img.texture)
	gl.BindTexture(gl.TEXTURE_2D, img.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, textureFilter(cfg.Filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, textureFilter(cfg.Filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, textureWrap(cfg.Wrap))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, textureWrap(cfg.Wrap))
	gl.TexStorage2D(gl.TEXTURE_2D, 1, internal, int32(cfg.Width), int32(cfg.Height))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if err := glError("create image"); err != nil {
		gl.DeleteTextures(1, &img.texture)
		return 0, err
	}

	h := renderer.ImageHandle(b.handle())
	b.images[h] = img
	return h, nil
}

// ReleaseImage deletes the texture and unbinds it from every unit it was bound to.
func (b *openglRendererBackendImpl) ReleaseImage(handle renderer.ImageHandle) {
	img, ok := b.images[handle]
	if !ok {
		return
	}
	for unit, h := range b.textures {
		if h == handle {
			delete(b.textures, unit)
		}
	}
	gl.DeleteTextures(1, &img.texture)
	delete(b.images, handle)
}

func shaderType(stage renderer.ShaderStage) uint32 {
	switch stage {
	case renderer.ShaderStageFragment:
		return gl.FRAGMENT_SHADER
	case renderer.ShaderStageCompute:
		return gl.COMPUTE_SHADER
	}
	return gl.VERTEX_SHADER
}

func internalFormat(format renderer.ImageFormat) (uint32, error) {
	if format == renderer.FormatRGBA32F {
		return gl.RGBA32F, nil
	}
	return 0, fmt.Errorf("opengl: unsupported image format %d", format)
}

func textureFilter(filter renderer.ImageFilter) int32 {
	if filter == renderer.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func textureWrap(wrap renderer.ImageWrap) int32 {
	if wrap == renderer.WrapRepeat {
		return gl.REPEAT
	}
	return gl.CLAMP_TO_EDGE
}

func glTopology(t renderer.Topology) uint32 {
	if t == renderer.TopologyTriangleStrip {
		return gl.TRIANGLE_STRIP
	}
	return gl.TRIANGLES
}

// trimInfoLog strips the NUL padding and trailing whitespace of a driver info log.
func trimInfoLog(infoLog string) string {
	return strings.TrimSpace(strings.TrimRight(infoLog, "\x00"))
}

// stageList formats the stages of a program for logging.
func stageList(desc renderer.ProgramDesc) string {
	names := make([]string, 0, len(desc.Stages))
	for stage := range desc.Stages {
		names = append(names, stage.String())
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
