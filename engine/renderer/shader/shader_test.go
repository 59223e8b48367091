package shader

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/assets"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"

	"github.com/cogentcore/webgpu/wgpu"
)

func wgslSource(t *testing.T, program string, stage renderer.ShaderStage) string {
	t.Helper()
	src, err := assets.Shader(renderer.ShaderLanguageWGSL.String(), renderer.ShaderFileName(renderer.ShaderLanguageWGSL, program, stage))
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func TestCameraUniformLayout(t *testing.T) {
	src := wgslSource(t, renderer.ProgramPathTracer, renderer.ShaderStageCompute)
	_, _, blocks := parseBindGroupLayouts(src, wgpu.ShaderStageCompute)
	if len(blocks) != 1 {
		t.Fatalf("got %d uniform blocks, want 1", len(blocks))
	}
	camera := blocks[0]
	if camera.Var != "camera" || camera.Type != "Camera" || camera.Group != 0 || camera.Binding != 0 {
		t.Errorf("block = %+v", camera)
	}
	if camera.Size != 80 {
		t.Errorf("size = %d, want 80", camera.Size)
	}
	for name, want := range map[string]uint64{"eye": 0, "ray00": 16, "ray10": 32, "ray01": 48, "ray11": 64} {
		f, ok := camera.Field(name)
		if !ok {
			t.Errorf("missing field %s", name)
			continue
		}
		if f.Offset != want || f.Size != 12 {
			t.Errorf("%s at %d size %d, want %d size 12", name, f.Offset, f.Size, want)
		}
	}
}

func TestPathTracerBindings(t *testing.T) {
	src := wgslSource(t, renderer.ProgramPathTracer, renderer.ShaderStageCompute)
	layouts, names, _ := parseBindGroupLayouts(src, wgpu.ShaderStageCompute)
	if len(layouts) != 2 {
		t.Fatalf("got %d groups, want 2", len(layouts))
	}

	uniform := layouts[0].Entries[0]
	if uniform.Buffer.Type != wgpu.BufferBindingTypeUniform || uniform.Buffer.MinBindingSize != 80 {
		t.Errorf("group 0 entry = %+v", uniform.Buffer)
	}

	image := layouts[1].Entries[0]
	if image.StorageTexture.Format != wgpu.TextureFormatRGBA32Float {
		t.Errorf("format = %v, want rgba32float", image.StorageTexture.Format)
	}
	if image.StorageTexture.Access != wgpu.StorageTextureAccessWriteOnly {
		t.Errorf("access = %v, want write-only", image.StorageTexture.Access)
	}
	if image.Visibility != wgpu.ShaderStageCompute {
		t.Errorf("visibility = %v", image.Visibility)
	}
	if names[1][0] != "framebuffer" {
		t.Errorf("group 1 binding 0 = %q, want framebuffer", names[1][0])
	}

	if got := parseWorkgroupSize(src); got != [3]uint32{1, 1, 1} {
		t.Errorf("workgroup size = %v, want [1 1 1]", got)
	}
	if got := parseEntryPoint(src, renderer.ShaderStageCompute); got != "cs_main" {
		t.Errorf("entry point = %q", got)
	}
}

func TestScreenTextureIsUnfilterable(t *testing.T) {
	src := wgslSource(t, renderer.ProgramScreen, renderer.ShaderStageFragment)
	layouts, _, _ := parseBindGroupLayouts(src, wgpu.ShaderStageFragment)
	entry := layouts[0].Entries[0]
	if entry.Texture.SampleType != wgpu.TextureSampleTypeUnfilterableFloat {
		t.Errorf("sample type = %v, want unfilterable float", entry.Texture.SampleType)
	}

	withSampler := src + "\n@group(0) @binding(1) var smp: sampler;\n"
	layouts, _, _ = parseBindGroupLayouts(withSampler, wgpu.ShaderStageFragment)
	if got := layouts[0].Entries[0].Texture.SampleType; got != wgpu.TextureSampleTypeFloat {
		t.Errorf("sample type with a filtering sampler = %v, want float", got)
	}
}

func TestGeometryVertexLayout(t *testing.T) {
	src := wgslSource(t, renderer.ProgramGeometry, renderer.ShaderStageVertex)
	layouts := parseVertexLayouts(src)
	if len(layouts) != 1 {
		t.Fatalf("got %d vertex layouts, want 1", len(layouts))
	}
	layout := layouts[0][0]
	if layout.ArrayStride != 24 {
		t.Errorf("stride = %d, want 24", layout.ArrayStride)
	}
	if len(layout.Attributes) != 2 || layout.Attributes[1].Offset != 12 || layout.Attributes[1].ShaderLocation != 1 {
		t.Errorf("attributes = %+v", layout.Attributes)
	}
}

func TestStructLayoutRules(t *testing.T) {
	src := `
struct Inner {
    a: f32,
    b: vec3<f32>,
}
struct Outer {
    flag: u32,
    inner: Inner,
    list: array<vec2<f32>, 3>,
    tail: f32,
}
@group(2) @binding(1) var<uniform> outer: Outer;
`
	_, _, blocks := parseBindGroupLayouts(src, wgpu.ShaderStageVertex)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	tests := []struct {
		field  string
		offset uint64
		size   uint64
	}{
		{"flag", 0, 4},
		{"inner", 16, 32},
		{"list", 48, 24},
		{"tail", 72, 4},
	}
	for _, tt := range tests {
		f, _ := blocks[0].Field(tt.field)
		if f.Offset != tt.offset || f.Size != tt.size {
			t.Errorf("%s: offset %d size %d, want %d %d", tt.field, f.Offset, f.Size, tt.offset, tt.size)
		}
	}
	if blocks[0].Size != 80 {
		t.Errorf("size = %d, want 80", blocks[0].Size)
	}
}

func TestCommentsAreIgnored(t *testing.T) {
	src := `
// @compute fn not_this() {}
/* @group(3) @binding(0) var<uniform> hidden: f32; /* nested */ */
@compute @workgroup_size(8, 4)
fn real_main() {}
`
	if got := parseEntryPoint(src, renderer.ShaderStageCompute); got != "real_main" {
		t.Errorf("entry point = %q, want real_main", got)
	}
	if got := parseWorkgroupSize(src); got != [3]uint32{8, 4, 1} {
		t.Errorf("workgroup size = %v, want [8 4 1]", got)
	}
	if layouts, _, _ := parseBindGroupLayouts(src, wgpu.ShaderStageCompute); len(layouts) != 0 {
		t.Errorf("commented binding was reflected: %v", layouts)
	}
}

const solidFragment = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.5, 0.25, 1.0);
}
`

func TestNewShaderValidates(t *testing.T) {
	s, err := NewShader("solid", renderer.ShaderStageFragment, solidFragment)
	if err != nil {
		t.Fatal(err)
	}
	if s.EntryPoint() != "fs_main" || s.Stage() != renderer.ShaderStageFragment {
		t.Errorf("entry %q stage %s", s.EntryPoint(), s.Stage())
	}
	if s.Module().WGSLDescriptor.Code != solidFragment {
		t.Error("module does not carry the source")
	}
	if spirv := s.SPIRV(); spirv != nil && binary.LittleEndian.Uint32(spirv) != SPIRVMagic {
		t.Errorf("SPIR-V magic = %#x", binary.LittleEndian.Uint32(spirv))
	}
}

func TestNewShaderMissingEntryPoint(t *testing.T) {
	_, err := NewShader("solid", renderer.ShaderStageCompute, solidFragment)
	var compileErr *renderer.ShaderCompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("err = %v, want ShaderCompileError", err)
	}
	if compileErr.Stage != renderer.ShaderStageCompute || compileErr.Program != "solid" {
		t.Errorf("err = %+v", compileErr)
	}
}

func TestValidateRejectsBrokenSource(t *testing.T) {
	_, err := Validate("broken", renderer.ShaderStageFragment, "fn broken( {")
	var compileErr *renderer.ShaderCompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("err = %v, want ShaderCompileError", err)
	}
	if compileErr.Log == "" {
		t.Error("empty diagnostic")
	}
}

func TestBuiltinShadersValidate(t *testing.T) {
	for _, program := range []string{renderer.ProgramGeometry, renderer.ProgramPathTracer, renderer.ProgramScreen} {
		stages := []renderer.ShaderStage{renderer.ShaderStageVertex, renderer.ShaderStageFragment}
		if program == renderer.ProgramPathTracer {
			stages = []renderer.ShaderStage{renderer.ShaderStageCompute}
		}
		for _, stage := range stages {
			src := wgslSource(t, program, stage)
			spirv, err := Validate(program, stage, src)
			if err != nil {
				t.Errorf("%s %s: %v", program, stage, err)
				continue
			}
			if spirv == nil {
				t.Logf("%s %s: validator skipped the source", program, stage)
			}
		}
	}
}

func TestIsValidatorGap(t *testing.T) {
	if !IsValidatorGap(errors.New("ptr<function> parameters: Not Yet Implemented")) {
		t.Error("gap not recognised")
	}
	if IsValidatorGap(errors.New("expected ')', found '{'")) {
		t.Error("syntax error treated as a gap")
	}
}
