package pipeline

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const traceCompute = `
struct Camera {
    eye: vec3<f32>,
    ray00: vec3<f32>,
}

@group(0) @binding(0) var<uniform> camera: Camera;
@group(1) @binding(0) var framebuffer: texture_storage_2d<rgba32float, write>;

@compute @workgroup_size(1)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
    textureStore(framebuffer, vec2<i32>(id.xy), vec4<f32>(camera.eye + camera.ray00, 1.0));
}
`

const quadVertex = `
@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4<f32> {
    let corner = vec2<f32>(f32(index & 1u), f32((index >> 1u) & 1u));
    return vec4<f32>(corner * 2.0 - 1.0, 0.0, 1.0);
}
`

const quadFragment = `
@group(0) @binding(0) var first: texture_2d<f32>;
@group(0) @binding(1) var second: texture_2d<f32>;

@fragment
fn fs_main(@builtin(position) frag: vec4<f32>) -> @location(0) vec4<f32> {
    let p = vec2<i32>(frag.xy);
    return textureLoad(first, p, 0) + textureLoad(second, p, 0);
}
`

func mustShader(t *testing.T, key string, stage renderer.ShaderStage, src string) shader.Shader {
	t.Helper()
	s, err := shader.NewShader(key, stage, src)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestComputePipelineUniforms(t *testing.T) {
	p, err := NewPipeline("trace", PipelineTypeCompute,
		WithShader(mustShader(t, "trace", renderer.ShaderStageCompute, traceCompute)))
	if err != nil {
		t.Fatal(err)
	}

	block, ok := p.UniformBlock()
	if !ok || block.Size != 32 {
		t.Fatalf("uniform block = %+v, %v", block, ok)
	}
	uniform := p.BindGroupLayoutDescriptors()[0].Entries[0]
	if !uniform.Buffer.HasDynamicOffset {
		t.Error("uniform entry is not dynamic")
	}

	if err := p.SetUniform(renderer.Vec3Uniform("ray00", mgl32.Vec3{1, 2, 3})); err != nil {
		t.Fatal(err)
	}
	data := p.UniformData()
	for i, want := range []float32{1, 2, 3} {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[16+4*i:]))
		if got != want {
			t.Errorf("ray00[%d] = %v, want %v", i, got, want)
		}
	}

	if err := p.SetUniform(renderer.Vec3Uniform("missing", mgl32.Vec3{})); !errors.Is(err, ErrUnknownUniform) {
		t.Errorf("err = %v, want ErrUnknownUniform", err)
	}
	if err := p.SetUniform(renderer.Mat4Uniform("eye", mgl32.Ident4())); !errors.Is(err, ErrUnknownUniform) {
		t.Errorf("size mismatch err = %v, want ErrUnknownUniform", err)
	}

	storage := p.StorageTextureBindings()
	if len(storage) != 1 || storage[0].Group != 1 || storage[0].Binding != 0 {
		t.Errorf("storage bindings = %+v", storage)
	}
	if p.MaxGroup() != 1 {
		t.Errorf("max group = %d, want 1", p.MaxGroup())
	}
}

func TestRenderPipelineTextureUnits(t *testing.T) {
	p, err := NewPipeline("screen", PipelineTypeRender,
		WithShader(mustShader(t, "screen", renderer.ShaderStageVertex, quadVertex)),
		WithShader(mustShader(t, "screen", renderer.ShaderStageFragment, quadFragment)),
		WithDepthWriteEnabled(false))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.UniformBlock(); ok {
		t.Error("screen pipeline reports a uniform block")
	}
	if p.DepthWriteEnabled() || !p.DepthTestEnabled() {
		t.Error("depth options not applied")
	}
	textures := p.TextureBindings()
	if len(textures) != 2 || textures[0].Unit != 0 || textures[1].Unit != 1 || textures[1].Binding != 1 {
		t.Errorf("texture bindings = %+v", textures)
	}
	if err := p.SetUniform(renderer.Vec3Uniform("eye", mgl32.Vec3{})); !errors.Is(err, ErrUnknownUniform) {
		t.Errorf("err = %v, want ErrUnknownUniform", err)
	}
}

func TestMissingStage(t *testing.T) {
	_, err := NewPipeline("screen", PipelineTypeRender,
		WithShader(mustShader(t, "screen", renderer.ShaderStageVertex, quadVertex)))
	if err == nil {
		t.Fatal("expected an error for a render pipeline without a fragment shader")
	}
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vertex := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageVertex}}},
	}
	fragment := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 1, Visibility: wgpu.ShaderStageFragment}, {Binding: 0, Visibility: wgpu.ShaderStageFragment}}},
		1: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageFragment}}},
	}
	merged := MergeBindGroupLayouts(vertex, fragment)
	if len(merged) != 2 {
		t.Fatalf("got %d groups, want 2", len(merged))
	}
	entries := merged[0].Entries
	if len(entries) != 2 || entries[0].Binding != 0 || entries[1].Binding != 1 {
		t.Fatalf("group 0 entries = %+v", entries)
	}
	if entries[0].Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Errorf("shared binding visibility = %v", entries[0].Visibility)
	}
}

func TestWGPUTopology(t *testing.T) {
	if WGPUTopology(renderer.TopologyTriangleStrip) != wgpu.PrimitiveTopologyTriangleStrip {
		t.Error("strip")
	}
	if WGPUTopology(renderer.TopologyTriangleList) != wgpu.PrimitiveTopologyTriangleList {
		t.Error("list")
	}
}
