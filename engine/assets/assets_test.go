package assets

import (
	"strings"
	"testing"
)

func TestShaderSourcesContainExpectedContent(t *testing.T) {
	tests := []struct {
		language string
		file     string
		required []string
	}{
		{"glsl", "pathtracer.comp", []string{"#version 430", "local_size_x = 1", "rgba32f", "uniform vec3 eye", "ray00", "ray10", "ray01", "ray11", "imageStore"}},
		{"glsl", "geometry.vert", []string{"uniform mat4 mvp", "layout(location = 0)", "layout(location = 1)"}},
		{"glsl", "geometry.frag", []string{"#version 430"}},
		{"glsl", "screentexture.vert", []string{"gl_VertexID"}},
		{"glsl", "screentexture.frag", []string{"sampler2D"}},
		{"wgsl", "pathtracer.comp.wgsl", []string{"@compute", "@workgroup_size(1, 1, 1)", "var<uniform>", "texture_storage_2d<rgba32float, write>", "ray11"}},
		{"wgsl", "geometry.vert.wgsl", []string{"@vertex", "mvp: mat4x4<f32>", "@location(0) position"}},
		{"wgsl", "geometry.frag.wgsl", []string{"@fragment"}},
		{"wgsl", "screentexture.vert.wgsl", []string{"@vertex", "vertex_index"}},
		{"wgsl", "screentexture.frag.wgsl", []string{"@fragment", "textureLoad"}},
	}

	for _, tt := range tests {
		t.Run(tt.language+"/"+tt.file, func(t *testing.T) {
			src, err := Shader(tt.language, tt.file)
			if err != nil {
				t.Fatalf("Shader(%q, %q) error = %v", tt.language, tt.file, err)
			}
			for _, want := range tt.required {
				if !strings.Contains(src, want) {
					t.Errorf("%s/%s missing %q", tt.language, tt.file, want)
				}
			}
		})
	}
}

func TestShadersListsEveryStage(t *testing.T) {
	for _, language := range []string{"glsl", "wgsl"} {
		names, err := Shaders(language)
		if err != nil {
			t.Fatalf("Shaders(%q) error = %v", language, err)
		}
		if len(names) != 5 {
			t.Errorf("Shaders(%q) = %v, want 5 files", language, names)
		}
	}
}

func TestShaderMissingFile(t *testing.T) {
	if _, err := Shader("glsl", "missing.frag"); err == nil {
		t.Error("expected an error for a missing shader")
	}
}
