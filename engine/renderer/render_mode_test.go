package renderer

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRenderMode(t *testing.T) {
	tests := []struct {
		in   string
		want RenderMode
		err  bool
	}{
		{"pathtracer", RenderModePathTracer, false},
		{" PT ", RenderModePathTracer, false},
		{"raytracer", RenderModePathTracer, false},
		{"Rasterizer", RenderModeRasterizer, false},
		{"raster", RenderModeRasterizer, false},
		{"wireframe", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRenderMode(tt.in)
		if tt.err {
			if !errors.Is(err, ErrUnknownMode) {
				t.Errorf("ParseRenderMode(%q) err = %v, want ErrUnknownMode", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseRenderMode(%q) = %s, %v; want %s", tt.in, got, err, tt.want)
		}
		if back, _ := ParseRenderMode(got.String()); back != got {
			t.Errorf("String() of %s does not parse back", got)
		}
	}
}

func TestParseBackendType(t *testing.T) {
	for name, want := range map[string]RendererBackendType{
		"opengl":   BackendTypeOpenGL,
		"gl":       BackendTypeOpenGL,
		"webgpu":   BackendTypeWGPU,
		"wgpu":     BackendTypeWGPU,
		"recorder": BackendTypeRecorder,
	} {
		got, err := ParseBackendType(name)
		if err != nil || got != want {
			t.Errorf("ParseBackendType(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseBackendType("vulkan"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("err = %v, want ErrUnknownBackend", err)
	}
}

func TestShaderCompileErrorMessage(t *testing.T) {
	err := &ShaderCompileError{Program: "pathtracer", Stage: ShaderStageCompute, Log: "  0:3: syntax error \n"}
	if got := err.Error(); got != `shader "pathtracer": failed to compile compute stage: 0:3: syntax error` {
		t.Errorf("Error() = %q", got)
	}

	link := &ShaderCompileError{Program: "screen", Stage: ShaderStageFragment, Link: true}
	if got := link.Error(); !strings.Contains(got, "failed to link") || !strings.Contains(got, "no diagnostic output") {
		t.Errorf("Error() = %q", got)
	}
}

func TestShaderFileName(t *testing.T) {
	tests := []struct {
		lang    ShaderLanguage
		program string
		stage   ShaderStage
		want    string
	}{
		{ShaderLanguageGLSL, ProgramPathTracer, ShaderStageCompute, "pathtracer.comp"},
		{ShaderLanguageGLSL, ProgramScreen, ShaderStageVertex, "screentexture.vert"},
		{ShaderLanguageWGSL, ProgramGeometry, ShaderStageFragment, "geometry.frag.wgsl"},
	}
	for _, tt := range tests {
		if got := ShaderFileName(tt.lang, tt.program, tt.stage); got != tt.want {
			t.Errorf("ShaderFileName(%s, %s, %s) = %q, want %q", tt.lang, tt.program, tt.stage, got, tt.want)
		}
	}
}

func TestProgramsLoadForBothLanguages(t *testing.T) {
	for _, lang := range []ShaderLanguage{ShaderLanguageGLSL, ShaderLanguageWGSL} {
		for _, name := range BuiltinPrograms() {
			desc, err := LoadProgramDesc(lang, name, "")
			if err != nil {
				t.Fatalf("%s %s: %v", lang, name, err)
			}
			if desc.IsCompute() != (name == ProgramPathTracer) {
				t.Errorf("%s %s: IsCompute = %v", lang, name, desc.IsCompute())
			}
			for stage, src := range desc.Stages {
				if strings.TrimSpace(src) == "" {
					t.Errorf("%s %s %s: empty source", lang, name, stage)
				}
			}
		}
	}
}
