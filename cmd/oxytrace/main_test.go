package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

func TestParseVec3(t *testing.T) {
	v, err := parseVec3(" 1, -2.5 ,3")
	if err != nil {
		t.Fatal(err)
	}
	if v != (mgl32.Vec3{1, -2.5, 3}) {
		t.Errorf("got %v", v)
	}

	for _, bad := range []string{"", "1,2", "1,2,3,4", "1,x,3"} {
		if _, err := parseVec3(bad); err == nil {
			t.Errorf("parseVec3(%q) succeeded", bad)
		}
	}
}

func TestParseMeshArg(t *testing.T) {
	tests := []struct {
		arg     string
		want    meshArg
		wantErr bool
	}{
		{arg: "cube.obj", want: meshArg{path: "cube.obj"}},
		{arg: "cube.obj@1,2,3", want: meshArg{path: "cube.obj", offset: mgl32.Vec3{1, 2, 3}, hasPlace: true}},
		{arg: "a@b.obj@0,0,-4", want: meshArg{path: "a@b.obj", offset: mgl32.Vec3{0, 0, -4}, hasPlace: true}},
		{arg: "@1,2,3", wantErr: true},
		{arg: "cube.obj@1,2", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseMeshArg(tt.arg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseMeshArg(%q) succeeded", tt.arg)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseMeshArg(%q): %v", tt.arg, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseMeshArg(%q) = %+v, want %+v", tt.arg, got, tt.want)
		}
	}
}

func TestLoadMeshesAppliesPlacement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.obj")
	obj := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	if err := os.WriteFile(path, []byte(obj), 0o644); err != nil {
		t.Fatal(err)
	}

	meshes, err := loadMeshes([]string{path, path + "@0,0,-4"})
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 {
		t.Fatalf("got %d meshes, want 2", len(meshes))
	}
	if meshes[0].Position != (mgl32.Vec3{}) {
		t.Errorf("unplaced mesh at %v", meshes[0].Position)
	}
	if meshes[1].Position != (mgl32.Vec3{0, 0, -4}) {
		t.Errorf("placed mesh at %v", meshes[1].Position)
	}
}

func TestLoadMeshesWithoutArguments(t *testing.T) {
	meshes, err := loadMeshes(nil)
	if err != nil || meshes != nil {
		t.Errorf("got %v, %v", meshes, err)
	}
}

func TestTraceCommandsPathTracer(t *testing.T) {
	var out bytes.Buffer
	cfg := traceConfig{width: 64, height: 32, frames: 1}
	if err := traceCommands(&out, cfg, nil); err != nil {
		t.Fatal(err)
	}

	text := out.String()
	for _, want := range []string{"Dispatch", "MemoryBarrier", "Present", "pathtracer"} {
		if !strings.Contains(text, want) {
			t.Errorf("output is missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "rasterizer") {
		t.Errorf("single path traced frame mentions the rasterizer:\n%s", text)
	}
}

func TestTraceCommandsToggle(t *testing.T) {
	var out bytes.Buffer
	mesh := loader.Mesh{Name: "tri", Vertices: make([]float32, 3*loader.FloatsPerVertex)}
	cfg := traceConfig{width: 64, height: 32, frames: 2, toggle: true}
	if err := traceCommands(&out, cfg, []loader.Mesh{mesh}); err != nil {
		t.Fatal(err)
	}

	text := out.String()
	if !strings.Contains(text, "pathtracer") || !strings.Contains(text, "rasterizer") {
		t.Errorf("expected both modes in output:\n%s", text)
	}
	if strings.Count(text, "Present") != 2 {
		t.Errorf("expected one Present per frame:\n%s", text)
	}
}

func TestTraceCommandsRejectsZeroFrames(t *testing.T) {
	cfg := traceConfig{width: 64, height: 32}
	if err := traceCommands(&bytes.Buffer{}, cfg, nil); err == nil {
		t.Error("expected an error for zero frames")
	}
}

func TestTraceCommandsRasterizerMode(t *testing.T) {
	var out bytes.Buffer
	cfg := traceConfig{
		width:   64,
		height:  32,
		frames:  1,
		options: []renderer.RendererBuilderOption{renderer.WithMode(renderer.RenderModeRasterizer)},
	}
	if err := traceCommands(&out, cfg, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "Dispatch") {
		t.Errorf("rasterizer frame dispatched compute work:\n%s", out.String())
	}
}

func TestDescribeShaders(t *testing.T) {
	var out bytes.Buffer
	if err := describeShaders(&out, ""); err != nil {
		t.Fatal(err)
	}

	text := out.String()
	for _, want := range []string{"pathtracer", "cs_main", "1x1x1", "framebuffer", "uniform buffer", "5 stages"} {
		if !strings.Contains(text, want) {
			t.Errorf("output is missing %q:\n%s", want, text)
		}
	}
}

func TestDescribeShadersMissingDirectory(t *testing.T) {
	if err := describeShaders(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing shader directory")
	}
}
