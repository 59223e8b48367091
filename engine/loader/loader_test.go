package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const cubeQuadOBJ = `# single quad with no normals
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOBJQuadIsSplitWithFlatNormals(t *testing.T) {
	l := NewLoader()
	meshes, err := l.LoadReader("quad.obj", strings.NewReader(cubeQuadOBJ), BackendTypeOBJ)
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", len(meshes))
	}

	m := meshes[0]
	if m.Name != "quad" {
		t.Errorf("name = %q, want quad", m.Name)
	}
	if m.VertexCount() != 6 {
		t.Fatalf("vertex count = %d, want 6", m.VertexCount())
	}
	for v := 0; v < m.VertexCount(); v++ {
		n := mgl32.Vec3{m.Vertices[v*6+3], m.Vertices[v*6+4], m.Vertices[v*6+5]}
		if !n.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
			t.Errorf("vertex %d normal = %v, want +Z", v, n)
		}
	}

	// second triangle is (v0, v2, v3)
	second := m.Vertices[3*6:]
	if got := (mgl32.Vec3{second[12], second[13], second[14]}); !got.ApproxEqual(mgl32.Vec3{0, 1, 0}) {
		t.Errorf("last vertex = %v, want (0,1,0)", got)
	}
}

func TestOBJNegativeIndicesAndExplicitNormals(t *testing.T) {
	src := `v 0 0 0
v 0 0 1
v 0 1 0
vn 1 0 0
f -3//-1 -2//-1 -1//-1
`
	meshes, err := NewLoader().LoadReader("rel.obj", strings.NewReader(src), BackendTypeOBJ)
	if err != nil {
		t.Fatal(err)
	}
	m := meshes[0]
	if m.Name != "rel" {
		t.Errorf("default name = %q, want rel", m.Name)
	}
	want := []float32{
		0, 0, 0, 1, 0, 0,
		0, 0, 1, 1, 0, 0,
		0, 1, 0, 1, 0, 0,
	}
	if len(m.Vertices) != len(want) {
		t.Fatalf("got %d floats, want %d", len(m.Vertices), len(want))
	}
	for i := range want {
		if m.Vertices[i] != want[i] {
			t.Fatalf("vertices[%d] = %v, want %v", i, m.Vertices[i], want[i])
		}
	}
}

func TestOBJObjectsSplitMeshes(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
o first
f 1 2 3
g second
f 1 3 2
`
	meshes, err := NewLoader().LoadReader("two.obj", strings.NewReader(src), BackendTypeOBJ)
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 || meshes[0].Name != "first" || meshes[1].Name != "second" {
		t.Fatalf("got %+v, want meshes first and second", meshes)
	}
}

func TestOBJErrorsCarryFileAndLine(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"bad float", "v 0 0 x\n", 1},
		{"index out of range", "v 0 0 0\nv 1 0 0\nf 1 2 9\n", 3},
		{"pentagon", "v 0 0 0\n\nf 1 1 1 1 1\n", 3},
		{"mixed index formats", "v 0 0 0\nvn 0 0 1\nf 1//1 1 1\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadReader("bad.obj", strings.NewReader(tt.src), BackendTypeOBJ)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if perr.File != "bad.obj" || perr.Line != tt.line {
				t.Errorf("error at %s:%d, want bad.obj:%d", perr.File, perr.Line, tt.line)
			}
		})
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := NewLoader().Load("mesh.fbx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadCachesByPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "quad.obj", cubeQuadOBJ)

	l := NewLoader()
	first, err := l.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	second, err := l.Load(path)
	if err != nil {
		t.Fatalf("cached load failed: %v", err)
	}
	if len(second) != len(first) || l.Get(path) == nil {
		t.Fatal("expected cached meshes")
	}
	if _, ok := l.Meshes()[path]; !ok {
		t.Fatal("Meshes() is missing the loaded path")
	}
}

func TestLoadWithoutCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "quad.obj", cubeQuadOBJ)

	l := NewLoader(WithCache(false))
	if _, err := l.Load(path); err != nil {
		t.Fatal(err)
	}
	if l.Get(path) != nil {
		t.Fatal("cache disabled but meshes were stored")
	}
}

func TestLoadAllKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 8; i++ {
		src := fmt.Sprintf("o mesh%d\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n", i)
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("m%d.obj", i), src))
	}

	meshes, err := NewLoader(WithWorkers(3)).LoadAll(paths...)
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != len(paths) {
		t.Fatalf("got %d meshes, want %d", len(meshes), len(paths))
	}
	for i, m := range meshes {
		if want := fmt.Sprintf("mesh%d", i); m.Name != want {
			t.Errorf("meshes[%d] = %q, want %q", i, m.Name, want)
		}
	}
}

func TestLoadAllReportsFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.obj", cubeQuadOBJ)
	_, err := NewLoader().LoadAll(good, filepath.Join(dir, "missing.obj"))
	if err == nil {
		t.Fatal("expected an error for the missing file")
	}
}

func TestWithMeshesSeedsCache(t *testing.T) {
	seed := []Mesh{{Name: "seed", Vertices: make([]float32, 18)}}
	l := NewLoader(WithMeshes("builtin:seed", seed))
	got, err := l.Load("builtin:seed")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].VertexCount() != 3 {
		t.Fatalf("got %+v, want the seeded mesh", got)
	}
}
