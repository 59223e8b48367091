package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// triangleBuffer returns three VEC3 positions followed by three uint16 indices (0,1,2), padded to 4 bytes.
func triangleBuffer() []byte {
	var buf bytes.Buffer
	for _, f := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		binary.Write(&buf, binary.LittleEndian, math.Float32bits(f))
	}
	for _, i := range []uint16{0, 1, 2} {
		binary.Write(&buf, binary.LittleEndian, i)
	}
	buf.Write([]byte{0, 0})
	return buf.Bytes()
}

func triangleDocument(uri string, byteLength int) string {
	bufferField := fmt.Sprintf(`{"byteLength": %d}`, byteLength)
	if uri != "" {
		bufferField = fmt.Sprintf(`{"uri": %q, "byteLength": %d}`, uri, byteLength)
	}
	return fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"name": "root", "translation": [1, 2, 3], "children": [1]}, {"name": "leaf", "mesh": 0, "translation": [0, 0, -1]}],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "buffers": [%s]
}`, bufferField)
}

func assertTriangle(t *testing.T, meshes []Mesh) {
	t.Helper()
	if len(meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", len(meshes))
	}
	m := meshes[0]
	if m.Name != "tri" {
		t.Errorf("name = %q, want tri", m.Name)
	}
	if !m.Position.ApproxEqual(mgl32.Vec3{1, 2, 2}) {
		t.Errorf("position = %v, want (1,2,2)", m.Position)
	}
	if m.VertexCount() != 3 {
		t.Fatalf("vertex count = %d, want 3", m.VertexCount())
	}
	n := mgl32.Vec3{m.Vertices[3], m.Vertices[4], m.Vertices[5]}
	if !n.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
		t.Errorf("generated normal = %v, want +Z", n)
	}
	second := mgl32.Vec3{m.Vertices[6], m.Vertices[7], m.Vertices[8]}
	if !second.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Errorf("second vertex = %v, want (1,0,0)", second)
	}
}

func TestGLTFDataURI(t *testing.T) {
	data := triangleBuffer()
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data)
	doc := triangleDocument(uri, len(data))

	meshes, err := NewLoader().LoadReader("tri.gltf", strings.NewReader(doc), BackendTypeGLTF)
	if err != nil {
		t.Fatal(err)
	}
	assertTriangle(t, meshes)
}

func TestGLTFExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	data := triangleBuffer()
	if err := os.WriteFile(filepath.Join(dir, "tri.bin"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, dir, "tri.gltf", triangleDocument("tri.bin", len(data)))

	meshes, err := NewLoader().Load(path)
	if err != nil {
		t.Fatal(err)
	}
	assertTriangle(t, meshes)
}

func TestGLB(t *testing.T) {
	data := triangleBuffer()
	doc := []byte(triangleDocument("", len(data)))
	for len(doc)%4 != 0 {
		doc = append(doc, ' ')
	}

	var glb bytes.Buffer
	total := 12 + 8 + len(doc) + 8 + len(data)
	binary.Write(&glb, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)})
	binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(doc)), ChunkType: gltfGLBChunkJSON})
	glb.Write(doc)
	binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(data)), ChunkType: gltfGLBChunkBIN})
	glb.Write(data)

	path := filepath.Join(t.TempDir(), "tri.glb")
	if err := os.WriteFile(path, glb.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	meshes, err := NewLoader().Load(path)
	if err != nil {
		t.Fatal(err)
	}
	assertTriangle(t, meshes)
}

func TestGLTFRejectsBadInput(t *testing.T) {
	data := triangleBuffer()
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data)

	tests := []struct {
		name string
		doc  string
	}{
		{"version 1", strings.Replace(triangleDocument(uri, len(data)), `"2.0"`, `"1.0"`, 1)},
		{"short buffer", triangleDocument(uri, len(data)+64)},
		{"plain data uri", triangleDocument("data:application/octet-stream,abc", 3)},
		{"no buffer source", triangleDocument("", len(data))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLoader().LoadReader(tt.name+".gltf", strings.NewReader(tt.doc), BackendTypeGLTF); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestGLTFNodeMatrix(t *testing.T) {
	m := [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 4, 5, 6, 1}
	got := gltfNodeMatrix(&gltfNode{Matrix: &m}).Col(3).Vec3()
	if !got.ApproxEqual(mgl32.Vec3{4, 5, 6}) {
		t.Errorf("translation = %v, want (4,5,6)", got)
	}

	scale := [3]float32{2, 2, 2}
	tr := [3]float32{1, 0, 0}
	trs := gltfNodeMatrix(&gltfNode{Translation: &tr, Scale: &scale})
	if p := trs.Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3(); !p.ApproxEqual(mgl32.Vec3{3, 0, 0}) {
		t.Errorf("T*S applied to (1,0,0) = %v, want (3,0,0)", p)
	}
}
