package loader

import (
	"io"

	"github.com/go-gl/mathgl/mgl32"
)

// loaderBackend defines the format-specific half of a Loader.
// Concrete implementations (objLoaderBackend, gltfLoaderBackend) turn a file into Meshes.
type loaderBackend interface {
	// Load imports every mesh in the file at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - []Mesh: the imported meshes
	//   - error: error if loading fails
	Load(path string) ([]Mesh, error)

	// LoadReader imports every mesh from a stream.
	//
	// Parameters:
	//   - name: the source name used for mesh names and error messages
	//   - r: the reader providing file data
	//
	// Returns:
	//   - []Mesh: the imported meshes
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader) ([]Mesh, error)
}

// appendTriangle appends one triangle to an interleaved vertex slice.
func appendTriangle(dst []float32, p [3]mgl32.Vec3, n [3]mgl32.Vec3) []float32 {
	for i := 0; i < 3; i++ {
		dst = append(dst, p[i][0], p[i][1], p[i][2], n[i][0], n[i][1], n[i][2])
	}
	return dst
}

// faceNormal returns the normalized counter-clockwise face normal of a triangle.
// Degenerate triangles yield the zero vector.
func faceNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return mgl32.Vec3{}
	}
	return n.Normalize()
}
