package loader

import (
	"io"
	"path/filepath"
	"strings"
)

// gltfLoaderBackendImpl is the loaderBackend implementation for glTF 2.0 and GLB files.
// A fresh parser is created per call so concurrent loads share no state.
type gltfLoaderBackendImpl struct{}

var _ loaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - loaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() loaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) Load(path string) ([]Mesh, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, err
	}
	return newGLTFMeshExtractor(parser, baseName(path)).ExtractScene()
}

func (b *gltfLoaderBackendImpl) LoadReader(name string, r io.Reader) ([]Mesh, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, filepath.Dir(name)); err != nil {
		return nil, err
	}
	return newGLTFMeshExtractor(parser, baseName(name)).ExtractScene()
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
