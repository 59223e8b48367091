package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-trace/log"
	"github.com/go-gl/mathgl/mgl32"
)

// FloatsPerVertex is the number of float32 values per interleaved vertex (position xyz, normal xyz).
const FloatsPerVertex = 6

// ErrUnsupportedFormat is returned when no backend handles a file extension.
var ErrUnsupportedFormat = errors.New("unsupported mesh format")

var logger = log.New("loader")

// LoaderBackendType identifies the mesh file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeOBJ selects the Wavefront OBJ backend.
	BackendTypeOBJ LoaderBackendType = iota
	// BackendTypeGLTF selects the glTF/GLB backend.
	BackendTypeGLTF
)

func (t LoaderBackendType) String() string {
	switch t {
	case BackendTypeOBJ:
		return "obj"
	case BackendTypeGLTF:
		return "gltf"
	}
	return fmt.Sprintf("LoaderBackendType(%d)", int(t))
}

// Mesh is a non-indexed triangle list ready for upload.
// Vertices are interleaved as position then normal, FloatsPerVertex floats per vertex.
type Mesh struct {
	Name     string
	Position mgl32.Vec3
	Vertices []float32
}

// VertexCount returns the number of vertices in the mesh.
func (m Mesh) VertexCount() int {
	return len(m.Vertices) / FloatsPerVertex
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	cache     bool
	workers   int
	meshCache map[string][]Mesh

	backends map[LoaderBackendType]loaderBackend
}

// Loader loads triangle meshes from disk and caches them by path.
type Loader interface {
	// Load imports a mesh file and caches the result.
	// The backend is selected from the file extension (.obj, .gltf, .glb).
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - []Mesh: one Mesh per object or primitive in the file
	//   - error: ErrUnsupportedFormat for unknown extensions, or the backend error
	Load(path string) ([]Mesh, error)

	// LoadAll loads several files in parallel on the loader's worker pool.
	// The returned meshes keep the order of the input paths.
	//
	// Parameters:
	//   - paths: the files to load
	//
	// Returns:
	//   - []Mesh: the meshes of every file, concatenated in input order
	//   - error: the first failure in input order
	LoadAll(paths ...string) ([]Mesh, error)

	// LoadReader imports a mesh stream of the given format and caches it by name.
	//
	// Parameters:
	//   - name: the cache key and mesh name prefix
	//   - r: the reader providing the file data
	//   - backendType: the format of the stream
	//
	// Returns:
	//   - []Mesh: the loaded meshes
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, backendType LoaderBackendType) ([]Mesh, error)

	// Get retrieves cached meshes by key. Returns nil if not found.
	Get(key string) []Mesh

	// Meshes returns a copy of the full mesh cache.
	Meshes() map[string][]Mesh
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with both file backends registered and the options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader instance
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		cache:     true,
		workers:   runtime.NumCPU(),
		meshCache: make(map[string][]Mesh),
		backends: map[LoaderBackendType]loaderBackend{
			BackendTypeOBJ:  newOBJLoaderBackend(),
			BackendTypeGLTF: newGLTFLoaderBackend(),
		},
	}

	for _, option := range options {
		option(l)
	}
	if l.workers < 1 {
		l.workers = 1
	}
	return l
}

func (l *loader) Load(path string) ([]Mesh, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	meshes, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	logger.Infof("loaded %s: %d mesh(es) in %s", path, len(meshes), time.Since(start))

	l.store(path, meshes)
	return meshes, nil
}

func (l *loader) LoadAll(paths ...string) ([]Mesh, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	results := make([][]Mesh, len(paths))
	errs := make([]error, len(paths))

	pool := worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		idx, p := i, path
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				results[idx], errs[idx] = l.Load(p)
				return nil, errs[idx]
			},
		})
	}
	wg.Wait()

	var all []Mesh
	for i := range paths {
		if errs[i] != nil {
			return nil, errs[i]
		}
		all = append(all, results[i]...)
	}
	return all, nil
}

func (l *loader) LoadReader(name string, r io.Reader, backendType LoaderBackendType) ([]Mesh, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	backend, ok := l.backends[backendType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, backendType)
	}

	meshes, err := backend.LoadReader(name, r)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	l.store(name, meshes)
	return meshes, nil
}

func (l *loader) Get(key string) []Mesh {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meshCache[key]
}

func (l *loader) Meshes() map[string][]Mesh {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string][]Mesh, len(l.meshCache))
	for k, v := range l.meshCache {
		out[k] = v
	}
	return out
}

func (l *loader) store(key string, meshes []Mesh) {
	if !l.cache {
		return
	}
	l.mu.Lock()
	l.meshCache[key] = meshes
	l.mu.Unlock()
}

// resolveBackend picks the backend for a file path from its extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return l.backends[BackendTypeOBJ], nil
	case ".gltf", ".glb":
		return l.backends[BackendTypeGLTF], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}
