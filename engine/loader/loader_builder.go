package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithWorkers sets the maximum number of files LoadAll decodes concurrently.
//
// Parameters:
//   - n: the worker count, values below 1 are raised to 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = n
	}
}

// WithCache enables or disables the path-keyed mesh cache.
//
// Parameters:
//   - enabled: true to cache loaded meshes
//
// Returns:
//   - LoaderBuilderOption: a function that applies the cache option to a loader
func WithCache(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.cache = enabled
	}
}

// WithMeshes pre-populates the mesh cache under key.
//
// Parameters:
//   - key: the cache key
//   - meshes: the meshes to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the meshes option to a loader
func WithMeshes(key string, meshes []Mesh) LoaderBuilderOption {
	return func(l *loader) {
		l.meshCache[key] = meshes
	}
}
