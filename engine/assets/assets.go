// Package assets embeds the built-in shader sources. Sources are laid out as
// shaders/<language>/<name>.<stage>[.wgsl], mirroring the on-disk layout accepted by
// the renderer's shader directory override.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

//go:embed shaders
var shaderFS embed.FS

// ShaderRoot is the directory inside FS that holds the per-language shader directories.
const ShaderRoot = "shaders"

// FS returns the embedded shader file system rooted above ShaderRoot.
//
// Returns:
//   - fs.FS: the read-only embedded file system
func FS() fs.FS {
	return shaderFS
}

// Shader reads an embedded shader source.
//
// Parameters:
//   - language: the language directory, e.g. "glsl" or "wgsl"
//   - file: the file name inside the language directory, e.g. "pathtracer.comp"
//
// Returns:
//   - string: the shader source
//   - error: an error if the file is not embedded
func Shader(language, file string) (string, error) {
	data, err := shaderFS.ReadFile(path.Join(ShaderRoot, language, file))
	if err != nil {
		return "", fmt.Errorf("assets: shader %s/%s: %w", language, file, err)
	}
	return string(data), nil
}

// Shaders lists the embedded shader file names for a language.
//
// Parameters:
//   - language: the language directory, e.g. "glsl" or "wgsl"
//
// Returns:
//   - []string: the file names in lexical order
//   - error: an error if the language directory is not embedded
func Shaders(language string) ([]string, error) {
	entries, err := fs.ReadDir(shaderFS, path.Join(ShaderRoot, language))
	if err != nil {
		return nil, fmt.Errorf("assets: shader directory %s: %w", language, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
