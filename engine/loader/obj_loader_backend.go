package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ParseError reports a malformed line in a text mesh file.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[%s: %d] %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// objLoaderBackendImpl is the implementation of the loaderBackend interface for Wavefront OBJ files.
type objLoaderBackendImpl struct{}

var _ loaderBackend = &objLoaderBackendImpl{}

// newOBJLoaderBackend creates a new Wavefront OBJ loader backend.
//
// Returns:
//   - loaderBackend: the loader backend for .obj files
func newOBJLoaderBackend() loaderBackend {
	return &objLoaderBackendImpl{}
}

func (b *objLoaderBackendImpl) Load(path string) ([]Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return b.LoadReader(path, f)
}

func (b *objLoaderBackendImpl) LoadReader(name string, r io.Reader) ([]Mesh, error) {
	p := &objParser{
		file:        name,
		defaultName: strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
	}
	return p.parse(r)
}

// objParser holds the shared coordinate lists while an OBJ stream is read.
// Objects and groups split the output into separate meshes but share coordinates.
type objParser struct {
	file        string
	defaultName string

	vertexList []mgl32.Vec3
	normalList []mgl32.Vec3
	uvCount    int

	meshes []Mesh
}

func (p *objParser) parse(r io.Reader) ([]Mesh, error) {
	lineNum := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return nil, p.emitError(lineNum, err)
			}
			p.vertexList = append(p.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return nil, p.emitError(lineNum, err)
			}
			p.normalList = append(p.normalList, v)
		case "vt":
			if len(lineTokens) < 3 {
				return nil, p.emitError(lineNum, fmt.Errorf(`unsupported syntax for "vt"; expected 2 arguments; got %d`, len(lineTokens)-1))
			}
			p.uvCount++
		case "g", "o":
			if len(lineTokens) < 2 {
				return nil, p.emitError(lineNum, fmt.Errorf(`unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1))
			}
			p.startMesh(lineTokens[1])
		case "f":
			if err := p.parseFace(lineTokens); err != nil {
				return nil, p.emitError(lineNum, err)
			}
		default:
			// mtllib, usemtl, s and friends carry nothing a position/normal mesh needs.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, p.emitError(lineNum, err)
	}

	out := make([]Mesh, 0, len(p.meshes))
	for _, m := range p.meshes {
		if len(m.Vertices) == 0 {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no faces", p.file)
	}
	return out, nil
}

// startMesh begins a new named mesh, reusing the current one if it has no faces yet.
func (p *objParser) startMesh(name string) {
	if n := len(p.meshes); n > 0 && len(p.meshes[n-1].Vertices) == 0 {
		p.meshes[n-1].Name = name
		return
	}
	p.meshes = append(p.meshes, Mesh{Name: name})
}

// parseFace appends one triangle, or two for a quad, to the current mesh.
func (p *objParser) parseFace(lineTokens []string) error {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d`, len(lineTokens)-1)
	}

	var vertices [4]mgl32.Vec3
	var normals [4]mgl32.Vec3
	expIndices := 0
	hasNormals := false
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		idx, err := selectFaceCoordIndex(vTokens[0], len(p.vertexList))
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %w", arg, err)
		}
		vertices[arg] = p.vertexList[idx]

		if expIndices > 1 && vTokens[1] != "" {
			if _, err := selectFaceCoordIndex(vTokens[1], p.uvCount); err != nil {
				return fmt.Errorf("could not parse tex coord for face argument %d: %w", arg, err)
			}
		}

		if expIndices > 2 && vTokens[2] != "" {
			idx, err = selectFaceCoordIndex(vTokens[2], len(p.normalList))
			if err != nil {
				return fmt.Errorf("could not parse normal coord for face argument %d: %w", arg, err)
			}
			normals[arg] = p.normalList[idx]
			hasNormals = true
		}
	}

	if !hasNormals {
		n := faceNormal(vertices[0], vertices[1], vertices[2])
		normals = [4]mgl32.Vec3{n, n, n, n}
	}

	if len(p.meshes) == 0 {
		p.meshes = append(p.meshes, Mesh{Name: p.defaultName})
	}
	mesh := &p.meshes[len(p.meshes)-1]

	indexList := [][3]int{{0, 1, 2}}
	if len(lineTokens) == 5 {
		indexList = append(indexList, [3]int{0, 2, 3})
	}
	for _, tri := range indexList {
		mesh.Vertices = appendTriangle(mesh.Vertices,
			[3]mgl32.Vec3{vertices[tri[0]], vertices[tri[1]], vertices[tri[2]]},
			[3]mgl32.Vec3{normals[tri[0]], normals[tri[1]], normals[tri[2]]},
		)
	}
	return nil
}

func (p *objParser) emitError(line int, err error) error {
	return &ParseError{File: p.file, Line: line, Err: err}
}

// selectFaceCoordIndex converts a 1-based or negative (relative) OBJ index into a slice offset.
func selectFaceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	if index < 0 {
		offset = coordListLen + int(index)
	} else {
		offset = int(index - 1)
	}
	if offset < 0 || offset >= coordListLen {
		return -1, fmt.Errorf("index %d out of bounds", index)
	}
	return offset, nil
}

// parseVec3 reads the three float arguments of a v or vn row.
func parseVec3(lineTokens []string) (mgl32.Vec3, error) {
	if len(lineTokens) < 4 {
		return mgl32.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	var v mgl32.Vec3
	for i := 1; i <= 3; i++ {
		coord, err := strconv.ParseFloat(lineTokens[i], 32)
		if err != nil {
			return v, err
		}
		v[i-1] = float32(coord)
	}
	return v, nil
}
