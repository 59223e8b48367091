package loader

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
	name   string
}

// gltfMeshExtractor converts a parsed glTF document into interleaved triangle-list Meshes.
type gltfMeshExtractor interface {
	// ExtractScene walks the default scene's node hierarchy and emits one Mesh per
	// triangle primitive. A node's world translation becomes Mesh.Position and the
	// remaining rotation and scale are baked into the vertices. Documents without
	// nodes emit every mesh at the origin.
	//
	// Returns:
	//   - []Mesh: the extracted meshes
	//   - error: error if extraction fails
	ExtractScene() ([]Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - name: the fallback name for unnamed meshes
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser, name string) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser, name: name}
}

func (e *gltfMeshExtractorImpl) ExtractScene() ([]Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	var out []Mesh
	if len(doc.Nodes) == 0 {
		for i := range doc.Meshes {
			meshes, err := e.extractMesh(i, "", mgl32.Ident4())
			if err != nil {
				return nil, err
			}
			out = append(out, meshes...)
		}
		return out, nil
	}

	visited := make([]bool, len(doc.Nodes))
	var walk func(nodeIndex int, parent mgl32.Mat4) error
	walk = func(nodeIndex int, parent mgl32.Mat4) error {
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", nodeIndex)
		}
		if visited[nodeIndex] {
			return fmt.Errorf("node %d appears twice in the hierarchy", nodeIndex)
		}
		visited[nodeIndex] = true

		node := &doc.Nodes[nodeIndex]
		world := parent.Mul4(gltfNodeMatrix(node))
		if node.Mesh != nil {
			meshes, err := e.extractMesh(*node.Mesh, node.Name, world)
			if err != nil {
				return fmt.Errorf("node %d: %w", nodeIndex, err)
			}
			out = append(out, meshes...)
		}
		for _, child := range node.Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range e.rootNodes(doc) {
		if err := walk(root, mgl32.Ident4()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rootNodes returns the default scene's roots, or every parentless node when no scene is declared.
func (e *gltfMeshExtractorImpl) rootNodes(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func (e *gltfMeshExtractorImpl) extractMesh(meshIndex int, nodeName string, world mgl32.Mat4) ([]Mesh, error) {
	doc := e.parser.Document()
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}
	src := &doc.Meshes[meshIndex]

	name := src.Name
	if name == "" {
		name = nodeName
	}
	if name == "" {
		name = fmt.Sprintf("%s_%d", e.name, meshIndex)
	}

	position := world.Col(3).Vec3()
	linear := world.Mat3()
	normalMat := linear.Inv().Transpose()

	var out []Mesh
	for primIdx := range src.Primitives {
		prim := &src.Primitives[primIdx]
		if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
			logger.Warningf("%s: skipping primitive %d with mode %d", name, primIdx, *prim.Mode)
			continue
		}

		vertices, err := e.extractPrimitive(prim, linear, normalMat)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}

		primName := name
		if primIdx > 0 {
			primName = fmt.Sprintf("%s_prim%d", name, primIdx)
		}
		out = append(out, Mesh{Name: primName, Position: position, Vertices: vertices})
	}
	return out, nil
}

// extractPrimitive expands an (optionally indexed) primitive into an interleaved triangle list.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, linear, normalMat mgl32.Mat3) ([]float32, error) {
	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := e.parser.ReadVec3Accessor(posAccessor)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	var normals [][3]float32
	if normalAccessor, ok := prim.Attributes["NORMAL"]; ok {
		normals, err = e.parser.ReadVec3Accessor(normalAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
		if len(normals) != len(positions) {
			return nil, fmt.Errorf("NORMAL count %d does not match POSITION count %d", len(normals), len(positions))
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadIndicesAccessor(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("triangle list has %d indices", len(indices))
	}

	vertices := make([]float32, 0, len(indices)*FloatsPerVertex)
	for t := 0; t < len(indices); t += 3 {
		var p, n [3]mgl32.Vec3
		for k := 0; k < 3; k++ {
			idx := int(indices[t+k])
			if idx >= len(positions) {
				return nil, fmt.Errorf("index %d out of range for %d vertices", idx, len(positions))
			}
			p[k] = linear.Mul3x1(mgl32.Vec3(positions[idx]))
		}
		if normals != nil {
			for k := 0; k < 3; k++ {
				v := normalMat.Mul3x1(mgl32.Vec3(normals[indices[t+k]]))
				if v.Len() > 0 {
					v = v.Normalize()
				}
				n[k] = v
			}
		} else {
			fn := faceNormal(p[0], p[1], p[2])
			n = [3]mgl32.Vec3{fn, fn, fn}
		}
		vertices = appendTriangle(vertices, p, n)
	}
	return vertices, nil
}

// gltfNodeMatrix returns the node's local transform, from its matrix or from T*R*S.
func gltfNodeMatrix(node *gltfNode) mgl32.Mat4 {
	if node.Matrix != nil {
		return mgl32.Mat4(*node.Matrix)
	}

	m := mgl32.Ident4()
	if node.Translation != nil {
		t := node.Translation
		m = m.Mul4(mgl32.Translate3D(t[0], t[1], t[2]))
	}
	if node.Rotation != nil {
		r := node.Rotation
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		m = m.Mul4(q.Normalize().Mat4())
	}
	if node.Scale != nil {
		s := node.Scale
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}
