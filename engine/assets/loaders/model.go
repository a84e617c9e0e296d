package loaders

import (
	"fmt"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/spectralab/spectra/engine/math"
	"github.com/spectralab/spectra/engine/resources"
)

// ModelLoader reads GLTF documents into mesh and material data. Each
// primitive becomes one mesh; material indices follow the document order.
type ModelLoader struct{}

// Load parses the GLTF file at path. Vertices keep the document's Y-up
// right-handed coordinates; orientation is resolved at projection time.
func (l *ModelLoader) Load(path string) ([]resources.MeshData, []resources.MaterialData, error) {
	document, err := gltf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open gltf %s: %w", path, err)
	}

	var meshes []resources.MeshData
	for _, mesh := range document.Meshes {
		for primitiveIndex, primitive := range mesh.Primitives {
			meshData, err := readPrimitive(document, mesh.Name, primitiveIndex, primitive)
			if err != nil {
				return nil, nil, fmt.Errorf("gltf %s, mesh %s: %w", path, mesh.Name, err)
			}
			meshes = append(meshes, *meshData)
		}
	}
	if len(meshes) == 0 {
		return nil, nil, fmt.Errorf("gltf %s contains no mesh primitives", path)
	}

	materials, err := readMaterials(document, filepath.Dir(path))
	if err != nil {
		return nil, nil, err
	}
	return meshes, materials, nil
}

func readPrimitive(document *gltf.Document, meshName string, primitiveIndex int, primitive *gltf.Primitive) (*resources.MeshData, error) {
	positionAccessor, ok := primitive.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("primitive %d has no POSITION attribute", primitiveIndex)
	}
	positions, err := modeler.ReadPosition(document, document.Accessors[positionAccessor], nil)
	if err != nil {
		return nil, err
	}

	var normals [][3]float32
	if accessor, ok := primitive.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(document, document.Accessors[accessor], nil); err != nil {
			return nil, err
		}
	}

	var texcoords [][2]float32
	if accessor, ok := primitive.Attributes[gltf.TEXCOORD_0]; ok {
		if texcoords, err = modeler.ReadTextureCoord(document, document.Accessors[accessor], nil); err != nil {
			return nil, err
		}
	}

	var colors [][4]uint8
	if accessor, ok := primitive.Attributes[gltf.COLOR_0]; ok {
		if colors, err = modeler.ReadColor(document, document.Accessors[accessor], nil); err != nil {
			return nil, err
		}
	}

	if primitive.Indices == nil {
		return nil, fmt.Errorf("primitive %d is not indexed", primitiveIndex)
	}
	indices, err := modeler.ReadIndices(document, document.Accessors[*primitive.Indices], nil)
	if err != nil {
		return nil, err
	}

	vertices := make([]math.Vertex3D, len(positions))
	for i := range positions {
		vertices[i].Position = math.NewVec3(positions[i][0], positions[i][1], positions[i][2])
		vertices[i].Colour = math.NewVec4(1, 1, 1, 1)
		if i < len(normals) {
			vertices[i].Normal = math.NewVec3(normals[i][0], normals[i][1], normals[i][2])
		}
		if i < len(texcoords) {
			vertices[i].Texcoord = math.Vec2{X: texcoords[i][0], Y: texcoords[i][1]}
		}
		if i < len(colors) {
			vertices[i].Colour = math.NewVec4(
				float32(colors[i][0])/255,
				float32(colors[i][1])/255,
				float32(colors[i][2])/255,
				float32(colors[i][3])/255)
		}
	}

	materialIndex := uint32(0)
	if primitive.Material != nil {
		materialIndex = uint32(*primitive.Material)
	}

	return &resources.MeshData{
		Name:          fmt.Sprintf("%s.%d", meshName, primitiveIndex),
		Vertices:      vertices,
		Indices:       indices,
		MaterialIndex: materialIndex,
	}, nil
}

func readMaterials(document *gltf.Document, baseDir string) ([]resources.MaterialData, error) {
	materials := make([]resources.MaterialData, 0, len(document.Materials))
	for _, material := range document.Materials {
		data := resources.MaterialData{Name: material.Name}
		if material.PBRMetallicRoughness != nil && material.PBRMetallicRoughness.BaseColorTexture != nil {
			textureIndex := material.PBRMetallicRoughness.BaseColorTexture.Index
			texture := document.Textures[textureIndex]
			if texture.Source != nil {
				uri := document.Images[*texture.Source].URI
				if uri == "" {
					return nil, fmt.Errorf("material %s references an embedded image; external URIs only", material.Name)
				}
				data.TexturePath = filepath.Join(baseDir, uri)
			}
		}
		materials = append(materials, data)
	}
	return materials, nil
}
