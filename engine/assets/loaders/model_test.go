package loaders

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTriangleGLTF writes a single-triangle document with an embedded buffer
// (three positions, uint16 indices) and one textured material.
func writeTriangleGLTF(t *testing.T, dir string) string {
	t.Helper()

	var buffer bytes.Buffer
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}
	for _, p := range positions {
		require.NoError(t, binary.Write(&buffer, binary.LittleEndian, p))
	}
	require.NoError(t, binary.Write(&buffer, binary.LittleEndian, []uint16{0, 1, 2}))

	document := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "buffers": [{"uri": "data:application/octet-stream;base64,%s", "byteLength": %d}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36, "target": 34962},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6, "target": 34963}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "materials": [{"name": "painted", "pbrMetallicRoughness": {"baseColorTexture": {"index": 0}}}],
  "textures": [{"source": 0}],
  "images": [{"uri": "checker.png"}]
}`, base64.StdEncoding.EncodeToString(buffer.Bytes()), buffer.Len())

	path := filepath.Join(dir, "tri.gltf")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o644))
	return path
}

func TestModelLoaderLoadTriangle(t *testing.T) {
	dir := t.TempDir()
	path := writeTriangleGLTF(t, dir)

	var loader ModelLoader
	meshes, materials, err := loader.Load(path)
	require.NoError(t, err)

	require.Len(t, meshes, 1)
	mesh := meshes[0]
	assert.Equal(t, "tri.0", mesh.Name)
	assert.Equal(t, uint32(0), mesh.MaterialIndex)
	require.Len(t, mesh.Vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)

	assert.InDelta(t, 1, mesh.Vertices[1].Position.X, 1e-6)
	assert.InDelta(t, 1, mesh.Vertices[2].Position.Y, 1e-6)
	// Missing COLOR_0 defaults to opaque white.
	assert.Equal(t, float32(1), mesh.Vertices[0].Colour.W)

	require.Len(t, materials, 1)
	assert.Equal(t, "painted", materials[0].Name)
	assert.Equal(t, filepath.Join(dir, "checker.png"), materials[0].TexturePath)
}

func TestModelLoaderRejectsEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gltf")
	require.NoError(t, os.WriteFile(path, []byte(`{"asset": {"version": "2.0"}}`), 0o644))

	var loader ModelLoader
	_, _, err := loader.Load(path)
	assert.ErrorContains(t, err, "no mesh primitives")
}

func TestModelLoaderMissingFile(t *testing.T) {
	var loader ModelLoader
	_, _, err := loader.Load(filepath.Join(t.TempDir(), "missing.gltf"))
	assert.Error(t, err)
}
