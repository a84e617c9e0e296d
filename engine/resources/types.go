package resources

import (
	"github.com/spectralab/spectra/engine/math"
)

// MeshData is the CPU-side description of one GLTF primitive, flattened to
// the interleaved layout the vertex input expects. Immutable after load.
type MeshData struct {
	Name string
	// Interleaved per-vertex data, stride = unsafe.Sizeof(math.Vertex3D).
	Vertices []math.Vertex3D
	// Triangle list indices. 16-bit source indices are widened on load.
	Indices []uint32
	// Index into the scene's material table.
	MaterialIndex uint32
}

// ImageData is decoded texture content, always 4 channels (RGBA8).
type ImageData struct {
	Name         string
	Width        uint32
	Height       uint32
	ChannelCount uint8
	Pixels       []uint8
}

// MaterialData references the texture a mesh samples.
type MaterialData struct {
	Name        string
	TexturePath string
}
