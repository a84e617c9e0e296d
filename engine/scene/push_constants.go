package scene

import (
	"unsafe"

	"github.com/spectralab/spectra/engine/math"
)

// PushConstantBlockSize is the byte size of PushConstantBlock: a mat4 plus
// three vec4s. Stays under the 128 bytes every implementation guarantees.
const PushConstantBlockSize = 112

// PushConstantBlock is the per-draw constant data pushed without a buffer
// binding. The model matrix is not here; it arrives per instance through the
// instance vertex binding. Field order matches the shader block layout.
type PushConstantBlock struct {
	ViewProjection math.Mat4
	LightDirection math.Vec4
	LightColor     math.Vec4
	// Material packs the texture index in X; the remaining lanes pad the
	// block to a vec4 boundary.
	Material math.Vec4
}

// Fails to compile if the struct layout drifts from the declared size or
// outgrows the 128 bytes every implementation provides for push constants.
const _ = PushConstantBlockSize - unsafe.Sizeof(PushConstantBlock{})
const _ = uint(128 - PushConstantBlockSize)

// NewPushConstantBlock assembles the block from the camera's composed
// view-projection and the scene light.
func NewPushConstantBlock(viewProjection math.Mat4, light DirectionalLight, materialIndex uint32) PushConstantBlock {
	return PushConstantBlock{
		ViewProjection: viewProjection,
		LightDirection: light.Direction.ToVec4(0),
		LightColor:     light.Color.MulScalar(light.Intensity).ToVec4(1),
		Material:       math.NewVec4(float32(materialIndex), 0, 0, 0),
	}
}

// Bytes views the block as the raw byte layout handed to the push constant
// command.
func (p *PushConstantBlock) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), PushConstantBlockSize)
}
