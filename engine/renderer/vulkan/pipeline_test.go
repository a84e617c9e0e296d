package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spectralab/spectra/engine/math"
)

func TestVertexStridesMatchTypes(t *testing.T) {
	assert.Equal(t, uintptr(Vertex3DStride), unsafe.Sizeof(math.Vertex3D{}))
	assert.Equal(t, uintptr(InstanceStride), unsafe.Sizeof(math.Mat4{}))
}

func TestMeshVertexAttributesLayout(t *testing.T) {
	attributes := MeshVertexAttributes()
	require.Len(t, attributes, 8)
	require.NoError(t, ValidateAttributeLocations(attributes))

	// Binding 0 offsets follow the interleaved vertex fields.
	assert.Equal(t, uint32(0), attributes[0].Offset)
	assert.Equal(t, uint32(unsafe.Offsetof(math.Vertex3D{}.Normal)), attributes[1].Offset)
	assert.Equal(t, uint32(unsafe.Offsetof(math.Vertex3D{}.Texcoord)), attributes[2].Offset)
	assert.Equal(t, uint32(unsafe.Offsetof(math.Vertex3D{}.Colour)), attributes[3].Offset)

	// Binding 1 carries the model matrix as four vec4 columns.
	for i, attribute := range attributes[4:] {
		assert.Equal(t, uint32(1), attribute.Binding)
		assert.Equal(t, vk.FormatR32g32b32a32Sfloat, attribute.Format)
		assert.Equal(t, uint32(i*16), attribute.Offset)
	}
}

func TestValidateAttributeLocationsRejectsDuplicates(t *testing.T) {
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0}, {Location: 1}, {Location: 1},
	}
	assert.ErrorContains(t, ValidateAttributeLocations(attributes), "duplicate")
}

func TestValidateAttributeLocationsRejectsGaps(t *testing.T) {
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0}, {Location: 2},
	}
	assert.ErrorContains(t, ValidateAttributeLocations(attributes), "not contiguous")
}

func TestValidateAttributeLocationsAcceptsEmpty(t *testing.T) {
	assert.NoError(t, ValidateAttributeLocations(nil))
}

func TestPipelineKindState(t *testing.T) {
	// The prepass writes depth only; masking color is what makes the second
	// pass over the same geometry safe.
	assert.Equal(t, vk.ColorComponentFlags(0), colorWriteMaskFor(PipelineDepthPrepass))
	assert.Equal(t, vk.CompareOpLess, depthCompareFor(PipelineDepthPrepass))

	// The opaque pass re-rasterizes depth the prepass already wrote, so it
	// must pass on equal values and keep all color channels.
	assert.Equal(t, vk.CompareOpLessOrEqual, depthCompareFor(PipelineOpaque))
	full := vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
		vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit)
	assert.Equal(t, full, colorWriteMaskFor(PipelineOpaque))
}

func TestPushConstantSizeWithinGuarantee(t *testing.T) {
	assert.LessOrEqual(t, uint32(112), uint32(MaxPushConstantSize))
}
