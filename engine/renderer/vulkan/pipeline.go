package vulkan

import (
	"fmt"

	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
	"github.com/spectralab/spectra/engine/resources"
)

// PipelineKind selects one of the closed set of pipeline variants. Dispatch
// over kinds is a switch, not an interface; the set is fixed at build time.
type PipelineKind int

const (
	// PipelineOpaque is the lit geometry pipeline: depth test and write on,
	// no blending.
	PipelineOpaque PipelineKind = iota
	// PipelineDepthPrepass writes depth only; color writes are masked off.
	PipelineDepthPrepass
)

const (
	// Vertex3DStride is the byte size of one vertex in binding 0:
	// position vec3, normal vec3, texcoord vec2, colour vec4.
	Vertex3DStride uint32 = 48
	// InstanceStride is the byte size of one instance in binding 1: a mat4
	// model matrix consumed as four vec4 attributes.
	InstanceStride uint32 = 64
	// MaxPushConstantSize is the smallest maxPushConstantsSize any
	// conforming implementation provides.
	MaxPushConstantSize uint32 = 128
)

// depthCompareFor returns the depth test for a pipeline kind. The prepass
// lays depth down with strict less; the opaque pass re-rasterizes the same
// geometry afterwards, so it must also pass on equal depth.
func depthCompareFor(kind PipelineKind) vk.CompareOp {
	if kind == PipelineDepthPrepass {
		return vk.CompareOpLess
	}
	return vk.CompareOpLessOrEqual
}

// colorWriteMaskFor masks all color writes on the depth prepass.
func colorWriteMaskFor(kind PipelineKind) vk.ColorComponentFlags {
	if kind == PipelineDepthPrepass {
		return 0
	}
	return vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
		vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit)
}

// MeshVertexAttributes describes both vertex bindings: per-vertex data at
// locations 0-3 and the per-instance model matrix columns at locations 4-7.
func MeshVertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 24},
		{Location: 3, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 32},
		{Location: 4, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 0},
		{Location: 5, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 16},
		{Location: 6, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 32},
		{Location: 7, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 48},
	}
}

// ValidateAttributeLocations rejects layouts the shader interface cannot
// match: duplicate locations or a gap in the location sequence. Reported at
// pipeline build time; fatal for that pipeline only.
func ValidateAttributeLocations(attributes []vk.VertexInputAttributeDescription) error {
	if len(attributes) == 0 {
		return nil
	}
	seen := make(map[uint32]bool, len(attributes))
	maxLocation := uint32(0)
	for _, attribute := range attributes {
		if seen[attribute.Location] {
			return fmt.Errorf("duplicate vertex attribute location %d", attribute.Location)
		}
		seen[attribute.Location] = true
		if attribute.Location > maxLocation {
			maxLocation = attribute.Location
		}
	}
	for location := uint32(0); location <= maxLocation; location++ {
		if !seen[location] {
			return fmt.Errorf("vertex attribute locations are not contiguous: missing %d", location)
		}
	}
	return nil
}

type PipelineConfig struct {
	RenderPass           *RenderPass
	Kind                 PipelineKind
	Stages               []vk.PipelineShaderStageCreateInfo
	Attributes           []vk.VertexInputAttributeDescription
	DescriptorSetLayouts []vk.DescriptorSetLayout
	PushConstantSize     uint32
	Viewport             vk.Viewport
	Scissor              vk.Rect2D
}

// Pipeline is immutable once built. A swapchain recreation that keeps the
// render pass key (formats and sample count) keeps the pipeline; only a key
// change forces a rebuild.
type Pipeline struct {
	ID     uuid.UUID
	Handle vk.Pipeline
	Layout vk.PipelineLayout
	Kind   PipelineKind
}

func NewGraphicsPipeline(context *Context, config *PipelineConfig) (*Pipeline, error) {
	if err := ValidateAttributeLocations(config.Attributes); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if config.PushConstantSize > MaxPushConstantSize {
		return nil, fmt.Errorf("push constant block of %d bytes exceeds the guaranteed %d", config.PushConstantSize, MaxPushConstantSize)
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{config.Viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{config.Scissor},
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: config.RenderPass.Key.SampleCount,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.True,
		DepthWriteEnable:  vk.True,
		DepthCompareOp:    depthCompareFor(config.Kind),
		StencilTestEnable: vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:    vk.False,
		ColorWriteMask: colorWriteMaskFor(config.Kind),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Viewport and scissor are dynamic so a resize that keeps the attachment
	// formats does not touch the pipeline.
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	bindingDescriptions := []vk.VertexInputBindingDescription{
		{Binding: 0, Stride: Vertex3DStride, InputRate: vk.VertexInputRateVertex},
		{Binding: 1, Stride: InstanceStride, InputRate: vk.VertexInputRateInstance},
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindingDescriptions)),
		PVertexBindingDescriptions:      bindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.DescriptorSetLayouts)),
		PSetLayouts:    config.DescriptorSetLayouts,
	}
	if config.PushConstantSize > 0 {
		pipelineLayoutCreateInfo.PushConstantRangeCount = 1
		pipelineLayoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Offset:     0,
			Size:       config.PushConstantSize,
		}}
	}

	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(
		context.Device.LogicalDevice,
		&pipelineLayoutCreateInfo,
		context.Allocator,
		&pipelineLayout); res != vk.Success {
		err := fmt.Errorf("failed to create pipeline layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              pipelineLayout,
		RenderPass:          config.RenderPass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		context.Allocator,
		pipelines); res != vk.Success {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipelineLayout, context.Allocator)
		err := fmt.Errorf("failed to create graphics pipeline: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &Pipeline{
		ID:     context.Registry.Register(resources.KindPipeline),
		Handle: pipelines[0],
		Layout: pipelineLayout,
		Kind:   config.Kind,
	}, nil
}

func (p *Pipeline) Destroy(context *Context) {
	if p.Handle != nil {
		vk.DestroyPipeline(context.Device.LogicalDevice, p.Handle, context.Allocator)
		p.Handle = nil
	}
	if p.Layout != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, p.Layout, context.Allocator)
		p.Layout = nil
	}
	if err := context.Registry.Release(p.ID); err != nil {
		core.LogWarn(err.Error())
	}
}

func (p *Pipeline) Bind(commandBuffer *CommandBuffer) {
	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointGraphics, p.Handle)
}
