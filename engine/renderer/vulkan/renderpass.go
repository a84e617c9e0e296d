package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
)

// RenderPassKey identifies the attachment configuration a render pass (and
// every pipeline built against it) depends on. A swapchain recreation that
// keeps the key unchanged keeps the render pass and pipelines.
type RenderPassKey struct {
	ColorFormat vk.Format
	DepthFormat vk.Format
	SampleCount vk.SampleCountFlagBits
}

type RenderPass struct {
	Handle vk.RenderPass
	Key    RenderPassKey

	ClearColor [4]float32
	ClearDepth float32
}

// NewRenderPass builds a single-subpass color+depth pass. Above one sample the
// color target is multisampled and resolved into the swapchain image; at one
// sample the swapchain image is rendered directly.
func NewRenderPass(context *Context, key RenderPassKey) (*RenderPass, error) {
	multisampled := key.SampleCount > vk.SampleCount1Bit

	colorAttachment := vk.AttachmentDescription{
		Format:         key.ColorFormat,
		Samples:        key.SampleCount,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	if multisampled {
		// The multisampled target is transient; the resolve attachment is
		// what gets presented.
		colorAttachment.StoreOp = vk.AttachmentStoreOpDontCare
		colorAttachment.FinalLayout = vk.ImageLayoutColorAttachmentOptimal
	}

	depthAttachment := vk.AttachmentDescription{
		Format:         key.DepthFormat,
		Samples:        key.SampleCount,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	attachments := []vk.AttachmentDescription{colorAttachment, depthAttachment}

	colorReference := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	depthReference := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorReference},
		PDepthStencilAttachment: &depthReference,
	}

	if multisampled {
		resolveAttachment := vk.AttachmentDescription{
			Format:         key.ColorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		}
		attachments = append(attachments, resolveAttachment)
		subpass.PResolveAttachments = []vk.AttachmentReference{
			{Attachment: 2, Layout: vk.ImageLayoutColorAttachmentOptimal},
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass: vk.SubpassExternal,
		DstSubpass: 0,
		SrcStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit |
			vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit |
			vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit |
			vk.AccessDepthStencilAttachmentWriteBit),
	}

	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderPassCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create render pass: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &RenderPass{
		Handle:     handle,
		Key:        key,
		ClearColor: [4]float32{0.02, 0.02, 0.05, 1.0},
		ClearDepth: 1.0,
	}, nil
}

func (r *RenderPass) Destroy(context *Context) {
	if r.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, r.Handle, context.Allocator)
		r.Handle = nil
	}
}

// Begin records the render pass begin with full-extent render area and the
// configured clear values.
func (r *RenderPass) Begin(commandBuffer *CommandBuffer, framebuffer vk.Framebuffer, extent vk.Extent2D) {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(r.ClearColor[:])
	clearValues[1].SetDepthStencil(r.ClearDepth, 0)
	if r.Key.SampleCount > vk.SampleCount1Bit {
		// Resolve attachment; its load op is DontCare but a value slot is
		// still required.
		clearValues = append(clearValues, vk.ClearValue{})
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (r *RenderPass) End(commandBuffer *CommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
