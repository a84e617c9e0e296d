package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
)

// Framebuffers holds one framebuffer per swapchain image, with attachments
// ordered to match the render pass: color, depth, then the resolve target
// when multisampling.
type Framebuffers struct {
	Handles []vk.Framebuffer
}

func NewFramebuffers(context *Context, renderPass *RenderPass, swapchain *Swapchain) (*Framebuffers, error) {
	handles := make([]vk.Framebuffer, swapchain.ImageCount)

	for i := range handles {
		var attachments []vk.ImageView
		if swapchain.SampleCount > vk.SampleCount1Bit {
			attachments = []vk.ImageView{
				swapchain.ColorAttachment.View,
				swapchain.DepthAttachment.View,
				swapchain.ImageViews[i],
			}
		} else {
			attachments = []vk.ImageView{
				swapchain.ImageViews[i],
				swapchain.DepthAttachment.View,
			}
		}

		framebufferCreateInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass.Handle,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           swapchain.Extent.Width,
			Height:          swapchain.Extent.Height,
			Layers:          1,
		}

		var handle vk.Framebuffer
		if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &handle); res != vk.Success {
			for j := 0; j < i; j++ {
				vk.DestroyFramebuffer(context.Device.LogicalDevice, handles[j], context.Allocator)
			}
			err := fmt.Errorf("failed to create framebuffer %d: %s", i, VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		handles[i] = handle
	}

	return &Framebuffers{Handles: handles}, nil
}

func (f *Framebuffers) Destroy(context *Context) {
	for _, handle := range f.Handles {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, handle, context.Allocator)
	}
	f.Handles = nil
}
