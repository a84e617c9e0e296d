package vulkan

import (
	"fmt"

	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
	"github.com/spectralab/spectra/engine/math"
	"github.com/spectralab/spectra/engine/resources"
)

// Image wraps a Vulkan image, its memory and (optionally) a view.
type Image struct {
	ID        uuid.UUID
	Handle    vk.Image
	Memory    vk.DeviceMemory
	View      vk.ImageView
	Width     uint32
	Height    uint32
	Format    vk.Format
	MipLevels uint32
}

// MipLevelsFor returns the full mip chain length for a base extent:
// floor(log2(max(w, h))) + 1.
func MipLevelsFor(width, height uint32) uint32 {
	levels := uint32(1)
	size := math.Max(width, height)
	for size > 1 {
		size /= 2
		levels++
	}
	return levels
}

// MipExtent returns the dimensions of the given mip level: each level halves
// the previous one, clamped at 1.
func MipExtent(width, height, level uint32) (uint32, uint32) {
	for i := uint32(0); i < level; i++ {
		if width > 1 {
			width /= 2
		}
		if height > 1 {
			height /= 2
		}
	}
	return width, height
}

type ImageConfig struct {
	Width       uint32
	Height      uint32
	Format      vk.Format
	Tiling      vk.ImageTiling
	Usage       vk.ImageUsageFlags
	MemoryFlags vk.MemoryPropertyFlags
	MipLevels   uint32
	Samples     vk.SampleCountFlagBits
	CreateView  bool
	ViewAspect  vk.ImageAspectFlags
}

func NewImage(context *Context, config *ImageConfig) (*Image, error) {
	if config.MipLevels == 0 {
		config.MipLevels = 1
	}
	if config.Samples == 0 {
		config.Samples = vk.SampleCount1Bit
	}

	image := &Image{
		Width:     config.Width,
		Height:    config.Height,
		Format:    config.Format,
		MipLevels: config.MipLevels,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  config.Width,
			Height: config.Height,
			Depth:  1,
		},
		MipLevels:     config.MipLevels,
		ArrayLayers:   1,
		Format:        config.Format,
		Tiling:        config.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         config.Usage,
		Samples:       config.Samples,
		SharingMode:   vk.SharingModeExclusive,
	}

	var handle vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create image: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	image.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, config.MemoryFlags)
	if memoryIndex == -1 {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		return nil, fmt.Errorf("no suitable memory type for image")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory)
	if res == vk.ErrorOutOfDeviceMemory {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		return nil, ErrOutOfDeviceMemory
	}
	if res != vk.Success {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		err := fmt.Errorf("failed to allocate image memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	image.Memory = memory

	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		image.destroyHandles(context)
		err := fmt.Errorf("failed to bind image memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if config.CreateView {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image.Handle,
			ViewType: vk.ImageViewType2d,
			Format:   config.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     config.ViewAspect,
				BaseMipLevel:   0,
				LevelCount:     config.MipLevels,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		var view vk.ImageView
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
			image.destroyHandles(context)
			err := fmt.Errorf("failed to create image view: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		image.View = view
	}

	image.ID = context.Registry.Register(resources.KindImage)
	return image, nil
}

func (i *Image) Destroy(context *Context) {
	if i.Handle == nil {
		return
	}
	i.destroyHandles(context)
	if err := context.Registry.Release(i.ID); err != nil {
		core.LogWarn(err.Error())
	}
}

func (i *Image) destroyHandles(context *Context) {
	if i.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, i.View, context.Allocator)
		i.View = nil
	}
	if i.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, i.Memory, context.Allocator)
		i.Memory = nil
	}
	if i.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, i.Handle, context.Allocator)
		i.Handle = nil
	}
}

// TransitionLayout records a layout transition covering the given mip range
// into the command buffer, with the access and stage masks the transition
// pair requires.
func (i *Image) TransitionLayout(commandBuffer *CommandBuffer, oldLayout, newLayout vk.ImageLayout, baseMip, mipCount uint32) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               i.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   baseMip,
			LevelCount:     mipCount,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var sourceStage, destinationStage vk.PipelineStageFlags

	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		sourceStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		destinationStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutTransferSrcOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		sourceStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		destinationStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		sourceStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		destinationStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case oldLayout == vk.ImageLayoutTransferSrcOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		sourceStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		destinationStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return fmt.Errorf("unsupported layout transition %d -> %d", oldLayout, newLayout)
	}

	vk.CmdPipelineBarrier(
		commandBuffer.Handle,
		sourceStage, destinationStage,
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// CopyFromBuffer records a full-extent copy of the staging buffer into mip
// level 0. The image must be in TransferDstOptimal.
func (i *Image) CopyFromBuffer(commandBuffer *CommandBuffer, buffer *Buffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  i.Width,
			Height: i.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(
		commandBuffer.Handle,
		buffer.Handle,
		i.Handle,
		vk.ImageLayoutTransferDstOptimal,
		1, []vk.BufferImageCopy{region})
}
