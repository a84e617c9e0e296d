package vulkan

import (
	"fmt"

	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
	"github.com/spectralab/spectra/engine/resources"
)

// Texture is a sampled, mipmapped device-local image plus the sampler used to
// read it from fragment shaders.
type Texture struct {
	Name      string
	Image     *Image
	Sampler   vk.Sampler
	SamplerID uuid.UUID
	Width     uint32
	Height    uint32
}

// NewTexture uploads RGBA8 pixel data into a device-local image, generates its
// full mip chain on the GPU and creates a trilinear anisotropic sampler. On
// return the whole chain is in ShaderReadOnlyOptimal.
func NewTexture(context *Context, uploader *Uploader, data *resources.ImageData) (*Texture, error) {
	if data.ChannelCount != 4 {
		return nil, fmt.Errorf("texture %s: expected 4 channels, got %d", data.Name, data.ChannelCount)
	}
	if len(data.Pixels) != int(data.Width)*int(data.Height)*4 {
		return nil, fmt.Errorf("texture %s: pixel data size mismatch", data.Name)
	}

	format := vk.FormatR8g8b8a8Srgb
	if !DeviceSupportsMipBlit(context.Device, format) {
		return nil, fmt.Errorf("texture %s: device cannot blit-generate mips for format %d", data.Name, format)
	}

	mipLevels := MipLevelsFor(data.Width, data.Height)

	image, err := NewImage(context, &ImageConfig{
		Width:     data.Width,
		Height:    data.Height,
		Format:    format,
		Tiling:    vk.ImageTilingOptimal,
		MipLevels: mipLevels,
		Usage: vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit |
			vk.ImageUsageTransferDstBit |
			vk.ImageUsageSampledBit),
		MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		CreateView:  true,
		ViewAspect:  vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		return nil, err
	}

	if err := uploader.UploadImage(image, data.Pixels); err != nil {
		image.Destroy(context)
		return nil, err
	}

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           context.Device.Properties.Limits.MaxSamplerAnisotropy,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  float32(mipLevels),
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler); res != vk.Success {
		image.Destroy(context)
		err := fmt.Errorf("failed to create sampler for %s: %s", data.Name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &Texture{
		Name:      data.Name,
		Image:     image,
		Sampler:   sampler,
		SamplerID: context.Registry.Register(resources.KindSampler),
		Width:     data.Width,
		Height:    data.Height,
	}, nil
}

func (t *Texture) Destroy(context *Context) {
	if t.Sampler != nil {
		vk.DestroySampler(context.Device.LogicalDevice, t.Sampler, context.Allocator)
		t.Sampler = nil
		if err := context.Registry.Release(t.SamplerID); err != nil {
			core.LogWarn(err.Error())
		}
	}
	if t.Image != nil {
		t.Image.Destroy(context)
		t.Image = nil
	}
}

// UploadImage stages pixel data into mip level 0 of the image and blits the
// remaining levels, leaving the full chain in ShaderReadOnlyOptimal. The
// submit is waited on before the staging buffer is released.
func (u *Uploader) UploadImage(image *Image, pixels []byte) error {
	size := vk.DeviceSize(len(pixels))
	staging, err := u.acquireStaging(size)
	if err != nil {
		return err
	}
	defer u.releaseStaging(staging)

	if err := staging.buffer.LoadData(u.context, 0, pixels); err != nil {
		return err
	}

	commandBuffer, err := AllocateAndBeginSingleUse(u.context, u.context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}

	if err := image.TransitionLayout(commandBuffer, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, 0, image.MipLevels); err != nil {
		return err
	}
	image.CopyFromBuffer(commandBuffer, staging.buffer)

	if err := generateMipmaps(commandBuffer, image); err != nil {
		return err
	}

	return commandBuffer.EndSingleUse(u.context, u.context.Device.GraphicsCommandPool, u.context.Device.GraphicsQueue)
}

// generateMipmaps records a chain of linear blits, each level sourced from the
// one above it. Every source level moves TransferDst -> TransferSrc before its
// blit and to ShaderReadOnly afterwards; the final level goes straight from
// TransferDst to ShaderReadOnly.
func generateMipmaps(commandBuffer *CommandBuffer, image *Image) error {
	srcWidth, srcHeight := image.Width, image.Height

	for level := uint32(1); level < image.MipLevels; level++ {
		if err := image.TransitionLayout(commandBuffer, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, level-1, 1); err != nil {
			return err
		}

		dstWidth, dstHeight := MipExtent(image.Width, image.Height, level)
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       level - 1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcOffsets: [2]vk.Offset3D{
				{X: 0, Y: 0, Z: 0},
				{X: int32(srcWidth), Y: int32(srcHeight), Z: 1},
			},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       level,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			DstOffsets: [2]vk.Offset3D{
				{X: 0, Y: 0, Z: 0},
				{X: int32(dstWidth), Y: int32(dstHeight), Z: 1},
			},
		}
		vk.CmdBlitImage(
			commandBuffer.Handle,
			image.Handle, vk.ImageLayoutTransferSrcOptimal,
			image.Handle, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{blit},
			vk.FilterLinear)

		if err := image.TransitionLayout(commandBuffer, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, level-1, 1); err != nil {
			return err
		}

		srcWidth, srcHeight = dstWidth, dstHeight
	}

	return image.TransitionLayout(commandBuffer, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, image.MipLevels-1, 1)
}
