package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
)

// DescriptorState owns the single combined-image-sampler set layout shared by
// every graphics pipeline, and the pool texture sets are allocated from.
type DescriptorState struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
}

func NewDescriptorState(context *Context, maxTextures uint32) (*DescriptorState, error) {
	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	poolSize := vk.DescriptorPoolSize{
		Type:            vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: maxTextures,
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: 1,
		PPoolSizes:    []vk.DescriptorPoolSize{poolSize},
		MaxSets:       maxTextures,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
		err := fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &DescriptorState{Layout: layout, Pool: pool}, nil
}

func (d *DescriptorState) Destroy(context *Context) {
	if d.Pool != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, d.Pool, context.Allocator)
		d.Pool = nil
	}
	if d.Layout != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, d.Layout, context.Allocator)
		d.Layout = nil
	}
}

// Reset returns every allocated set to the pool. Used when textures are
// replaced wholesale (hot reload); all sets must be reallocated afterwards.
func (d *DescriptorState) Reset(context *Context) error {
	if res := vk.ResetDescriptorPool(context.Device.LogicalDevice, d.Pool, 0); res != vk.Success {
		return fmt.Errorf("failed to reset descriptor pool: %s", VulkanResultString(res))
	}
	return nil
}

// AllocateTextureSet allocates one descriptor set and points its binding at
// the texture. Sets live as long as the pool; they are never freed one by one.
func (d *DescriptorState) AllocateTextureSet(context *Context, texture *Texture) (vk.DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{d.Layout},
	}

	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &set); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor set for %s: %s", texture.Name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	imageInfo := vk.DescriptorImageInfo{
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		ImageView:   texture.Image.View,
		Sampler:     texture.Sampler,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)

	return set, nil
}
