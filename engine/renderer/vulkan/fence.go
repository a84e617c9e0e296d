package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
)

type Fence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *Context, createSignaled bool) (*Fence, error) {
	fence := &Fence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		err := fmt.Errorf("failed to create fence: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (f *Fence) Destroy(context *Context) {
	if f.Handle != nil {
		vk.DestroyFence(context.Device.LogicalDevice, f.Handle, context.Allocator)
		f.Handle = nil
	}
	f.IsSignaled = false
}

// Wait blocks until the fence signals or the timeout expires. Timeout and
// device loss are surfaced as the fatal sentinel errors; both terminate the
// owning window's rendering.
func (f *Fence) Wait(context *Context, timeoutNs uint64) error {
	if f.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{f.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		f.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogError("fence wait timed out after %d ns", timeoutNs)
		return ErrFenceTimeout
	case vk.ErrorDeviceLost:
		core.LogError("fence wait: device lost")
		return ErrDeviceLost
	default:
		return fmt.Errorf("fence wait failed: %s", VulkanResultString(result))
	}
}

func (f *Fence) Reset(context *Context) error {
	if !f.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{f.Handle}); res != vk.Success {
		err := fmt.Errorf("failed to reset fence: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	f.IsSignaled = false
	return nil
}
