package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
)

// fenceWaitTimeout bounds how long a frame waits for its slot's previous
// submission before giving up with ErrFenceTimeout.
const fenceWaitTimeout uint64 = 1_000_000_000

// FrameSlot owns the per-frame-in-flight resources: one command buffer, the
// fence guarding its reuse and the two semaphores ordering acquire against
// submit and submit against present.
type FrameSlot struct {
	CommandBuffer  *CommandBuffer
	InFlightFence  *Fence
	ImageAvailable vk.Semaphore
	RenderComplete vk.Semaphore
}

// FrameLoop cycles through N frame slots so the CPU can record frame F+1
// while the GPU executes frame F. All slot resources belong to one window.
type FrameLoop struct {
	Slots        []*FrameSlot
	FrameCounter uint64
}

// SlotIndexFor maps the monotonic frame counter onto a slot.
func SlotIndexFor(frameCounter uint64, slotCount uint32) uint32 {
	return uint32(frameCounter % uint64(slotCount))
}

func NewFrameLoop(context *Context, framesInFlight uint32) (*FrameLoop, error) {
	loop := &FrameLoop{
		Slots: make([]*FrameSlot, framesInFlight),
	}

	for i := range loop.Slots {
		commandBuffer, err := NewCommandBuffer(context, context.Device.GraphicsCommandPool, true)
		if err != nil {
			loop.Destroy(context)
			return nil, err
		}
		// Created signaled so the very first frame does not wait.
		fence, err := NewFence(context, true)
		if err != nil {
			loop.Destroy(context)
			return nil, err
		}

		slot := &FrameSlot{
			CommandBuffer: commandBuffer,
			InFlightFence: fence,
		}
		if slot.ImageAvailable, err = newSemaphore(context); err != nil {
			loop.Destroy(context)
			return nil, err
		}
		if slot.RenderComplete, err = newSemaphore(context); err != nil {
			loop.Destroy(context)
			return nil, err
		}
		loop.Slots[i] = slot
	}

	return loop, nil
}

func (l *FrameLoop) Destroy(context *Context) {
	for _, slot := range l.Slots {
		if slot == nil {
			continue
		}
		if slot.ImageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(context.Device.LogicalDevice, slot.ImageAvailable, context.Allocator)
		}
		if slot.RenderComplete != vk.NullSemaphore {
			vk.DestroySemaphore(context.Device.LogicalDevice, slot.RenderComplete, context.Allocator)
		}
		if slot.InFlightFence != nil {
			slot.InFlightFence.Destroy(context)
		}
		if slot.CommandBuffer != nil && slot.CommandBuffer.Handle != nil {
			slot.CommandBuffer.Free(context, context.Device.GraphicsCommandPool)
		}
	}
	l.Slots = nil
}

// CurrentSlot returns the slot the next frame will record into.
func (l *FrameLoop) CurrentSlot() *FrameSlot {
	return l.Slots[SlotIndexFor(l.FrameCounter, uint32(len(l.Slots)))]
}

// BeginFrame waits for the slot's previous submission, acquires a swapchain
// image and starts recording. ErrSwapchainStale propagates so the caller can
// rebuild the swapchain; the frame counter is not advanced in that case.
func (l *FrameLoop) BeginFrame(context *Context, swapchain *Swapchain) (*FrameSlot, uint32, error) {
	slot := l.CurrentSlot()

	if err := slot.InFlightFence.Wait(context, fenceWaitTimeout); err != nil {
		return nil, 0, err
	}

	imageIndex, err := swapchain.AcquireNextImageIndex(context, vk.MaxUint64, slot.ImageAvailable, vk.NullFence)
	if err != nil {
		return nil, 0, err
	}

	// Only reset after a successful acquire; a stale acquire must leave the
	// fence signaled for the retry.
	if err := slot.InFlightFence.Reset(context); err != nil {
		return nil, 0, err
	}

	slot.CommandBuffer.Reset()
	if err := slot.CommandBuffer.Begin(false, false, false); err != nil {
		return nil, 0, err
	}

	return slot, imageIndex, nil
}

// EndFrame finishes recording, submits with the acquire semaphore gating the
// color output stage and presents. The frame counter advances even when the
// present reports the swapchain stale: that frame was consumed.
func (l *FrameLoop) EndFrame(context *Context, swapchain *Swapchain, slot *FrameSlot, imageIndex uint32) error {
	if err := slot.CommandBuffer.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{slot.ImageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{slot.CommandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.RenderComplete},
	}

	result := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, slot.InFlightFence.Handle)
	if result == vk.ErrorDeviceLost {
		return ErrDeviceLost
	}
	if result != vk.Success {
		err := fmt.Errorf("frame submit failed: %s", VulkanResultString(result))
		core.LogError(err.Error())
		return err
	}
	slot.CommandBuffer.UpdateSubmitted()

	err := swapchain.Present(context, context.Device.PresentQueue, slot.RenderComplete, imageIndex)
	l.FrameCounter++
	return err
}

func newSemaphore(context *Context) (vk.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &createInfo, context.Allocator, &semaphore); res != vk.Success {
		err := fmt.Errorf("failed to create semaphore: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullSemaphore, err
	}
	return semaphore, nil
}
