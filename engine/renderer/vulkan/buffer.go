package vulkan

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
	"github.com/spectralab/spectra/engine/resources"
)

// Buffer wraps a Vulkan buffer and its backing memory allocation.
type Buffer struct {
	ID                  uuid.UUID
	Handle              vk.Buffer
	Memory              vk.DeviceMemory
	TotalSize           vk.DeviceSize
	Usage               vk.BufferUsageFlags
	MemoryPropertyFlags vk.MemoryPropertyFlags

	// Non-nil while the buffer is persistently mapped.
	MappedPtr unsafe.Pointer
}

func NewBuffer(context *Context, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*Buffer, error) {
	buffer := &Buffer{
		TotalSize:           size,
		Usage:               usage,
		MemoryPropertyFlags: memoryFlags,
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if memoryIndex == -1 {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		return nil, fmt.Errorf("no suitable memory type for buffer")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}

	var memory vk.DeviceMemory
	res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory)
	if res == vk.ErrorOutOfDeviceMemory {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		return nil, ErrOutOfDeviceMemory
	}
	if res != vk.Success {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		err := fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.free(context)
		err := fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	buffer.ID = context.Registry.Register(resources.KindBuffer)
	return buffer, nil
}

func (b *Buffer) Destroy(context *Context) {
	if b.Handle == nil {
		return
	}
	if b.MappedPtr != nil {
		b.Unmap(context)
	}
	b.free(context)
	if err := context.Registry.Release(b.ID); err != nil {
		core.LogWarn(err.Error())
	}
}

func (b *Buffer) free(context *Context) {
	if b.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = nil
	}
	if b.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = nil
	}
	b.TotalSize = 0
}

// Map exposes the buffer's memory to the host. Only valid on host-visible
// buffers. The pointer stays valid until Unmap.
func (b *Buffer) Map(context *Context) (unsafe.Pointer, error) {
	if b.MappedPtr != nil {
		return b.MappedPtr, nil
	}
	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, b.TotalSize, 0, &ptr); res != vk.Success {
		return nil, fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res))
	}
	b.MappedPtr = ptr
	return ptr, nil
}

func (b *Buffer) Unmap(context *Context) {
	if b.MappedPtr == nil {
		return
	}
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	b.MappedPtr = nil
}

// LoadData maps, copies and unmaps. For frequently rewritten buffers prefer
// keeping the mapping open and writing through MappedPtr.
func (b *Buffer) LoadData(context *Context, offset vk.DeviceSize, data []byte) error {
	ptr, err := b.Map(context)
	if err != nil {
		return err
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr)+uintptr(offset))), len(data))
	copy(dst, data)
	b.Unmap(context)
	return nil
}

// stagingSlot is one pooled host-visible buffer and whether it is handed out.
type stagingSlot struct {
	buffer *Buffer
	inUse  bool
}

// Uploader moves CPU data into device-local buffers and images through a pool
// of host-visible staging buffers. Staging buffers are reused across uploads;
// the pool only ever grows to the largest upload seen. A staging buffer is
// never recycled while its copy may still be in flight: every upload submits
// on the graphics queue and waits for completion before release.
type Uploader struct {
	context *Context

	mutex sync.Mutex
	pool  []*stagingSlot
}

func NewUploader(context *Context) *Uploader {
	return &Uploader{context: context}
}

func (u *Uploader) Destroy() {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	for _, slot := range u.pool {
		slot.buffer.Destroy(u.context)
	}
	u.pool = nil
}

// pickStagingIndex returns the index of the smallest free slot that still
// fits need, or -1 when a new staging buffer must be created.
func pickStagingIndex(sizes []uint64, free []bool, need uint64) int {
	best := -1
	for i, size := range sizes {
		if !free[i] || size < need {
			continue
		}
		if best == -1 || size < sizes[best] {
			best = i
		}
	}
	return best
}

func (u *Uploader) acquireStaging(size vk.DeviceSize) (*stagingSlot, error) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	sizes := make([]uint64, len(u.pool))
	free := make([]bool, len(u.pool))
	for i, slot := range u.pool {
		sizes[i] = uint64(slot.buffer.TotalSize)
		free[i] = !slot.inUse
	}
	if idx := pickStagingIndex(sizes, free, uint64(size)); idx >= 0 {
		u.pool[idx].inUse = true
		return u.pool[idx], nil
	}

	buffer, err := NewBuffer(
		u.context,
		size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, err
	}
	slot := &stagingSlot{buffer: buffer, inUse: true}
	u.pool = append(u.pool, slot)
	return slot, nil
}

func (u *Uploader) releaseStaging(slot *stagingSlot) {
	u.mutex.Lock()
	slot.inUse = false
	u.mutex.Unlock()
}

// uploadRetryable reports whether a failed upload is worth one retry after
// shrinking the staging pool.
func uploadRetryable(err error) bool {
	return errors.Is(err, ErrOutOfDeviceMemory)
}

// UploadBuffer copies data into a new device-local buffer with the given
// usage. The destination is not readable by any pipeline stage until the
// recorded copy-and-barrier sequence completes on the graphics queue, which
// this call waits for. Allocation exhaustion shrinks the idle staging pool
// and retries once; a second failure surfaces as ErrOutOfDeviceMemory for
// the caller to defer.
func (u *Uploader) UploadBuffer(data []byte, usage vk.BufferUsageFlags) (*Buffer, error) {
	buffer, err := u.uploadBuffer(data, usage)
	if uploadRetryable(err) {
		core.LogWarn("upload of %d bytes hit device memory pressure; shrinking staging pool and retrying", len(data))
		u.ShrinkPool()
		return u.uploadBuffer(data, usage)
	}
	return buffer, err
}

func (u *Uploader) uploadBuffer(data []byte, usage vk.BufferUsageFlags) (*Buffer, error) {
	size := vk.DeviceSize(len(data))
	if size == 0 {
		return nil, fmt.Errorf("cannot upload empty buffer")
	}

	staging, err := u.acquireStaging(size)
	if err != nil {
		return nil, err
	}
	defer u.releaseStaging(staging)

	if err := staging.buffer.LoadData(u.context, 0, data); err != nil {
		return nil, err
	}

	destination, err := NewBuffer(
		u.context,
		size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return nil, err
	}

	commandBuffer, err := AllocateAndBeginSingleUse(u.context, u.context.Device.GraphicsCommandPool)
	if err != nil {
		destination.Destroy(u.context)
		return nil, err
	}

	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(commandBuffer.Handle, staging.buffer.Handle, destination.Handle, 1, []vk.BufferCopy{copyRegion})

	// The destination must not be read until the transfer is visible to the
	// consuming stages.
	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessVertexAttributeReadBit | vk.AccessIndexReadBit | vk.AccessShaderReadBit),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              destination.Handle,
		Offset:              0,
		Size:                size,
	}
	vk.CmdPipelineBarrier(
		commandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit|vk.PipelineStageVertexShaderBit),
		0,
		0, nil,
		1, []vk.BufferMemoryBarrier{barrier},
		0, nil)

	if err := commandBuffer.EndSingleUse(u.context, u.context.Device.GraphicsCommandPool, u.context.Device.GraphicsQueue); err != nil {
		destination.Destroy(u.context)
		return nil, err
	}

	return destination, nil
}

// Readback copies a device-local buffer back to the host. Test harness path
// for verifying upload round trips; not used during rendering.
func (u *Uploader) Readback(buffer *Buffer) ([]byte, error) {
	readback, err := NewBuffer(
		u.context,
		buffer.TotalSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, err
	}
	defer readback.Destroy(u.context)

	commandBuffer, err := AllocateAndBeginSingleUse(u.context, u.context.Device.GraphicsCommandPool)
	if err != nil {
		return nil, err
	}
	copyRegion := vk.BufferCopy{Size: buffer.TotalSize}
	vk.CmdCopyBuffer(commandBuffer.Handle, buffer.Handle, readback.Handle, 1, []vk.BufferCopy{copyRegion})
	if err := commandBuffer.EndSingleUse(u.context, u.context.Device.GraphicsCommandPool, u.context.Device.GraphicsQueue); err != nil {
		return nil, err
	}

	ptr, err := readback.Map(u.context)
	if err != nil {
		return nil, err
	}
	data := make([]byte, buffer.TotalSize)
	copy(data, unsafe.Slice((*byte)(ptr), int(buffer.TotalSize)))
	readback.Unmap(u.context)
	return data, nil
}

// ShrinkPool drops all idle staging buffers, releasing their device memory.
// Used when an upload hits allocation pressure.
func (u *Uploader) ShrinkPool() {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	kept := u.pool[:0]
	for _, slot := range u.pool {
		if slot.inUse {
			kept = append(kept, slot)
			continue
		}
		slot.buffer.Destroy(u.context)
	}
	u.pool = kept
}
