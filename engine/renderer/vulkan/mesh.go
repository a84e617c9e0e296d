package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/math"
	"github.com/spectralab/spectra/engine/resources"
)

// Mesh is geometry resident in device-local memory: one vertex buffer, one
// index buffer and the material it samples.
type Mesh struct {
	Name          string
	VertexBuffer  *Buffer
	IndexBuffer   *Buffer
	IndexCount    uint32
	MaterialIndex uint32
}

func NewMesh(context *Context, uploader *Uploader, data *resources.MeshData) (*Mesh, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("mesh %s has no geometry", data.Name)
	}

	vertexBuffer, err := uploader.UploadBuffer(
		vertexBytes(data.Vertices),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, err
	}

	indexBuffer, err := uploader.UploadBuffer(
		indexBytes(data.Indices),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vertexBuffer.Destroy(context)
		return nil, err
	}

	return &Mesh{
		Name:          data.Name,
		VertexBuffer:  vertexBuffer,
		IndexBuffer:   indexBuffer,
		IndexCount:    uint32(len(data.Indices)),
		MaterialIndex: data.MaterialIndex,
	}, nil
}

func (m *Mesh) Destroy(context *Context) {
	if m.VertexBuffer != nil {
		m.VertexBuffer.Destroy(context)
		m.VertexBuffer = nil
	}
	if m.IndexBuffer != nil {
		m.IndexBuffer.Destroy(context)
		m.IndexBuffer = nil
	}
}

// Draw binds the mesh's geometry plus the instance buffer on binding 1 and
// issues one instanced indexed draw.
func (m *Mesh) Draw(commandBuffer *CommandBuffer, instanceBuffer *Buffer, instanceCount uint32) {
	vk.CmdBindVertexBuffers(
		commandBuffer.Handle,
		0, 2,
		[]vk.Buffer{m.VertexBuffer.Handle, instanceBuffer.Handle},
		[]vk.DeviceSize{0, 0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, m.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(commandBuffer.Handle, m.IndexCount, instanceCount, 0, 0, 0)
}

// InstanceBuffer holds one persistently mapped host-visible buffer of model
// matrices per frame slot. Transforms are rewritten in full every frame; a
// slot's buffer is only written after its fence wait, so the GPU never reads
// a buffer mid-update.
type InstanceBuffer struct {
	Slots    []*Buffer
	Capacity uint32
}

func NewInstanceBuffer(context *Context, framesInFlight, capacity uint32) (*InstanceBuffer, error) {
	if capacity == 0 {
		capacity = 1
	}
	instanceBuffer := &InstanceBuffer{
		Slots:    make([]*Buffer, framesInFlight),
		Capacity: capacity,
	}
	for i := range instanceBuffer.Slots {
		buffer, err := newInstanceSlot(context, capacity)
		if err != nil {
			instanceBuffer.Destroy(context)
			return nil, err
		}
		instanceBuffer.Slots[i] = buffer
	}
	return instanceBuffer, nil
}

func newInstanceSlot(context *Context, capacity uint32) (*Buffer, error) {
	buffer, err := NewBuffer(
		context,
		vk.DeviceSize(capacity)*vk.DeviceSize(InstanceStride),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if _, err := buffer.Map(context); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

func (b *InstanceBuffer) Destroy(context *Context) {
	for _, slot := range b.Slots {
		if slot != nil {
			slot.Destroy(context)
		}
	}
	b.Slots = nil
}

// Write copies the transforms into the given frame slot's buffer, growing it
// first when the instance count exceeds the current capacity. Growth replaces
// only that slot's buffer; the other slots grow lazily as their turn comes.
func (b *InstanceBuffer) Write(context *Context, slotIndex uint32, transforms []math.Mat4) error {
	if uint32(len(transforms)) > b.Capacity {
		b.Capacity = uint32(len(transforms))
	}
	slot := b.Slots[slotIndex]
	needed := vk.DeviceSize(b.Capacity) * vk.DeviceSize(InstanceStride)
	if slot.TotalSize < needed {
		replacement, err := newInstanceSlot(context, b.Capacity)
		if err != nil {
			return err
		}
		slot.Destroy(context)
		b.Slots[slotIndex] = replacement
		slot = replacement
	}

	if len(transforms) == 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&transforms[0])), len(transforms)*int(InstanceStride))
	dst := unsafe.Slice((*byte)(slot.MappedPtr), len(src))
	copy(dst, src)
	return nil
}

// Slot returns the buffer bound on the instance binding for a frame slot.
func (b *InstanceBuffer) Slot(slotIndex uint32) *Buffer {
	return b.Slots[slotIndex]
}

func vertexBytes(vertices []math.Vertex3D) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(unsafe.Sizeof(vertices[0])))
}

func indexBytes(indices []uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}
