package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// VulkanBuffer is a host visible, persistently mapped buffer.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize

	mapped unsafe.Pointer
}

// NewHostBuffer creates a buffer of size bytes backed by host coherent
// memory and maps it for its whole lifetime.
func NewHostBuffer(device *VulkanDevice, size int, usage vk.BufferUsageFlagBits) (*VulkanBuffer, error) {
	b := &VulkanBuffer{Size: vk.DeviceSize(size)}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        b.Size,
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(device.LogicalDevice, &createInfo, device.allocator, &b.Handle); res != vk.Success {
		return nil, resultError("vkCreateBuffer", res)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.LogicalDevice, b.Handle, &requirements)
	requirements.Deref()

	memoryType, err := device.FindMemoryIndex(requirements.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		b.Destroy(device)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	if res := vk.AllocateMemory(device.LogicalDevice, &allocateInfo, device.allocator, &b.Memory); res != vk.Success {
		b.Destroy(device)
		return nil, resultError("vkAllocateMemory", res)
	}
	if res := vk.BindBufferMemory(device.LogicalDevice, b.Handle, b.Memory, 0); res != vk.Success {
		b.Destroy(device)
		return nil, resultError("vkBindBufferMemory", res)
	}
	if res := vk.MapMemory(device.LogicalDevice, b.Memory, 0, b.Size, 0, &b.mapped); res != vk.Success {
		b.Destroy(device)
		return nil, resultError("vkMapMemory", res)
	}
	return b, nil
}

// Write copies data to the start of the buffer.
func (b *VulkanBuffer) Write(data []byte) error {
	if b.mapped == nil {
		return fmt.Errorf("write to unmapped buffer")
	}
	if vk.DeviceSize(len(data)) > b.Size {
		return fmt.Errorf("write of %d bytes into a %d byte buffer", len(data), b.Size)
	}
	vk.Memcopy(b.mapped, data)
	return nil
}

func (b *VulkanBuffer) Destroy(device *VulkanDevice) {
	if b.mapped != nil {
		vk.UnmapMemory(device.LogicalDevice, b.Memory)
		b.mapped = nil
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device.LogicalDevice, b.Handle, device.allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device.LogicalDevice, b.Memory, device.allocator)
		b.Memory = vk.NullDeviceMemory
	}
}
