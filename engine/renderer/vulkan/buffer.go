package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
)

// VulkanBuffer wraps a vk.Buffer with its backing memory. Descriptor is
// kept up to date so the buffer can be referenced from descriptor writes
// without recomputing it.
type VulkanBuffer struct {
	Handle     vk.Buffer
	Memory     vk.DeviceMemory
	Size       vk.DeviceSize
	Descriptor vk.DescriptorBufferInfo
}

// NewBuffer creates a buffer, allocates memory with the requested property
// flags and binds it. When data is non-nil the buffer memory is mapped and
// filled, which requires host-visible memory.
func NewBuffer(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags, data []byte) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		Size: size,
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateBuffer failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryIndex := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex == -1 {
		err := fmt.Errorf("unable to create buffer because the required memory type index was not found")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkAllocateMemory failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkBindBufferMemory failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	buffer.Descriptor = vk.DescriptorBufferInfo{
		Buffer: buffer.Handle,
		Offset: 0,
		Range:  size,
	}

	if data != nil {
		if err := buffer.Load(context, 0, data); err != nil {
			return nil, err
		}
	}

	return buffer, nil
}

// Load copies data into the buffer at the given offset. The buffer memory
// must be host visible.
func (vb *VulkanBuffer) Load(context *VulkanContext, offset vk.DeviceSize, data []byte) error {
	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, vb.Memory, offset, vk.DeviceSize(len(data)), 0, &pData); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkMapMemory failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	return nil
}

// CopyTo records and submits a single-use transfer from this buffer into
// dest on the graphics queue, waiting for completion.
func (vb *VulkanBuffer) CopyTo(context *VulkanContext, dest *VulkanBuffer, size vk.DeviceSize) error {
	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}

	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(cb.Handle, vb.Handle, dest.Handle, 1, []vk.BufferCopy{copyRegion})

	return cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue)
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	vb.Size = 0
}
