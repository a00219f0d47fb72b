package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
)

// VulkanContext is the rendering context handed to samples. The device,
// render pass, swapchain framebuffers and draw command buffers are owned
// here and borrowed by the active sample, which must not outlive it.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32
	// Current generation of framebuffer size. If it does not match
	// FramebufferSizeLastGeneration, the swapchain must be regenerated.
	FramebufferSizeGeneration     uint64
	FramebufferSizeLastGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	// Features reported by the selected physical device. Samples consult
	// this before enabling optional sampler state such as anisotropy.
	GPUFeatures vk.PhysicalDeviceFeatures

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	PipelineCache vk.PipelineCache

	// One draw command buffer per swapchain image. Allocated on demand by
	// the active sample via CreateDrawCommandBuffers.
	DrawCmdBuffers []*VulkanCommandBuffer

	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore

	InFlightFences []*VulkanFence
	// Holds pointers to fences which exist and are owned elsewhere.
	ImagesInFlight []*VulkanFence

	ImageIndex   uint32
	CurrentFrame uint32

	RecreatingSwapchain bool
}

// FindMemoryIndex locates a memory type matching the filter and the
// requested property flags, or -1 when the device has none.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("unable to find suitable memory type")
	return -1
}

// CreateDrawCommandBuffers allocates one primary command buffer per
// swapchain image. Existing buffers are freed first, so the call is safe
// to repeat after a resize.
func (vc *VulkanContext) CreateDrawCommandBuffers() error {
	vc.DestroyDrawCommandBuffers()

	count := int(vc.Swapchain.ImageCount)
	vc.DrawCmdBuffers = make([]*VulkanCommandBuffer, count)
	for i := 0; i < count; i++ {
		cb, err := NewVulkanCommandBuffer(vc, vc.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vc.DrawCmdBuffers[i] = cb
	}
	core.LogDebug("draw command buffers created (%d)", count)
	return nil
}

// DestroyDrawCommandBuffers returns all draw command buffers to the pool.
func (vc *VulkanContext) DestroyDrawCommandBuffers() {
	for _, cb := range vc.DrawCmdBuffers {
		if cb != nil && cb.Handle != nil {
			cb.Free(vc, vc.Device.GraphicsCommandPool)
		}
	}
	vc.DrawCmdBuffers = nil
}
