package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	SwapchainSupport *VulkanSwapchainSupportInfo

	DepthFormat vk.Format
}

type vulkanPhysicalDeviceQueueFamilyInfo struct {
	graphicsFamilyIndex int32
	presentFamilyIndex  int32
}

// DeviceCreate selects a physical device with graphics and present queues,
// creates the logical device, retrieves the queues and builds the graphics
// command pool.
func DeviceCreate(context *VulkanContext) error {
	if err := selectPhysicalDevice(context); err != nil {
		return err
	}

	device := context.Device

	// Do not create additional queues for shared indices.
	sharedPresent := device.GraphicsQueueIndex == device.PresentQueueIndex

	queuePriorities := []float32{1.0}
	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: queuePriorities,
	}}
	if !sharedPresent {
		queueCreateInfos = append(queueCreateInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: device.PresentQueueIndex,
			QueueCount:       1,
			PQueuePriorities: queuePriorities,
		})
	}

	// Request anisotropic filtering when the hardware has it; samples check
	// GPUFeatures before relying on it.
	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: device.Features.SamplerAnisotropy,
	}

	extensionNames := VulkanSafeStrings([]string{vk.KhrSwapchainExtensionName})

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: extensionNames,
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateDevice failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("logical device created")

	vk.GetDeviceQueue(device.LogicalDevice, device.GraphicsQueueIndex, 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.PresentQueueIndex, 0, &device.PresentQueue)

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateCommandPool failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	device.GraphicsCommandPool = pool

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}

	if device.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = vk.NullCommandPool
	}

	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	device.PhysicalDevice = nil
	device.GraphicsQueue = nil
	device.PresentQueue = nil
}

// DeviceQuerySwapchainSupport fills supportInfo with the surface
// capabilities, formats and present modes of the physical device.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkGetPhysicalDeviceSurfaceCapabilitiesKHR failed with %s", VulkanResultString(res))
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkGetPhysicalDeviceSurfaceFormatsKHR failed with %s", VulkanResultString(res))
	}
	supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
	if formatCount > 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkGetPhysicalDeviceSurfaceFormatsKHR failed with %s", VulkanResultString(res))
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}
	supportInfo.FormatCount = formatCount

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkGetPhysicalDeviceSurfacePresentModesKHR failed with %s", VulkanResultString(res))
	}
	supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
	if presentModeCount > 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkGetPhysicalDeviceSurfacePresentModesKHR failed with %s", VulkanResultString(res))
		}
	}
	supportInfo.PresentModeCount = presentModeCount

	return nil
}

// DeviceDetectDepthFormat picks the first depth format with optimal tiling
// support, preferring higher precision.
func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)

	for _, format := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, format, &properties)
		properties.Deref()

		if (properties.OptimalTilingFeatures & flags) == flags {
			device.DepthFormat = format
			return true
		}
	}
	return false
}

func selectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res))
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found")
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res))
	}

	for _, candidate := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(candidate, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(candidate, &memory)
		memory.Deref()

		queueInfo := vulkanPhysicalDeviceQueueFamilyInfo{
			graphicsFamilyIndex: -1,
			presentFamilyIndex:  -1,
		}

		var queueFamilyCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(candidate, &queueFamilyCount, nil)
		queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(candidate, &queueFamilyCount, queueFamilies)

		for i := uint32(0); i < queueFamilyCount; i++ {
			queueFamilies[i].Deref()

			if queueInfo.graphicsFamilyIndex == -1 &&
				queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
				queueInfo.graphicsFamilyIndex = int32(i)
			}

			var supportsPresent vk.Bool32
			if res := vk.GetPhysicalDeviceSurfaceSupport(candidate, i, context.Surface, &supportsPresent); !VulkanResultIsSuccess(res) {
				continue
			}
			if supportsPresent == vk.True && queueInfo.presentFamilyIndex == -1 {
				queueInfo.presentFamilyIndex = int32(i)
			}
		}

		if queueInfo.graphicsFamilyIndex == -1 || queueInfo.presentFamilyIndex == -1 {
			continue
		}

		supportInfo := &VulkanSwapchainSupportInfo{}
		if err := DeviceQuerySwapchainSupport(candidate, context.Surface, supportInfo); err != nil {
			continue
		}
		if supportInfo.FormatCount == 0 || supportInfo.PresentModeCount == 0 {
			continue
		}

		name := string(properties.DeviceName[:FindFirstZeroInByteArray(properties.DeviceName[:])])
		core.LogInfo("selected device: %s", name)
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}

		context.Device = &VulkanDevice{
			PhysicalDevice:     candidate,
			Properties:         properties,
			Features:           features,
			Memory:             memory,
			GraphicsQueueIndex: uint32(queueInfo.graphicsFamilyIndex),
			PresentQueueIndex:  uint32(queueInfo.presentFamilyIndex),
			SwapchainSupport:   supportInfo,
		}
		context.GPUFeatures = features

		if !DeviceDetectDepthFormat(context.Device) {
			return fmt.Errorf("no supported depth format found")
		}
		return nil
	}

	err := fmt.Errorf("no physical device met the requirements")
	core.LogError(err.Error())
	return err
}
