package ktx

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
	rvk "github.com/spaghettifunk/vulkan-loadtests/engine/renderer/vulkan"
)

// VulkanTexture is the device-side result of uploading a container. The
// caller owns it and creates its own image view and sampler.
type VulkanTexture struct {
	Image        vk.Image
	DeviceMemory vk.DeviceMemory
	ImageLayout  vk.ImageLayout
	ImageFormat  vk.Format
	ViewType     vk.ImageViewType
	Width        uint32
	Height       uint32
	LayerCount   uint32
	LevelCount   uint32
}

// DeviceInfo carries the rendering context needed for texture uploads.
// It only lives for the duration of an upload batch: construct, defer
// Close, upload.
type DeviceInfo struct {
	context *rvk.VulkanContext
}

func NewDeviceInfo(context *rvk.VulkanContext) *DeviceInfo {
	return &DeviceInfo{context: context}
}

// Close releases the device info. Held here so callers can defer it
// symmetrically with construction; the context itself is borrowed.
func (di *DeviceInfo) Close() {
	di.context = nil
}

// VkFormat maps the GL header enums onto the Vulkan format the payload
// should be uploaded as. Returns FormatUndefined for unsupported combinations.
func (t *Texture) VkFormat() vk.Format {
	switch t.GLInternalFormat {
	case glRGBA8:
		return vk.FormatR8g8b8a8Unorm
	case glSRGB8Alpha8:
		return vk.FormatR8g8b8a8Srgb
	default:
		return vk.FormatUndefined
	}
}

// VkViewType reports the image view type matching the container shape.
func (t *Texture) VkViewType() vk.ImageViewType {
	if t.NumberOfArrayElements > 0 {
		return vk.ImageViewType2dArray
	}
	return vk.ImageViewType2d
}

// Upload stages the container's pixel data into a device-local image and
// transitions it to finalLayout, normally ShaderReadOnlyOptimal.
func (t *Texture) Upload(di *DeviceInfo, tiling vk.ImageTiling, usageFlags vk.ImageUsageFlags, finalLayout vk.ImageLayout) (*VulkanTexture, error) {
	context := di.context

	format := t.VkFormat()
	if format == vk.FormatUndefined {
		return nil, fmt.Errorf("%w: glInternalFormat 0x%04X", ErrUnsupportedTextureType, t.GLInternalFormat)
	}

	layerCount := t.LayerCount()
	levelCount := t.LevelCount()
	if uint32(len(t.Levels)) < levelCount {
		return nil, ErrFileDataError
	}

	out := &VulkanTexture{
		ImageFormat: format,
		ViewType:    t.VkViewType(),
		Width:       t.PixelWidth,
		Height:      t.PixelHeight,
		LayerCount:  layerCount,
		LevelCount:  levelCount,
	}

	// Stage all levels into one host-visible buffer, recording a copy
	// region per level as we go.
	var totalSize vk.DeviceSize
	for _, level := range t.Levels {
		totalSize += vk.DeviceSize(len(level))
	}

	staging, err := rvk.NewBuffer(context, totalSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		nil)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	regions := make([]vk.BufferImageCopy, 0, levelCount)
	var offset vk.DeviceSize
	for level := uint32(0); level < levelCount; level++ {
		data := t.Levels[level]
		if err := staging.Load(context, offset, data); err != nil {
			return nil, err
		}

		width := t.PixelWidth >> level
		if width == 0 {
			width = 1
		}
		height := t.PixelHeight >> level
		if height == 0 {
			height = 1
		}

		regions = append(regions, vk.BufferImageCopy{
			BufferOffset: offset,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       level,
				BaseArrayLayer: 0,
				LayerCount:     layerCount,
			},
			ImageExtent: vk.Extent3D{
				Width:  width,
				Height: height,
				Depth:  1,
			},
		})
		offset += vk.DeviceSize(len(data))
	}

	// Device-local image with room for all levels and layers.
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  t.PixelWidth,
			Height: t.PixelHeight,
			Depth:  1,
		},
		MipLevels:     levelCount,
		ArrayLayers:   layerCount,
		Samples:       vk.SampleCount1Bit,
		Tiling:        tiling,
		Usage:         usageFlags | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &image); !rvk.VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateImage failed with %s", rvk.VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	out.Image = image

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, out.Image, &memoryRequirements)
	memoryRequirements.Deref()

	memoryIndex := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryIndex == -1 {
		out.Destroy(context)
		return nil, fmt.Errorf("no device-local memory type for texture image")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); !rvk.VulkanResultIsSuccess(res) {
		out.Destroy(context)
		err := fmt.Errorf("vkAllocateMemory failed with %s", rvk.VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	out.DeviceMemory = memory

	if res := vk.BindImageMemory(context.Device.LogicalDevice, out.Image, out.DeviceMemory, 0); !rvk.VulkanResultIsSuccess(res) {
		out.Destroy(context)
		err := fmt.Errorf("vkBindImageMemory failed with %s", rvk.VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	cb, err := rvk.AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		out.Destroy(context)
		return nil, err
	}

	subresourceRange := vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   0,
		LevelCount:     levelCount,
		BaseArrayLayer: 0,
		LayerCount:     layerCount,
	}

	// Undefined -> transfer destination.
	toTransfer := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       0,
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		OldLayout:           vk.ImageLayoutUndefined,
		NewLayout:           vk.ImageLayoutTransferDstOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               out.Image,
		SubresourceRange:    subresourceRange,
	}
	vk.CmdPipelineBarrier(cb.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toTransfer})

	vk.CmdCopyBufferToImage(cb.Handle, staging.Handle, out.Image,
		vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)

	// Transfer destination -> final layout for sampling.
	toFinal := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
		OldLayout:           vk.ImageLayoutTransferDstOptimal,
		NewLayout:           finalLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               out.Image,
		SubresourceRange:    subresourceRange,
	}
	vk.CmdPipelineBarrier(cb.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toFinal})

	if err := cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue); err != nil {
		out.Destroy(context)
		return nil, err
	}
	out.ImageLayout = finalLayout

	core.LogDebug("uploaded texture: %dx%d, %d layer(s), %d level(s)", out.Width, out.Height, out.LayerCount, out.LevelCount)
	return out, nil
}

// Destroy releases the image and its memory. Takes the context directly
// so the texture can outlive the DeviceInfo that uploaded it.
func (vt *VulkanTexture) Destroy(context *rvk.VulkanContext) {
	if vt.DeviceMemory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vt.DeviceMemory, context.Allocator)
		vt.DeviceMemory = vk.NullDeviceMemory
	}
	if vt.Image != vk.NullImage {
		vk.DestroyImage(context.Device.LogicalDevice, vt.Image, context.Allocator)
		vt.Image = vk.NullImage
	}
}
