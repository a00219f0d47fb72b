package loadtests

import (
	"bytes"
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
	"github.com/spaghettifunk/vulkan-loadtests/engine/ktx"
	m "github.com/spaghettifunk/vulkan-loadtests/engine/math"
	"github.com/spaghettifunk/vulkan-loadtests/engine/renderer/vulkan"
)

func init() {
	Register("texturearray", NewTextureArray)
}

// layersDeclaredInShader is the size of the instance array in the vertex
// shader. Containers with more layers than this only get instance data
// for the first layersDeclaredInShader slices.
const layersDeclaredInShader = 8

const (
	quadDim      = 2.5
	instanceGap  = -1.5
	vertexStride = 5 * 4 // position vec3 + texcoord vec2
	matricesSize = 2 * 16 * 4
	instanceSize = (16 + 4) * 4

	instancingVert = "shaders/instancing.vert.spv"
	instancingFrag = "shaders/instancing.frag.spv"
)

// uboMatrices is the fixed head of the vertex shader uniform block.
type uboMatrices struct {
	Projection m.Mat4
	View       m.Mat4
}

// uboInstanceData holds the per-slice model matrix and the texture array
// index sampled by the fragment shader (only X is used).
type uboInstanceData struct {
	Model      m.Mat4
	ArrayIndex m.Vec4
}

// TextureArray renders every layer of a 2D array texture as one quad in
// an instanced stack.
type TextureArray struct {
	state   *SampleState
	context *vulkan.VulkanContext

	texture   *ktx.VulkanTexture
	sampler   vk.Sampler
	imageView vk.ImageView

	vertexBuffer  *vulkan.VulkanBuffer
	indexBuffer   *vulkan.VulkanBuffer
	indexCount    uint32
	uniformBuffer *vulkan.VulkanBuffer

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	descriptorSet       vk.DescriptorSet
	pipeline            *vulkan.VulkanPipeline

	width  uint32
	height uint32
}

func NewTextureArray(state *SampleState) (Sample, error) {
	if state.TextureFile == "" {
		return nil, fmt.Errorf("texturearray: no texture file configured")
	}
	return &TextureArray{state: state}, nil
}

// InstanceCap reports how many slices receive instance data.
func (ta *TextureArray) InstanceCap() uint32 {
	return layersDeclaredInShader
}

// DrawInstanceCount reports how many instances the draw call issues: the
// full layer count of the texture, even past the instance cap.
func (ta *TextureArray) DrawInstanceCount() uint32 {
	if ta.texture == nil {
		return 0
	}
	return ta.texture.LayerCount
}

func (ta *TextureArray) Prepare(context *vulkan.VulkanContext) error {
	ta.context = context
	ta.width = context.FramebufferWidth
	ta.height = context.FramebufferHeight

	core.LogInfo("[%s] preparing sample %s with texture %s", ta.state.RunID, ta.state.Name, ta.state.TextureFile)

	// Any failure mid-sequence releases what earlier steps created.
	if err := ta.prepare(); err != nil {
		ta.Cleanup()
		return err
	}
	return nil
}

func (ta *TextureArray) prepare() error {
	if err := ta.loadTexture(); err != nil {
		return err
	}
	if err := ta.prepareSamplerAndView(); err != nil {
		return err
	}
	if err := ta.generateQuad(); err != nil {
		return err
	}
	if err := ta.prepareUniformBuffers(); err != nil {
		return err
	}
	if err := ta.setupDescriptorSetLayout(); err != nil {
		return err
	}
	if err := ta.preparePipelines(); err != nil {
		return err
	}
	if err := ta.setupDescriptorSet(); err != nil {
		return err
	}
	if err := ta.context.CreateDrawCommandBuffers(); err != nil {
		return err
	}
	return ta.buildCommandBuffers()
}

func (ta *TextureArray) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	ta.width = width
	ta.height = height

	if err := ta.context.CreateDrawCommandBuffers(); err != nil {
		return err
	}
	if err := ta.buildCommandBuffers(); err != nil {
		return err
	}
	return ta.updateUniformBufferMatrices()
}

func (ta *TextureArray) Run(deltaTime float64) error {
	// Nothing to do since the scene is not animated. The harness redraws
	// from the command buffers built here.
	return nil
}

func (ta *TextureArray) Cleanup() {
	context := ta.context
	if context == nil || context.Device == nil {
		return
	}
	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	if ta.sampler != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, ta.sampler, context.Allocator)
		ta.sampler = vk.NullSampler
	}
	if ta.imageView != vk.NullImageView {
		vk.DestroyImageView(context.Device.LogicalDevice, ta.imageView, context.Allocator)
		ta.imageView = vk.NullImageView
	}
	if ta.texture != nil {
		ta.texture.Destroy(context)
		ta.texture = nil
	}

	if ta.pipeline != nil {
		ta.pipeline.Destroy(context)
		ta.pipeline = nil
	}
	if ta.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, ta.descriptorPool, context.Allocator)
		ta.descriptorPool = vk.NullDescriptorPool
		ta.descriptorSet = vk.NullDescriptorSet
	}
	if ta.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, ta.descriptorSetLayout, context.Allocator)
		ta.descriptorSetLayout = vk.NullDescriptorSetLayout
	}

	context.DestroyDrawCommandBuffers()

	if ta.vertexBuffer != nil {
		ta.vertexBuffer.Destroy(context)
		ta.vertexBuffer = nil
	}
	if ta.indexBuffer != nil {
		ta.indexBuffer.Destroy(context)
		ta.indexBuffer = nil
	}
	if ta.uniformBuffer != nil {
		ta.uniformBuffer.Destroy(context)
		ta.uniformBuffer = nil
	}
}

func (ta *TextureArray) loadTexture() error {
	path, err := ta.state.Assets.Resolve(ta.state.TextureFile)
	if err != nil {
		return err
	}

	texture, err := ktx.CreateFromNamedFile(path)
	if err != nil {
		return err
	}
	if texture.NumberOfArrayElements == 0 {
		return fmt.Errorf("texturearray: %s is not an array texture", path)
	}

	// The upload handle never outlives the load, success or failure.
	di := ktx.NewDeviceInfo(ta.context)
	defer di.Close()

	uploaded, err := texture.Upload(di,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		vk.ImageLayoutShaderReadOnlyOptimal)
	if err != nil {
		return err
	}
	ta.texture = uploaded

	core.LogInfo("[%s] texture loaded: %dx%d, %d layers, %d levels",
		ta.state.RunID, uploaded.Width, uploaded.Height, uploaded.LayerCount, uploaded.LevelCount)
	return nil
}

func (ta *TextureArray) prepareSamplerAndView() error {
	context := ta.context

	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:         vk.StructureTypeSamplerCreateInfo,
		MagFilter:     vk.FilterLinear,
		MinFilter:     vk.FilterLinear,
		MipmapMode:    vk.SamplerMipmapModeLinear,
		MaxLod:        float32(ta.texture.LevelCount),
		BorderColor:   vk.BorderColorFloatOpaqueWhite,
		MaxAnisotropy: 1.0,
	}
	if context.GPUFeatures.SamplerAnisotropy == vk.True {
		samplerCreateInfo.AnisotropyEnable = vk.True
		samplerCreateInfo.MaxAnisotropy = 8
	}

	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerCreateInfo, context.Allocator, &sampler); !vulkan.VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateSampler failed with %s", vulkan.VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	ta.sampler = sampler

	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    ta.texture.Image,
		ViewType: ta.texture.ViewType,
		Format:   ta.texture.ImageFormat,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     ta.texture.LevelCount,
			BaseArrayLayer: 0,
			LayerCount:     ta.texture.LayerCount,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view); !vulkan.VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateImageView failed with %s", vulkan.VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	ta.imageView = view
	return nil
}

// generateQuad builds a single uv-mapped quad.
func (ta *TextureArray) generateQuad() error {
	vertices := quadVertices()
	indices := []uint32{0, 1, 2, 2, 3, 0}
	ta.indexCount = uint32(len(indices))

	vertexData := new(bytes.Buffer)
	if err := binary.Write(vertexData, binary.LittleEndian, vertices); err != nil {
		return err
	}
	vb, err := vulkan.NewBuffer(ta.context,
		vk.DeviceSize(vertexData.Len()),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		vertexData.Bytes())
	if err != nil {
		return err
	}
	ta.vertexBuffer = vb

	indexData := new(bytes.Buffer)
	if err := binary.Write(indexData, binary.LittleEndian, indices); err != nil {
		return err
	}
	ib, err := vulkan.NewBuffer(ta.context,
		vk.DeviceSize(indexData.Len()),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		indexData.Bytes())
	if err != nil {
		return err
	}
	ta.indexBuffer = ib
	return nil
}

func (ta *TextureArray) prepareUniformBuffers() error {
	// The uniform block has a fixed-size instance array; slices beyond the
	// cap never get instance data.
	uboSize := vk.DeviceSize(matricesSize + layersDeclaredInShader*instanceSize)

	ub, err := vulkan.NewBuffer(ta.context,
		uboSize,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		nil)
	if err != nil {
		return err
	}
	ta.uniformBuffer = ub

	// Array indices and model matrices are fixed.
	instances := computeInstanceData(ta.texture.LayerCount, layersDeclaredInShader)
	data := new(bytes.Buffer)
	if err := binary.Write(data, binary.LittleEndian, instances); err != nil {
		return err
	}
	if err := ta.uniformBuffer.Load(ta.context, matricesSize, data.Bytes()); err != nil {
		return err
	}

	return ta.updateUniformBufferMatrices()
}

// updateUniformBufferMatrices rewrites only the global matrices part of
// the uniform block.
func (ta *TextureArray) updateUniformBufferMatrices() error {
	matrices := computeMatrices(ta.width, ta.height, ta.state)

	data := new(bytes.Buffer)
	if err := binary.Write(data, binary.LittleEndian, matrices); err != nil {
		return err
	}
	return ta.uniformBuffer.Load(ta.context, 0, data.Bytes())
}

func (ta *TextureArray) setupDescriptorSetLayout() error {
	context := ta.context

	bindings := []vk.DescriptorSetLayoutBinding{
		// Binding 0 : Vertex shader uniform buffer
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		// Binding 1 : Fragment shader image sampler
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}

	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &layout); !vulkan.VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateDescriptorSetLayout failed with %s", vulkan.VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	ta.descriptorSetLayout = layout
	return nil
}

func (ta *TextureArray) preparePipelines() error {
	vertPath, err := ta.state.Assets.Resolve(instancingVert)
	if err != nil {
		return err
	}
	fragPath, err := ta.state.Assets.Resolve(instancingFrag)
	if err != nil {
		return err
	}

	vertStage, err := vulkan.LoadShaderStage(ta.context, vertPath, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	defer vertStage.Destroy(ta.context)

	fragStage, err := vulkan.LoadShaderStage(ta.context, fragPath, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	defer fragStage.Destroy(ta.context)

	pipeline, err := vulkan.NewGraphicsPipeline(ta.context, &vulkan.VulkanPipelineConfig{
		Renderpass: ta.context.MainRenderpass,
		Stride:     vertexStride,
		Attributes: []vk.VertexInputAttributeDescription{
			// Location 0 : Position
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			// Location 1 : Texture coordinates
			{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 3 * 4},
		},
		DescriptorSetLayouts: []vk.DescriptorSetLayout{ta.descriptorSetLayout},
		Stages: []vk.PipelineShaderStageCreateInfo{
			vertStage.StageCreateInfo,
			fragStage.StageCreateInfo,
		},
		Viewport: vk.Viewport{
			Width:    float32(ta.width),
			Height:   float32(ta.height),
			MinDepth: 0,
			MaxDepth: 1,
		},
		Scissor: vk.Rect2D{
			Extent: vk.Extent2D{Width: ta.width, Height: ta.height},
		},
		CullMode:          vk.CullModeNone,
		DepthTestEnabled:  true,
		DepthWriteEnabled: true,
		DepthCompareOp:    vk.CompareOpLessOrEqual,
	})
	if err != nil {
		return err
	}
	ta.pipeline = pipeline
	return nil
}

func (ta *TextureArray) setupDescriptorSet() error {
	context := ta.context

	// One ubo and one image sampler.
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 1},
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       2,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); !vulkan.VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateDescriptorPool failed with %s", vulkan.VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	ta.descriptorPool = pool

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     ta.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{ta.descriptorSetLayout},
	}
	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &set); !vulkan.VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkAllocateDescriptorSets failed with %s", vulkan.VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	ta.descriptorSet = set

	imageInfo := vk.DescriptorImageInfo{
		Sampler:     ta.sampler,
		ImageView:   ta.imageView,
		ImageLayout: ta.texture.ImageLayout,
	}

	writes := []vk.WriteDescriptorSet{
		// Binding 0 : Vertex shader uniform buffer
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          ta.descriptorSet,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo:     []vk.DescriptorBufferInfo{ta.uniformBuffer.Descriptor},
		},
		// Binding 1 : Fragment shader texture sampler
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          ta.descriptorSet,
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
		},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return nil
}

// buildCommandBuffers records one static draw per swapchain image. The
// draw issues an instance per texture layer, even beyond the instance
// cap; surplus slices render with zeroed instance data.
func (ta *TextureArray) buildCommandBuffers() error {
	context := ta.context

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(ta.width),
		Height:   float32(ta.height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: ta.width, Height: ta.height},
	}

	for i, cb := range context.DrawCmdBuffers {
		cb.Reset()
		if err := cb.Begin(false, false, false); err != nil {
			return err
		}

		context.MainRenderpass.RenderpassBegin(cb, context.Swapchain.Framebuffers[i].Handle)

		vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
		vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})

		vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics,
			ta.pipeline.PipelineLayout, 0, 1, []vk.DescriptorSet{ta.descriptorSet}, 0, nil)
		vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{ta.vertexBuffer.Handle}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(cb.Handle, ta.indexBuffer.Handle, 0, vk.IndexTypeUint32)
		ta.pipeline.Bind(cb, vk.PipelineBindPointGraphics)

		vk.CmdDrawIndexed(cb.Handle, ta.indexCount, ta.DrawInstanceCount(), 0, 0, 0)

		context.MainRenderpass.RenderpassEnd(cb)
		if err := cb.End(); err != nil {
			return err
		}
	}
	return nil
}

// quadVertices lays out a uv-mapped quad, position then texcoord.
func quadVertices() []m.Vertex2D {
	return []m.Vertex2D{
		{Position: m.NewVec3(quadDim, quadDim, 0), Texcoord: m.NewVec2(1, 1)},
		{Position: m.NewVec3(-quadDim, quadDim, 0), Texcoord: m.NewVec2(0, 1)},
		{Position: m.NewVec3(-quadDim, -quadDim, 0), Texcoord: m.NewVec2(0, 0)},
		{Position: m.NewVec3(quadDim, -quadDim, 0), Texcoord: m.NewVec2(1, 0)},
	}
}

// computeInstanceData spreads min(layerCount, cap) slices along Y around
// the stack center and tilts each by 60 degrees about X. The returned
// slice always has cap entries; unpopulated ones stay zero.
func computeInstanceData(layerCount, capacity uint32) []uboInstanceData {
	instances := make([]uboInstanceData, capacity)

	maxLayers := layerCount
	if maxLayers > capacity {
		maxLayers = capacity
	}
	center := (float32(maxLayers) * instanceGap) / 2

	for i := uint32(0); i < maxLayers; i++ {
		translation := m.NewMat4Translation(m.NewVec3(0, float32(i)*instanceGap-center, 0))
		rotation := m.NewMat4EulerX(m.DegToRad(60))
		instances[i] = uboInstanceData{
			// Rotation is applied in model space, before the translation.
			Model:      rotation.Mul(translation),
			ArrayIndex: m.NewVec4(float32(i), 0, 0, 0),
		}
	}
	return instances
}

// computeMatrices builds the projection and view matrices for the given
// framebuffer size and camera state.
func computeMatrices(width, height uint32, state *SampleState) uboMatrices {
	projection := m.NewMat4Perspective(m.DegToRad(60), float32(width)/float32(height), 0.001, 256)

	distance := m.NewMat4Translation(m.NewVec3(0, -1, state.Zoom))
	camera := m.NewMat4Translation(state.CameraPosition)
	rotX := m.NewMat4EulerX(m.DegToRad(state.Rotation.X))
	rotY := m.NewMat4EulerY(m.DegToRad(state.Rotation.Y))
	rotZ := m.NewMat4EulerZ(m.DegToRad(state.Rotation.Z))

	// Rotations apply innermost, then the camera offset, then the zoom.
	view := rotZ.Mul(rotY.Mul(rotX.Mul(camera.Mul(distance))))

	return uboMatrices{
		Projection: projection,
		View:       view,
	}
}
