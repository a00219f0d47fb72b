package vulkan

import (
	"encoding/binary"
	"fmt"
	"os"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
)

// VulkanShaderStage holds a compiled SPIR-V module together with the
// pipeline stage info referencing it.
type VulkanShaderStage struct {
	Module          vk.ShaderModule
	StageCreateInfo vk.PipelineShaderStageCreateInfo
}

// LoadShaderStage reads a SPIR-V binary from disk and builds a shader stage
// for the given pipeline stage bit.
func LoadShaderStage(context *VulkanContext, path string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		core.LogError("unable to read shader file %s: %s", path, err)
		return nil, err
	}
	if len(code) == 0 || len(code)%4 != 0 {
		err := fmt.Errorf("shader file %s is not a valid SPIR-V binary", path)
		core.LogError(err.Error())
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    repackUint32(code),
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkCreateShaderModule failed for %s with %s", path, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanShaderStage{
		Module: module,
		StageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func (vs *VulkanShaderStage) Destroy(context *VulkanContext) {
	if vs.Module != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, vs.Module, context.Allocator)
		vs.Module = vk.NullShaderModule
	}
}

// repackUint32 converts a little-endian SPIR-V byte stream into words.
func repackUint32(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}
