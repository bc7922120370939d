package vulkan

import (
	"encoding/binary"
	"fmt"
	"os"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic uint32 = 0x07230203

// VulkanShaderStage is a single compiled stage ready for pipeline creation.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// DecodeSPIRV turns a SPIR-V binary into the word stream the driver expects.
func DecodeSPIRV(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: SPIR-V size %d is not a positive multiple of 4", core.ErrShaderLoad, len(data))
	}
	code := make([]uint32, len(data)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if code[0] != spirvMagic {
		return nil, fmt.Errorf("%w: bad SPIR-V magic %#08x", core.ErrShaderLoad, code[0])
	}
	return code, nil
}

// NewShaderStage reads a compiled SPIR-V file and wraps it in a module.
func NewShaderStage(device *VulkanDevice, path string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrShaderLoad, err)
	}
	code, err := DecodeSPIRV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    code,
	}
	shaderStage := &VulkanShaderStage{}
	if res := vk.CreateShaderModule(device.LogicalDevice, &createInfo, device.allocator, &shaderStage.Handle); res != vk.Success {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrShaderLoad, path, resultError("vkCreateShaderModule", res))
	}

	shaderStage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: shaderStage.Handle,
		PName:  VulkanSafeString("main"),
	}
	core.LogDebug("Shader module loaded: %s (%d bytes).", path, len(data))
	return shaderStage, nil
}

func (s *VulkanShaderStage) Destroy(device *VulkanDevice) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(device.LogicalDevice, s.Handle, device.allocator)
		s.Handle = vk.NullShaderModule
	}
}
