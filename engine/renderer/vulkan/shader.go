package vulkan

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
)

const spirvMagic = 0x07230203

// ShaderModule wraps a compiled SPIR-V module together with its pipeline
// stage create info.
type ShaderModule struct {
	Handle    vk.ShaderModule
	StageInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderModule loads a SPIR-V binary from disk and creates the module.
// Rejects files that are not plausible SPIR-V (size or magic mismatch) before
// handing them to the driver.
func NewShaderModule(context *Context, path string, stage vk.ShaderStageFlagBits) (*ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader %s: %w", path, err)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("shader %s: invalid SPIR-V size %d", path, len(code))
	}
	if binary.LittleEndian.Uint32(code[:4]) != spirvMagic {
		return nil, fmt.Errorf("shader %s: missing SPIR-V magic", path)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}

	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create shader module %s: %s", path, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &ShaderModule{
		Handle: handle,
		StageInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: handle,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func (s *ShaderModule) Destroy(context *Context) {
	if s.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}

func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}
