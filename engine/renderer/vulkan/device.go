package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
)

// Device holds the selected physical device, the logical device, its queues
// and the graphics command pool shared by every window renderer.
type Device struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport SwapchainSupportInfo

	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

type SwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

type physicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	SamplerAnisotropy    bool
	DeviceExtensionNames []string
}

type queueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

// DeviceCreate selects a suitable physical device against the surface and
// creates the logical device, queues and graphics command pool. Fails fatally
// (error surfaced to the application driver) when no device qualifies.
func DeviceCreate(context *Context, surface vk.Surface) (*Device, error) {
	device := &Device{
		GraphicsQueueIndex: -1,
		PresentQueueIndex:  -1,
	}
	if err := selectPhysicalDevice(context, surface, device); err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")

	// Do not create additional queues for shared indices.
	presentSharesGraphicsQueue := device.GraphicsQueueIndex == device.PresentQueueIndex

	indices := []uint32{uint32(device.GraphicsQueueIndex)}
	if !presentSharesGraphicsQueue {
		indices = append(indices, uint32(device.PresentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	deviceFeatures.SamplerAnisotropy = vk.True

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if devicePortabilityRequired(device.PhysicalDevice) {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	if res := vk.CreateDevice(
		device.PhysicalDevice,
		&deviceCreateInfo,
		context.Allocator,
		&device.LogicalDevice); res != vk.Success {
		err := fmt.Errorf("failed to create logical device: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.GraphicsQueueIndex), 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.PresentQueueIndex), 0, &device.PresentQueue)
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(
		device.LogicalDevice,
		&poolCreateInfo,
		context.Allocator,
		&device.GraphicsCommandPool); res != vk.Success {
		err := fmt.Errorf("failed to create graphics command pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("Graphics command pool created.")

	if !DeviceDetectDepthFormat(device) {
		return nil, fmt.Errorf("no supported depth format found")
	}

	return device, nil
}

func DeviceDestroy(context *Context) {
	device := context.Device

	device.GraphicsQueue = nil
	device.PresentQueue = nil

	core.LogDebug("Destroying command pool...")
	vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)

	core.LogDebug("Destroying logical device...")
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.SwapchainSupport = SwapchainSupportInfo{}
	device.GraphicsQueueIndex = -1
	device.PresentQueueIndex = -1
}

// DeviceQuerySwapchainSupport requeries surface capabilities, formats and
// present modes. Called at device selection and on every swapchain recreation.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *SwapchainSupportInfo) error {
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return fmt.Errorf("failed to get surface capabilities: %s", VulkanResultString(res))
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, nil); res != vk.Success {
		return fmt.Errorf("failed to get surface formats: %s", VulkanResultString(res))
	}
	if supportInfo.FormatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, supportInfo.FormatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, supportInfo.Formats); res != vk.Success {
			return fmt.Errorf("failed to get surface formats: %s", VulkanResultString(res))
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, nil); res != vk.Success {
		return fmt.Errorf("failed to get surface present modes: %s", VulkanResultString(res))
	}
	if supportInfo.PresentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, supportInfo.PresentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, supportInfo.PresentModes); res != vk.Success {
			return fmt.Errorf("failed to get surface present modes: %s", VulkanResultString(res))
		}
	}
	return nil
}

// DeviceDetectDepthFormat picks the first depth format with optimal-tiling
// depth attachment support.
func DeviceDetectDepthFormat(device *Device) bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if (properties.OptimalTilingFeatures & flags) == flags {
			device.DepthFormat = candidate
			return true
		}
	}
	return false
}

// mipBlitFeatures are the optimal-tiling capabilities a format needs for the
// GPU mip chain: blit source and destination plus linear filtering of the
// sampled result.
const mipBlitFeatures = vk.FormatFeatureFlags(vk.FormatFeatureBlitSrcBit |
	vk.FormatFeatureBlitDstBit |
	vk.FormatFeatureSampledImageFilterLinearBit)

func formatSupportsMipBlit(features vk.FormatFeatureFlags) bool {
	return features&mipBlitFeatures == mipBlitFeatures
}

// DeviceSupportsMipBlit reports whether the device can generate mips for the
// format through linear blits. Checked at texture load so an unsupported
// format fails there instead of at draw time.
func DeviceSupportsMipBlit(device *Device, format vk.Format) bool {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, format, &properties)
	properties.Deref()
	return formatSupportsMipBlit(properties.OptimalTilingFeatures)
}

// ClampSampleCount returns the requested MSAA sample count reduced to what
// the device supports for both color and depth framebuffers.
func (d *Device) ClampSampleCount(requested uint32) vk.SampleCountFlagBits {
	d.Properties.Deref()
	d.Properties.Limits.Deref()
	supported := d.Properties.Limits.FramebufferColorSampleCounts &
		d.Properties.Limits.FramebufferDepthSampleCounts

	for _, candidate := range []uint32{requested, requested / 2, requested / 4, requested / 8} {
		var bit vk.SampleCountFlagBits
		switch candidate {
		case 8:
			bit = vk.SampleCount8Bit
		case 4:
			bit = vk.SampleCount4Bit
		case 2:
			bit = vk.SampleCount2Bit
		default:
			return vk.SampleCount1Bit
		}
		if supported&vk.SampleCountFlags(bit) != 0 {
			if candidate != requested {
				core.LogWarn("Requested %dx MSAA unsupported, falling back to %dx.", requested, candidate)
			}
			return bit
		}
	}
	return vk.SampleCount1Bit
}

func selectPhysicalDevice(context *Context, surface vk.Surface, outDevice *Device) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return fmt.Errorf("failed to enumerate physical devices: %s", VulkanResultString(res))
	}
	if physicalDeviceCount == 0 {
		return fmt.Errorf("no devices which support Vulkan were found")
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return fmt.Errorf("failed to enumerate physical devices: %s", VulkanResultString(res))
	}

	requirements := physicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		SamplerAnisotropy:    true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	for i := 0; i < int(physicalDeviceCount); i++ {
		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(physicalDevices[i], &properties)
		properties.Deref()

		features := vk.PhysicalDeviceFeatures{}
		vk.GetPhysicalDeviceFeatures(physicalDevices[i], &features)
		features.Deref()

		memory := vk.PhysicalDeviceMemoryProperties{}
		vk.GetPhysicalDeviceMemoryProperties(physicalDevices[i], &memory)
		memory.Deref()

		queueInfo := queueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
		ok, err := physicalDeviceMeetsRequirements(
			physicalDevices[i],
			surface,
			&features,
			&requirements,
			&queueInfo,
			&outDevice.SwapchainSupport)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		core.LogInfo("Selected device: '%s'.", vk.ToString(properties.DeviceName[:]))
		core.LogInfo(
			"GPU Driver version: %d.%d.%d",
			vk.Version.Major(vk.Version(properties.DriverVersion)),
			vk.Version.Minor(vk.Version(properties.DriverVersion)),
			vk.Version.Patch(vk.Version(properties.DriverVersion)),
		)

		outDevice.PhysicalDevice = physicalDevices[i]
		outDevice.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		outDevice.PresentQueueIndex = queueInfo.PresentFamilyIndex
		outDevice.Properties = properties
		outDevice.Features = features
		outDevice.Memory = memory
		break
	}

	if outDevice.PhysicalDevice == nil {
		return fmt.Errorf("no physical devices were found which meet the requirements")
	}

	core.LogInfo("Physical device selected.")
	return nil
}

func physicalDeviceMeetsRequirements(
	device vk.PhysicalDevice,
	surface vk.Surface,
	features *vk.PhysicalDeviceFeatures,
	requirements *physicalDeviceRequirements,
	outQueueInfo *queueFamilyInfo,
	outSwapchainSupport *SwapchainSupportInfo,
) (bool, error) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := 0; i < int(queueFamilyCount); i++ {
		queueFamilies[i].Deref()

		if outQueueInfo.GraphicsFamilyIndex == -1 &&
			queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			outQueueInfo.GraphicsFamilyIndex = int32(i)
		}

		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return false, fmt.Errorf("failed to query surface support: %s", VulkanResultString(res))
		}
		if outQueueInfo.PresentFamilyIndex == -1 && supportsPresent == vk.True {
			outQueueInfo.PresentFamilyIndex = int32(i)
		}
	}

	if requirements.Graphics && outQueueInfo.GraphicsFamilyIndex == -1 {
		core.LogInfo("Device has no graphics queue, skipping.")
		return false, nil
	}
	if requirements.Present && outQueueInfo.PresentFamilyIndex == -1 {
		core.LogInfo("Device has no present queue, skipping.")
		return false, nil
	}

	if err := DeviceQuerySwapchainSupport(device, surface, outSwapchainSupport); err != nil {
		return false, err
	}
	if outSwapchainSupport.FormatCount < 1 || outSwapchainSupport.PresentModeCount < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return false, nil
	}

	if len(requirements.DeviceExtensionNames) > 0 {
		var availableExtensionCount uint32
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, nil); res != vk.Success {
			return false, fmt.Errorf("failed to enumerate device extensions: %s", VulkanResultString(res))
		}
		availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
		if availableExtensionCount != 0 {
			if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, availableExtensions); res != vk.Success {
				return false, fmt.Errorf("failed to enumerate device extensions: %s", VulkanResultString(res))
			}
		}
		for _, required := range requirements.DeviceExtensionNames {
			found := false
			for j := range availableExtensions {
				availableExtensions[j].Deref()
				if required == vk.ToString(availableExtensions[j].ExtensionName[:]) {
					found = true
					break
				}
			}
			if !found {
				core.LogInfo("Required extension not found: '%s', skipping device.", required)
				return false, nil
			}
		}
	}

	if requirements.SamplerAnisotropy && features.SamplerAnisotropy == vk.False {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return false, nil
	}

	return true, nil
}

func devicePortabilityRequired(device vk.PhysicalDevice) bool {
	var availableExtensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, nil); res != vk.Success {
		return false
	}
	if availableExtensionCount == 0 {
		return false
	}
	availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, availableExtensions); res != vk.Success {
		return false
	}
	for i := range availableExtensions {
		availableExtensions[i].Deref()
		if vk.ToString(availableExtensions[i].ExtensionName[:]) == "VK_KHR_portability_subset" {
			return true
		}
	}
	return false
}
