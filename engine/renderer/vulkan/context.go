package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
	"github.com/spectralab/spectra/engine/resources"
)

// Context is the process-wide GPU context: instance, device, queues and the
// graphics command pool. Every window's renderer borrows it; it is created
// once at startup and destroyed last, after a wait-for-idle.
type Context struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Device    *Device
	Registry  *resources.Registry

	debugMessenger vk.DebugReportCallback
	validation     bool
}

// NewContext initializes the Vulkan loader and creates the instance. Device
// selection is deferred to InitDevice, which needs a presentation surface.
func NewContext(appName string, validation bool, windowExtensions []string) (*Context, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, fmt.Errorf("vulkan loader: GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize vulkan: %w", err)
	}

	context := &Context{
		Allocator:  nil,
		Registry:   resources.NewRegistry(),
		validation: validation,
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Spectra"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, windowExtensions...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}

	if validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	requiredLayers := []string{}
	if validation {
		requiredLayers = []string{"VK_LAYER_KHRONOS_validation"}
		if err := verifyValidationLayers(requiredLayers); err != nil {
			return nil, err
		}
	}
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	if res := vk.CreateInstance(&createInfo, context.Allocator, &context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create vulkan instance: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	if err := vk.InitInstance(context.Instance); err != nil {
		return nil, err
	}
	core.LogInfo("Vulkan instance created.")

	if validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
			err := fmt.Errorf("vkCreateDebugReportCallback failed with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		context.debugMessenger = dbg
		core.LogDebug("Vulkan debug callback created.")
	}

	return context, nil
}

// InitDevice selects the physical device against the probe surface and
// creates the logical device. Must be called exactly once, before any
// resource creation.
func (c *Context) InitDevice(surface vk.Surface) error {
	if c.Device != nil {
		return fmt.Errorf("device already initialized")
	}
	device, err := DeviceCreate(c, surface)
	if err != nil {
		return err
	}
	c.Device = device
	return nil
}

// WaitIdle blocks until the device queue has drained.
func (c *Context) WaitIdle() {
	if c.Device != nil && c.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(c.Device.LogicalDevice)
	}
}

// Destroy tears the context down. All dependents must have released their
// resources first; this is the last destruction in the process.
func (c *Context) Destroy() {
	c.WaitIdle()
	if c.Device != nil {
		DeviceDestroy(c)
		c.Device = nil
	}
	if c.validation && c.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(c.Instance, c.debugMessenger, c.Allocator)
		c.debugMessenger = vk.NullDebugReportCallback
	}
	if c.Instance != nil {
		vk.DestroyInstance(c.Instance, c.Allocator)
		c.Instance = nil
	}
	core.LogInfo("Vulkan context destroyed.")
}

// FindMemoryIndex returns the index of a memory type matching the filter and
// property flags, or -1 when none fits.
func (c *Context) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(c.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

func verifyValidationLayers(required []string) error {
	var availableLayerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
		return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
		return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
	}

	for _, name := range required {
		found := false
		for j := range availableLayers {
			availableLayers[j].Deref()
			if name == vk.ToString(availableLayers[j].LayerName[:]) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("required validation layer is missing: %s", name)
		}
	}
	core.LogDebug("All required validation layers are present.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
