package vulkan

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/present"
)

const (
	validationLayerName          = "VK_LAYER_KHRONOS_validation"
	portabilitySubsetName        = "VK_KHR_portability_subset"
	portabilityEnumerationName   = "VK_KHR_portability_enumeration"
	physicalDeviceProperties2Ext = "VK_KHR_get_physical_device_properties2"
	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	instanceCreateEnumeratePortability = 0x00000001
)

// ContextConfig is what the instance is created with.
type ContextConfig struct {
	ApplicationName string
	// Extensions required by the window system.
	Extensions []string
	Validation bool
}

// VulkanContext owns the instance, the optional debug callback and the
// window surface. It enumerates GPUs and creates logical devices.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback
	// Validation is true only when the layer was found and enabled.
	Validation bool
}

// NewVulkanContext creates the instance. A missing validation layer only
// produces a warning.
func NewVulkanContext(cfg ContextConfig) (*VulkanContext, error) {
	vc := &VulkanContext{}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(cfg.ApplicationName),
		PEngineName:        VulkanSafeString("Prism"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Generic surface extension first, then whatever the window needs.
	extensions := []string{vk.KhrSurfaceExtensionName}
	for _, e := range cfg.Extensions {
		if e != vk.KhrSurfaceExtensionName {
			extensions = append(extensions, e)
		}
	}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions, portabilityEnumerationName, physicalDeviceProperties2Ext)
		createInfo.Flags |= vk.InstanceCreateFlags(instanceCreateEnumeratePortability)
	}

	var layers []string
	if cfg.Validation {
		if hasInstanceLayer(validationLayerName) {
			layers = append(layers, validationLayerName)
			extensions = append(extensions, vk.ExtDebugReportExtensionName)
			vc.Validation = true
			core.LogInfo("Validation layer %s enabled.", validationLayerName)
		} else {
			core.LogWarn("Validation requested but %s is not installed, continuing without it.", validationLayerName)
		}
	}

	available, err := instanceExtensions("")
	if err != nil {
		return nil, err
	}
	for _, layer := range layers {
		provided, err := instanceExtensions(layer)
		if err != nil {
			return nil, err
		}
		maps.Copy(available, provided)
	}
	if name := firstMissing(extensions, available); name != "" {
		return nil, fmt.Errorf("%w: instance extension %s", core.ErrExtensionMissing, name)
	}

	core.LogDebug("Required extensions:")
	for _, e := range extensions {
		core.LogDebug(e)
	}
	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, vc.Allocator, &vc.Instance); res != vk.Success {
		return nil, fmt.Errorf("%w: %v", core.ErrCapability, resultError("vkCreateInstance", res))
	}
	if err := vk.InitInstance(vc.Instance); err != nil {
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		return nil, fmt.Errorf("%w: %v", core.ErrCapability, err)
	}
	core.LogInfo("Vulkan Instance created.")

	if vc.Validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, vc.Allocator, &dbg); res != vk.Success {
			core.LogWarn("Vulkan debugger unavailable: %s", VulkanResultString(res, false))
		} else {
			vc.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}
	return vc, nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success || count == 0 {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if fixedString(layers[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

// instanceExtensions lists the instance extensions of the loader, or of
// layer when it is not empty.
func instanceExtensions(layer string) (map[string]bool, error) {
	var count uint32
	if res := vk.EnumerateInstanceExtensionProperties(layer, &count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceExtensionProperties", res)
	}
	available := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateInstanceExtensionProperties(layer, &count, available); res != vk.Success {
			return nil, resultError("vkEnumerateInstanceExtensionProperties", res)
		}
	}
	names := make(map[string]bool, count)
	for i := range available {
		available[i].Deref()
		names[fixedString(available[i].ExtensionName[:])] = true
	}
	return names, nil
}

// firstMissing returns the first entry of required absent from available,
// or "" when all are present.
func firstMissing(required []string, available map[string]bool) string {
	for _, name := range required {
		if !available[name] {
			return name
		}
	}
	return ""
}

// SetSurface adopts a surface created by the window system.
func (vc *VulkanContext) SetSurface(surface uintptr) {
	vc.Surface = vk.SurfaceFromPointer(surface)
}

// Destroy releases the surface, the debug callback and the instance. Every
// device created from the context must be destroyed first.
func (vc *VulkanContext) Destroy() {
	if vc.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}
	if vc.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}
	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

// PhysicalDevices describes every GPU the instance can see.
func (vc *VulkanContext) PhysicalDevices() ([]present.PhysicalDeviceCandidate, error) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(vc.Instance, &count, nil); res != vk.Success {
		return nil, resultError("vkEnumeratePhysicalDevices", res)
	}
	if count == 0 {
		return nil, nil
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(vc.Instance, &count, devices); res != vk.Success {
		return nil, resultError("vkEnumeratePhysicalDevices", res)
	}

	candidates := make([]present.PhysicalDeviceCandidate, 0, count)
	for _, pd := range devices {
		c, err := describePhysicalDevice(pd)
		if err != nil {
			core.LogWarn("Skipping physical device: %s", err)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func describePhysicalDevice(pd vk.PhysicalDevice) (present.PhysicalDeviceCandidate, error) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()

	extensions, err := deviceExtensions(pd)
	if err != nil {
		return present.PhysicalDeviceCandidate{}, err
	}

	c := present.PhysicalDeviceCandidate{
		Handle: pd,
		Name:   fixedString(properties.DeviceName[:]),
		Features: present.DeviceFeatures{
			GeometryShader:     features.GeometryShader == vk.True,
			TessellationShader: features.TessellationShader == vk.True,
			SamplerAnisotropy:  features.SamplerAnisotropy == vk.True,
			SampleRateShading:  features.SampleRateShading == vk.True,
		},
		Extensions:    extensions,
		DriverVersion: properties.DriverVersion,
		APIVersion:    properties.ApiVersion,
	}
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		c.Class = present.DeviceClassDiscrete
	case vk.PhysicalDeviceTypeIntegratedGpu:
		c.Class = present.DeviceClassIntegrated
	case vk.PhysicalDeviceTypeVirtualGpu:
		c.Class = present.DeviceClassVirtual
	case vk.PhysicalDeviceTypeCpu:
		c.Class = present.DeviceClassCPU
	default:
		c.Class = present.DeviceClassOther
	}

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
	memory.Deref()
	for j := 0; j < int(memory.MemoryHeapCount); j++ {
		memory.MemoryHeaps[j].Deref()
		sizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogDebug("%s: local GPU memory: %.2f GiB", c.Name, sizeGib)
		} else {
			core.LogDebug("%s: shared system memory: %.2f GiB", c.Name, sizeGib)
		}
	}
	return c, nil
}

func deviceExtensions(pd vk.PhysicalDevice) (map[string]bool, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
	}
	available := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, available); res != vk.Success {
			return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
		}
	}
	names := make(map[string]bool, count)
	for i := range available {
		available[i].Deref()
		names[fixedString(available[i].ExtensionName[:])] = true
	}
	return names, nil
}

// QueueFamilies reports the capabilities of every queue family of device,
// including presentation support for surface.
func (vc *VulkanContext) QueueFamilies(device present.PhysicalDevice, surface present.Surface) ([]present.QueueFamilyCapabilities, error) {
	pd := device.(vk.PhysicalDevice)
	sf := surface.(vk.Surface)

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, props)

	families := make([]present.QueueFamilyCapabilities, count)
	for i := range props {
		props[i].Deref()
		flags := vk.QueueFlagBits(props[i].QueueFlags)

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), sf, &supportsPresent); res != vk.Success {
			return nil, resultError("vkGetPhysicalDeviceSurfaceSupport", res)
		}
		families[i] = present.QueueFamilyCapabilities{
			Index:         uint32(i),
			Graphics:      flags&vk.QueueGraphicsBit != 0,
			Compute:       flags&vk.QueueComputeBit != 0,
			Transfer:      flags&vk.QueueTransferBit != 0,
			SparseBinding: flags&vk.QueueSparseBindingBit != 0,
			Protected:     flags&vk.QueueProtectedBit != 0,
			Present:       supportsPresent == vk.True,
		}
	}
	return families, nil
}

// CreateDevice creates the logical device on one queue family. The
// portability subset is enabled whenever the device advertises it.
func (vc *VulkanContext) CreateDevice(req present.DeviceRequest) (present.Device, error) {
	pd := req.PhysicalDevice.(vk.PhysicalDevice)

	available, err := deviceExtensions(pd)
	if err != nil {
		return nil, err
	}
	extensions := append([]string(nil), req.Extensions...)
	if available[portabilitySubsetName] && !slices.Contains(extensions, portabilitySubsetName) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetName)
		extensions = append(extensions, portabilitySubsetName)
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if req.Features.SamplerAnisotropy {
		deviceFeatures.SamplerAnisotropy = vk.True
	}
	if req.Features.SampleRateShading {
		deviceFeatures.SampleRateShading = vk.True
	}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: req.QueueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	var logical vk.Device
	if res := vk.CreateDevice(pd, &deviceCreateInfo, vc.Allocator, &logical); res != vk.Success {
		return nil, resultError("vkCreateDevice", res)
	}
	return newVulkanDevice(pd, logical, req.QueueFamily, vc.Allocator)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
