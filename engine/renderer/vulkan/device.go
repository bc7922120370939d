package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/present"
)

// VulkanDevice is a logical device bound to a single queue family used for
// both graphics and presentation.
type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	QueueFamilyIndex uint32

	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool
	// Fence for one-off transfer submissions.
	Fence *VulkanFence

	Memory vk.PhysicalDeviceMemoryProperties

	allocator *vk.AllocationCallbacks
}

func newVulkanDevice(pd vk.PhysicalDevice, logical vk.Device, family uint32, allocator *vk.AllocationCallbacks) (*VulkanDevice, error) {
	core.LogInfo("Logical device created.")
	d := &VulkanDevice{
		PhysicalDevice:   pd,
		LogicalDevice:    logical,
		QueueFamilyIndex: family,
		allocator:        allocator,
	}

	vk.GetPhysicalDeviceMemoryProperties(pd, &d.Memory)
	d.Memory.Deref()

	// Graphics and present share the family, so both come from queue 0.
	vk.GetDeviceQueue(logical, family, 0, &d.graphicsQueue)
	d.presentQueue = d.graphicsQueue
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(logical, &poolCreateInfo, allocator, &d.GraphicsCommandPool); res != vk.Success {
		d.Destroy()
		return nil, resultError("vkCreateCommandPool", res)
	}
	core.LogInfo("Graphics command pool created.")

	fence, err := NewFence(d, false)
	if err != nil {
		d.Destroy()
		return nil, err
	}
	d.Fence = fence
	return d, nil
}

var _ present.Device = (*VulkanDevice)(nil)

func (d *VulkanDevice) GraphicsQueue() present.Queue { return d.graphicsQueue }

func (d *VulkanDevice) PresentQueue() present.Queue { return d.presentQueue }

func (d *VulkanDevice) CommandPool() present.CommandPool { return d.GraphicsCommandPool }

func (d *VulkanDevice) TransferFence() present.Fence { return presentFence(d.Fence) }

// Destroy releases the transfer fence, the command pool and the logical
// device. It is a no-op on an already destroyed device.
func (d *VulkanDevice) Destroy() {
	if d.LogicalDevice == nil {
		return
	}
	if d.Fence != nil {
		d.Fence.Destroy(d)
		d.Fence = nil
	}

	d.graphicsQueue = nil
	d.presentQueue = nil

	if d.GraphicsCommandPool != vk.NullCommandPool {
		core.LogInfo("Destroying command pools...")
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, d.allocator)
		d.GraphicsCommandPool = vk.NullCommandPool
	}

	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(d.LogicalDevice, d.allocator)
	d.LogicalDevice = nil

	// Physical devices are not destroyed.
	d.PhysicalDevice = nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *VulkanDevice) WaitIdle() error {
	if res := vk.DeviceWaitIdle(d.LogicalDevice); res != vk.Success {
		return resultError("vkDeviceWaitIdle", res)
	}
	return nil
}

// SurfaceSupport queries capabilities, formats and present modes of surface.
func (d *VulkanDevice) SurfaceSupport(surface present.Surface) (present.SurfaceSupport, error) {
	sf := surface.(vk.Surface)
	var support present.SurfaceSupport

	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(d.PhysicalDevice, sf, &caps); res != vk.Success {
		return support, resultError("vkGetPhysicalDeviceSurfaceCapabilities", res)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	support.Capabilities = present.SurfaceCapabilities{
		MinImageCount:    caps.MinImageCount,
		MaxImageCount:    caps.MaxImageCount,
		CurrentExtent:    present.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinImageExtent:   present.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxImageExtent:   present.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		CurrentTransform: uint32(caps.CurrentTransform),
	}

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(d.PhysicalDevice, sf, &formatCount, nil); res != vk.Success {
		return support, resultError("vkGetPhysicalDeviceSurfaceFormats", res)
	}
	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(d.PhysicalDevice, sf, &formatCount, formats); res != vk.Success {
			return support, resultError("vkGetPhysicalDeviceSurfaceFormats", res)
		}
		for i := range formats {
			formats[i].Deref()
			support.Formats = append(support.Formats, present.SurfaceFormat{
				Format:     present.Format(formats[i].Format),
				ColorSpace: present.ColorSpace(formats[i].ColorSpace),
			})
		}
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(d.PhysicalDevice, sf, &modeCount, nil); res != vk.Success {
		return support, resultError("vkGetPhysicalDeviceSurfacePresentModes", res)
	}
	if modeCount != 0 {
		modes := make([]vk.PresentMode, modeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(d.PhysicalDevice, sf, &modeCount, modes); res != vk.Success {
			return support, resultError("vkGetPhysicalDeviceSurfacePresentModes", res)
		}
		for _, m := range modes {
			support.PresentModes = append(support.PresentModes, present.PresentMode(m))
		}
	}
	return support, nil
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has every bit of propertyFlags.
func (d *VulkanDevice) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		d.Memory.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && d.Memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no memory type matches filter %#x with flags %#x", typeFilter, uint32(propertyFlags))
}
