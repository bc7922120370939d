package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/present"
)

// CreateSwapchain creates a swapchain for surface. Graphics and present
// share a queue family, so images are never shared between families.
func (d *VulkanDevice) CreateSwapchain(surface present.Surface, cfg present.ChainConfig) (present.Swapchain, error) {
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface.(vk.Surface),
		MinImageCount:    cfg.ImageCount,
		ImageFormat:      vk.Format(cfg.Format.Format),
		ImageColorSpace:  vk.ColorSpace(cfg.Format.ColorSpace),
		ImageExtent:      vk.Extent2D{Width: cfg.Extent.Width, Height: cfg.Extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformFlagBits(cfg.Transform),
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentMode(cfg.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	var swapchain vk.Swapchain
	if res := vk.CreateSwapchain(d.LogicalDevice, &swapchainCreateInfo, d.allocator, &swapchain); res != vk.Success {
		return nil, resultError("vkCreateSwapchainKHR", res)
	}
	core.LogDebug("Swapchain created: %dx%d, %d images, %s.", cfg.Extent.Width, cfg.Extent.Height, cfg.ImageCount, cfg.PresentMode)
	return swapchain, nil
}

func (d *VulkanDevice) SwapchainImages(swapchain present.Swapchain) ([]present.Image, error) {
	sc := swapchain.(vk.Swapchain)
	var count uint32
	if res := vk.GetSwapchainImages(d.LogicalDevice, sc, &count, nil); res != vk.Success {
		return nil, resultError("vkGetSwapchainImagesKHR", res)
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(d.LogicalDevice, sc, &count, images); res != vk.Success {
		return nil, resultError("vkGetSwapchainImagesKHR", res)
	}
	out := make([]present.Image, count)
	for i := range out {
		out[i] = images[i]
	}
	return out, nil
}

// DestroySwapchain destroys the swapchain. Its images are owned by it and
// go with it.
func (d *VulkanDevice) DestroySwapchain(swapchain present.Swapchain) {
	if sc, ok := swapchain.(vk.Swapchain); ok && sc != vk.NullSwapchain {
		vk.DestroySwapchain(d.LogicalDevice, sc, d.allocator)
	}
}

func (d *VulkanDevice) CreateImageView(image present.Image, format present.Format) (present.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.(vk.Image),
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(format),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(d.LogicalDevice, &viewInfo, d.allocator, &view); res != vk.Success {
		return nil, resultError("vkCreateImageView", res)
	}
	return view, nil
}

func (d *VulkanDevice) DestroyImageView(view present.ImageView) {
	if v, ok := view.(vk.ImageView); ok && v != vk.NullImageView {
		vk.DestroyImageView(d.LogicalDevice, v, d.allocator)
	}
}

// AcquireNextImage signals signal once the returned image is free.
func (d *VulkanDevice) AcquireNextImage(swapchain present.Swapchain, timeout uint64, signal present.Semaphore) (uint32, present.Status, error) {
	var index uint32
	result := vk.AcquireNextImage(d.LogicalDevice, swapchain.(vk.Swapchain), timeout, signal.(vk.Semaphore), vk.NullFence, &index)
	status, err := chainStatus("vkAcquireNextImageKHR", result)
	return index, status, err
}

// Present returns image imageIndex to the swapchain once wait is signaled.
func (d *VulkanDevice) Present(queue present.Queue, swapchain present.Swapchain, wait present.Semaphore, imageIndex uint32) (present.Status, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(vk.Semaphore)},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.(vk.Swapchain)},
		PImageIndices:      []uint32{imageIndex},
		PResults:           nil,
	}
	result := vk.QueuePresent(queue.(vk.Queue), &presentInfo)
	return chainStatus("vkQueuePresentKHR", result)
}
