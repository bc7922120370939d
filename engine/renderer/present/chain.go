package present

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

// Preferred chain settings. Anything else is a fallback.
var (
	PreferredSurfaceFormat = SurfaceFormat{Format: FormatB8G8R8A8Srgb, ColorSpace: ColorSpaceSrgbNonlinear}
	PreferredPresentMode   = PresentModeMailbox
)

// PresentationChain owns the swapchain, its images and views and one
// sync triple per image. All per-image slices have the same length.
type PresentationChain struct {
	// ID tags one build of the chain in logs.
	ID     uuid.UUID
	Handle Swapchain
	Config ChainConfig

	Images                   []Image
	Views                    []ImageView
	ImageAvailableSemaphores []Semaphore
	RenderFinishedSemaphores []Semaphore
	InFlightFences           []Fence
}

// ImageCount is the number of presentable images, N.
func (c *PresentationChain) ImageCount() uint32 {
	if c == nil {
		return 0
	}
	return uint32(len(c.Images))
}

// Extent is the size every image of the chain was created with.
func (c *PresentationChain) Extent() Extent2D {
	return c.Config.Extent
}

// ChooseExtent uses the surface's fixed extent when it reports one, and
// the window framebuffer size clamped to the surface limits otherwise.
func ChooseExtent(caps SurfaceCapabilities, width, height uint32) Extent2D {
	if caps.CurrentExtent.Width != ExtentSentinel {
		return caps.CurrentExtent
	}
	return Extent2D{
		Width:  math.Clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseSurfaceFormat returns the preferred sRGB pair when supported, else
// the first supported pair. formats must not be empty.
func ChooseSurfaceFormat(formats []SurfaceFormat) SurfaceFormat {
	for _, f := range formats {
		if f == PreferredSurfaceFormat {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox, then fifo, then the first supported
// mode. modes must not be empty.
func ChoosePresentMode(modes []PresentMode) PresentMode {
	fifo := false
	for _, m := range modes {
		if m == PreferredPresentMode {
			return m
		}
		if m == PresentModeFifo {
			fifo = true
		}
	}
	if fifo {
		return PresentModeFifo
	}
	return modes[0]
}

// ChooseImageCount asks for one image more than the minimum, bounded by
// the maximum when the surface reports one. A zero maximum is unbounded.
func ChooseImageCount(caps SurfaceCapabilities) uint32 {
	count := max(caps.MinImageCount+1, caps.MinImageCount)
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// ChooseChainConfig derives the full chain configuration from a surface
// report and the window framebuffer size.
func ChooseChainConfig(support SurfaceSupport, width, height uint32) (ChainConfig, error) {
	if len(support.Formats) == 0 {
		return ChainConfig{}, fmt.Errorf("%w: surface reports no formats", core.ErrSurfaceQuery)
	}
	if len(support.PresentModes) == 0 {
		return ChainConfig{}, fmt.Errorf("%w: surface reports no present modes", core.ErrSurfaceQuery)
	}
	return ChainConfig{
		Extent:      ChooseExtent(support.Capabilities, width, height),
		Format:      ChooseSurfaceFormat(support.Formats),
		PresentMode: ChoosePresentMode(support.PresentModes),
		ImageCount:  ChooseImageCount(support.Capabilities),
		Transform:   support.Capabilities.CurrentTransform,
	}, nil
}

// BuildChain queries the surface, creates the swapchain and allocates one
// view and one sync triple per image. In-flight fences start signaled so
// that the first wait on them returns immediately. On failure everything
// created by this call is released.
func BuildChain(dev Device, surface Surface, width, height uint32) (*PresentationChain, error) {
	support, err := dev.SurfaceSupport(surface)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSurfaceQuery, err)
	}
	cfg, err := ChooseChainConfig(support, width, height)
	if err != nil {
		return nil, err
	}

	chain := &PresentationChain{
		ID:     uuid.New(),
		Config: cfg,
	}

	handle, err := dev.CreateSwapchain(surface, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrChainCreation, err)
	}
	chain.Handle = handle

	images, err := dev.SwapchainImages(handle)
	if err != nil {
		chain.Teardown(dev)
		return nil, fmt.Errorf("%w: %v", core.ErrChainCreation, err)
	}
	if len(images) == 0 {
		chain.Teardown(dev)
		return nil, fmt.Errorf("%w: swapchain has no images", core.ErrChainCreation)
	}
	chain.Images = images

	n := len(images)
	chain.Views = make([]ImageView, n)
	chain.ImageAvailableSemaphores = make([]Semaphore, n)
	chain.RenderFinishedSemaphores = make([]Semaphore, n)
	chain.InFlightFences = make([]Fence, n)

	for i, image := range images {
		if chain.Views[i], err = dev.CreateImageView(image, cfg.Format.Format); err != nil {
			chain.Teardown(dev)
			return nil, fmt.Errorf("%w: image %d: %v", core.ErrViewCreation, i, err)
		}
		if chain.ImageAvailableSemaphores[i], err = dev.CreateSemaphore(); err != nil {
			chain.Teardown(dev)
			return nil, fmt.Errorf("%w: image-available semaphore %d: %v", core.ErrSyncObjectCreation, i, err)
		}
		if chain.RenderFinishedSemaphores[i], err = dev.CreateSemaphore(); err != nil {
			chain.Teardown(dev)
			return nil, fmt.Errorf("%w: render-finished semaphore %d: %v", core.ErrSyncObjectCreation, i, err)
		}
		if chain.InFlightFences[i], err = dev.CreateFence(true); err != nil {
			chain.Teardown(dev)
			return nil, fmt.Errorf("%w: in-flight fence %d: %v", core.ErrSyncObjectCreation, i, err)
		}
	}

	core.LogInfo("Swapchain %s created: %dx%d, %d images, format %d, present mode %s.",
		chain.ID, cfg.Extent.Width, cfg.Extent.Height, n, cfg.Format.Format, cfg.PresentMode)
	return chain, nil
}

// Teardown releases semaphores, then fences, then views, then the
// swapchain. Null entries are skipped and every released entry is cleared,
// so it is safe on partial chains and safe to call twice.
func (c *PresentationChain) Teardown(dev Device) {
	if c == nil {
		return
	}
	for i, s := range c.ImageAvailableSemaphores {
		if s != nil {
			dev.DestroySemaphore(s)
			c.ImageAvailableSemaphores[i] = nil
		}
	}
	for i, s := range c.RenderFinishedSemaphores {
		if s != nil {
			dev.DestroySemaphore(s)
			c.RenderFinishedSemaphores[i] = nil
		}
	}
	for i, f := range c.InFlightFences {
		if f != nil {
			dev.DestroyFence(f)
			c.InFlightFences[i] = nil
		}
	}
	// Images belong to the swapchain and go away with it.
	for i, v := range c.Views {
		if v != nil {
			dev.DestroyImageView(v)
			c.Views[i] = nil
		}
	}
	if c.Handle != nil {
		dev.DestroySwapchain(c.Handle)
		c.Handle = nil
		core.LogDebug("Swapchain %s destroyed.", c.ID)
	}
	c.Images = nil
}
