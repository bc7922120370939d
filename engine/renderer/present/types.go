// Package present drives a presentation chain: it negotiates a GPU and
// queue family, builds the chain of presentable images with one sync triple
// per image, and runs the acquire/submit/present loop, rebuilding the chain
// whenever it goes stale.
//
// The package never talks to a graphics API directly. Everything goes
// through the Instance, Device, Dependents and Window interfaces.
package present

import "math"

// Opaque driver objects. A nil value is the null handle.
type (
	PhysicalDevice interface{}
	Surface        interface{}
	Swapchain      interface{}
	Image          interface{}
	ImageView      interface{}
	Semaphore      interface{}
	Fence          interface{}
	Queue          interface{}
	CommandPool    interface{}
	CommandBuffer  interface{}
)

// WaitForever is the timeout used for fence waits and image acquisition.
const WaitForever uint64 = math.MaxUint64

// ExtentSentinel in SurfaceCapabilities.CurrentExtent means the surface
// size is decided by the swapchain extent.
const ExtentSentinel uint32 = math.MaxUint32

// DeviceClass orders GPU kinds for scoring.
type DeviceClass int

const (
	DeviceClassOther DeviceClass = iota
	DeviceClassIntegrated
	DeviceClassDiscrete
	DeviceClassVirtual
	DeviceClassCPU
)

func (c DeviceClass) String() string {
	switch c {
	case DeviceClassIntegrated:
		return "integrated"
	case DeviceClassDiscrete:
		return "discrete"
	case DeviceClassVirtual:
		return "virtual"
	case DeviceClassCPU:
		return "cpu"
	default:
		return "other"
	}
}

// DeviceFeatures is the subset of physical device features the engine cares
// about.
type DeviceFeatures struct {
	GeometryShader     bool
	TessellationShader bool
	SamplerAnisotropy  bool
	SampleRateShading  bool
}

// PhysicalDeviceCandidate describes one enumerated GPU.
type PhysicalDeviceCandidate struct {
	Handle     PhysicalDevice
	Name       string
	Class      DeviceClass
	Features   DeviceFeatures
	Extensions map[string]bool
	// DriverVersion and APIVersion are packed Vulkan versions, logged only.
	DriverVersion uint32
	APIVersion    uint32
}

// HasExtension reports whether the candidate advertises the named extension.
func (c PhysicalDeviceCandidate) HasExtension(name string) bool {
	return c.Extensions[name]
}

// QueueFamilyCapabilities records what one queue family can do.
type QueueFamilyCapabilities struct {
	Index         uint32
	Graphics      bool
	Compute       bool
	Transfer      bool
	SparseBinding bool
	Protected     bool
	Present       bool
}

// Extent2D is a size in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Format and ColorSpace carry the numeric values of the graphics API.
type (
	Format     int32
	ColorSpace int32
)

const (
	FormatUndefined     Format = 0
	FormatB8G8R8A8Unorm Format = 44
	FormatB8G8R8A8Srgb  Format = 50

	ColorSpaceSrgbNonlinear ColorSpace = 0
)

// SurfaceFormat is a format and color space pair supported by a surface.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode carries the numeric value of the graphics API present mode.
type PresentMode int32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo-relaxed"
	default:
		return "unknown"
	}
}

// SurfaceCapabilities mirrors the surface capability report.
type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32
	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D
	// CurrentTransform is passed back to swapchain creation untouched.
	CurrentTransform uint32
}

// SurfaceSupport is the full surface query result for one device.
type SurfaceSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

// ChainConfig is what a presentation chain is created with.
type ChainConfig struct {
	Extent      Extent2D
	Format      SurfaceFormat
	PresentMode PresentMode
	ImageCount  uint32
	// Transform is copied from SurfaceCapabilities.CurrentTransform.
	Transform uint32
}

// Status is the non-error outcome of acquire and present.
type Status int

const (
	StatusSuccess Status = iota
	// StatusSuboptimal means the chain still works but should be rebuilt.
	StatusSuboptimal
	// StatusOutOfDate means the chain can no longer be used.
	StatusOutOfDate
)

// Stale reports whether the chain has to be rebuilt.
func (s Status) Stale() bool {
	return s == StatusSuboptimal || s == StatusOutOfDate
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	default:
		return "unknown"
	}
}

// FrameInputs is the frame-varying data written before each submission.
type FrameInputs struct {
	Time       float32
	MouseX     float32
	MouseY     float32
	Resolution Extent2D
}
