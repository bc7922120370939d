package present

// DeviceRequest asks an Instance for a logical device.
type DeviceRequest struct {
	PhysicalDevice PhysicalDevice
	QueueFamily    uint32
	Extensions     []string
	Features       DeviceFeatures
}

// Instance enumerates GPUs and creates logical devices.
type Instance interface {
	PhysicalDevices() ([]PhysicalDeviceCandidate, error)
	QueueFamilies(device PhysicalDevice, surface Surface) ([]QueueFamilyCapabilities, error)
	CreateDevice(req DeviceRequest) (Device, error)
}

// Device is a logical device with one queue family. It owns a command pool
// bound to that family, a transfer fence and the graphics and present queues.
//
// Destroy functions must accept nil handles.
type Device interface {
	GraphicsQueue() Queue
	PresentQueue() Queue
	CommandPool() CommandPool
	TransferFence() Fence

	SurfaceSupport(surface Surface) (SurfaceSupport, error)

	CreateSwapchain(surface Surface, cfg ChainConfig) (Swapchain, error)
	SwapchainImages(swapchain Swapchain) ([]Image, error)
	DestroySwapchain(swapchain Swapchain)
	CreateImageView(image Image, format Format) (ImageView, error)
	DestroyImageView(view ImageView)

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(semaphore Semaphore)
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(fence Fence)
	WaitForFence(fence Fence, timeout uint64) error
	ResetFence(fence Fence) error

	// AcquireNextImage returns an error only for results other than
	// success, suboptimal and out-of-date.
	AcquireNextImage(swapchain Swapchain, timeout uint64, signal Semaphore) (uint32, Status, error)
	// Submit runs cmd on queue after wait is signaled at the color attachment
	// output stage, then signals signal and fence.
	Submit(queue Queue, cmd CommandBuffer, wait Semaphore, signal Semaphore, fence Fence) error
	// Present returns an error only for results other than success,
	// suboptimal and out-of-date.
	Present(queue Queue, swapchain Swapchain, wait Semaphore, imageIndex uint32) (Status, error)
	WaitIdle() error

	Destroy()
}

// Dependents are the resources bound to a chain's extent and image count:
// render pass, pipeline, framebuffers, per-image uniform buffers,
// descriptor sets and command recordings.
type Dependents interface {
	// Build creates every dependent for chain. On error nothing is left
	// allocated.
	Build(chain *PresentationChain) error
	// Destroy releases every dependent. It is safe on partial or destroyed
	// state.
	Destroy()
	UpdateInputs(imageIndex uint32, inputs FrameInputs) error
	CommandBuffer(imageIndex uint32) CommandBuffer
}

// Window is the windowing collaborator polled by the frame loop.
type Window interface {
	FramebufferSize() (int, int)
	CursorPos() (float64, float64)
	ShouldClose() bool
	PollEvents()
	WaitEvents()
}
