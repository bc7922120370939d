package present

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/prism/engine/core"
)

// noSlot marks an image no frame slot has submitted yet.
const noSlot = -1

// Renderer is the render state owned by the control thread: the device,
// the current chain with its dependents and the frame cursor. Only Run,
// Frame, Recreate and Shutdown touch it, and only from one goroutine.
// RequestRecreate may be called from any goroutine.
type Renderer struct {
	device     *DeviceHandle
	surface    Surface
	window     Window
	dependents Dependents

	chain  *PresentationChain
	cursor FrameCursor
	// imagesInFlight[i] is the slot whose fence guards the last submission
	// that used image i.
	imagesInFlight []int

	recreatePending  bool
	recreateRequests atomic.Bool

	clock          *core.Clock
	metrics        *core.Metrics
	reportInterval time.Duration
	lastReport     time.Duration
	lastFrame      time.Duration

	// FrameNumber counts loop iterations that submitted work.
	FrameNumber uint64
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithClock replaces the clock feeding FrameInputs.Time.
func WithClock(c *core.Clock) RendererOption {
	return func(r *Renderer) {
		r.clock = c
	}
}

// WithMetricsReport logs frame metrics every interval. Zero disables it.
func WithMetricsReport(interval time.Duration) RendererOption {
	return func(r *Renderer) {
		r.reportInterval = interval
	}
}

// NewRenderer wires the loop collaborators. No GPU objects are created
// until the first Recreate.
func NewRenderer(device *DeviceHandle, surface Surface, window Window, dependents Dependents, opts ...RendererOption) *Renderer {
	r := &Renderer{
		device:     device,
		surface:    surface,
		window:     window,
		dependents: dependents,
		clock:      core.NewClock(),
		metrics:    core.NewMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Chain is the current presentation chain, nil before the first build.
func (r *Renderer) Chain() *PresentationChain {
	return r.chain
}

// Cursor is the slot the next iteration will use.
func (r *Renderer) Cursor() uint32 {
	return r.cursor.Value()
}

// RequestRecreate asks for a rebuild at the next iteration boundary.
func (r *Renderer) RequestRecreate() {
	r.recreateRequests.Store(true)
}

// Start performs the first build and starts the frame clock.
func (r *Renderer) Start() error {
	if err := r.Recreate(); err != nil {
		return err
	}
	r.clock.Start()
	return nil
}

// Run drives frames until the window asks to close, then drains the GPU.
// Teardown is left to Shutdown.
func (r *Renderer) Run() error {
	for !r.window.ShouldClose() {
		if err := r.Frame(); err != nil {
			if errors.Is(err, core.ErrWindowClosed) {
				break
			}
			return err
		}
	}
	if err := r.device.Device.WaitIdle(); err != nil {
		return fmt.Errorf("failed to drain device on close: %w", err)
	}
	return nil
}

// Frame runs one loop iteration: wait for a drawable window, acquire,
// update inputs, then either submit and present or rebuild the chain.
// Stale chains are rebuilt silently. Every other failure is returned.
func (r *Renderer) Frame() error {
	width, height, err := r.waitWindow()
	if err != nil {
		return err
	}

	if r.recreateRequests.Swap(false) {
		r.recreatePending = true
	}
	if r.recreatePending {
		core.LogDebug("Rebuild queued by a previous iteration.")
		return r.recreateAndAdvance()
	}

	dev := r.device.Device
	slot := r.cursor.Value()

	// The slot's fence guards its semaphores until the GPU is done with
	// the last submission that used them.
	if err := dev.WaitForFence(r.chain.InFlightFences[slot], WaitForever); err != nil {
		return fmt.Errorf("%w: slot %d: %v", core.ErrFenceWait, slot, err)
	}

	imageIndex, status, err := dev.AcquireNextImage(r.chain.Handle, WaitForever, r.chain.ImageAvailableSemaphores[slot])
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrAcquire, err)
	}
	if status.Stale() {
		core.LogDebug("Acquire reported %s, rebuilding swapchain.", status)
		return r.recreateAndAdvance()
	}
	if imageIndex >= r.chain.ImageCount() {
		return fmt.Errorf("%w: image index %d out of range [0,%d)", core.ErrAcquire, imageIndex, r.chain.ImageCount())
	}

	// Frame-varying data is keyed by image. Wait until the last submission
	// that read this image's data has finished.
	if prev := r.imagesInFlight[imageIndex]; prev != noSlot && uint32(prev) != slot {
		if err := dev.WaitForFence(r.chain.InFlightFences[prev], WaitForever); err != nil {
			return fmt.Errorf("%w: image %d: %v", core.ErrFenceWait, imageIndex, err)
		}
	}

	r.clock.Update()
	mx, my := r.window.CursorPos()
	inputs := FrameInputs{
		Time:       r.clock.Seconds(),
		MouseX:     float32(mx),
		MouseY:     float32(my),
		Resolution: Extent2D{Width: width, Height: height},
	}
	if err := r.dependents.UpdateInputs(imageIndex, inputs); err != nil {
		return fmt.Errorf("%w: inputs for image %d: %v", core.ErrSubmit, imageIndex, err)
	}

	// Reset right before submit so the fence is never unsignaled without
	// work queued behind it.
	fence := r.chain.InFlightFences[slot]
	if err := dev.ResetFence(fence); err != nil {
		return fmt.Errorf("%w: reset fence %d: %v", core.ErrSubmit, slot, err)
	}
	if err := dev.Submit(
		dev.GraphicsQueue(),
		r.dependents.CommandBuffer(imageIndex),
		r.chain.ImageAvailableSemaphores[slot],
		r.chain.RenderFinishedSemaphores[slot],
		fence); err != nil {
		return fmt.Errorf("%w: %v", core.ErrSubmit, err)
	}
	r.imagesInFlight[imageIndex] = int(slot)

	status, err = dev.Present(dev.PresentQueue(), r.chain.Handle, r.chain.RenderFinishedSemaphores[slot], imageIndex)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrPresent, err)
	}
	if status.Stale() {
		core.LogDebug("Present reported %s, rebuild queued for next iteration.", status)
		r.recreatePending = true
	}

	r.cursor.Advance()
	r.FrameNumber++
	r.updateMetrics()
	return nil
}

// waitWindow blocks while the framebuffer has no area. Only a close
// request ends the wait early.
func (r *Renderer) waitWindow() (uint32, uint32, error) {
	width, height := r.window.FramebufferSize()
	for width <= 0 || height <= 0 {
		if r.window.ShouldClose() {
			return 0, 0, core.ErrWindowClosed
		}
		r.window.WaitEvents()
		width, height = r.window.FramebufferSize()
	}
	r.window.PollEvents()
	return uint32(width), uint32(height), nil
}

func (r *Renderer) recreateAndAdvance() error {
	if err := r.Recreate(); err != nil {
		return err
	}
	r.cursor.Advance()
	return nil
}

func (r *Renderer) updateMetrics() {
	now := r.clock.Elapsed()
	r.metrics.Update((now - r.lastFrame).Seconds())
	r.lastFrame = now
	if r.reportInterval > 0 && now-r.lastReport >= r.reportInterval {
		fps, ms := r.metrics.Frame()
		core.LogDebug("frame %d: %.0f fps, %.2f ms", r.FrameNumber, fps, ms)
		r.lastReport = now
	}
}
