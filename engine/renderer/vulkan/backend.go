package vulkan

import (
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/present"
)

// SurfaceWindow is the window the backend presents to.
type SurfaceWindow interface {
	present.Window
	RequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}, allocator unsafe.Pointer) (uintptr, error)
}

// VulkanRenderer owns the Vulkan objects that outlive every presentation
// chain: instance, surface and logical device. The frame loop itself is a
// present.Renderer driving a ShaderScene.
type VulkanRenderer struct {
	window   SurfaceWindow
	context  *VulkanContext
	device   *present.DeviceHandle
	scene    *ShaderScene
	renderer *present.Renderer
}

func New(window SurfaceWindow) *VulkanRenderer {
	return &VulkanRenderer{window: window}
}

// Initialize loads Vulkan, creates the instance and the window surface,
// negotiates a device and performs the first chain build.
func (vr *VulkanRenderer) Initialize(cfg *core.Config) error {
	if err := vr.initialize(cfg); err != nil {
		if serr := vr.Shutdown(); serr != nil {
			core.LogWarn("cleanup after failed initialization: %s", serr)
		}
		return err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) initialize(cfg *core.Config) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("%w: GetInstanceProcAddress is nil", core.ErrCapability)
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return fmt.Errorf("%w: failed to initialize vk: %v", core.ErrCapability, err)
	}

	ctx, err := NewVulkanContext(ContextConfig{
		ApplicationName: cfg.Window.Name,
		Extensions:      vr.window.RequiredInstanceExtensions(),
		Validation:      cfg.Renderer.Validation,
	})
	if err != nil {
		return err
	}
	vr.context = ctx

	surface, err := vr.window.CreateWindowSurface(ctx.Instance, nil)
	if err != nil {
		return fmt.Errorf("%w: Vulkan surface creation failed: %v", core.ErrSurfaceQuery, err)
	}
	ctx.SetSurface(surface)
	core.LogInfo("Vulkan surface created.")

	vr.device, err = present.Negotiate(ctx, ctx.Surface, negotiateConfig(cfg))
	if err != nil {
		return err
	}
	device := vr.device.Device.(*VulkanDevice)

	vr.scene = NewShaderScene(device, cfg.VertexShaderPath(), cfg.FragmentShaderPath())

	vr.renderer = present.NewRenderer(vr.device, ctx.Surface, vr.window, vr.scene,
		present.WithMetricsReport(time.Duration(cfg.Metrics.ReportInterval*float64(time.Second))))
	return vr.renderer.Start()
}

func negotiateConfig(cfg *core.Config) present.NegotiateConfig {
	extensions := append([]string(nil), cfg.Renderer.RequiredDeviceExtensions...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions, portabilitySubsetName)
	}
	return present.NegotiateConfig{
		RequiredExtensions: extensions,
		Features: present.FeaturePolicy{
			SamplerAnisotropy: cfg.Renderer.Features.SamplerAnisotropy,
			SampleRateShading: cfg.Renderer.Features.SampleRateShading,
		},
	}
}

// Run drives frames until the window closes.
func (vr *VulkanRenderer) Run() error {
	return vr.renderer.Run()
}

// RequestRecreate schedules a chain rebuild. Safe from any goroutine.
func (vr *VulkanRenderer) RequestRecreate() {
	if vr.renderer != nil {
		vr.renderer.RequestRecreate()
	}
}

// Renderer exposes the frame loop, nil before Initialize.
func (vr *VulkanRenderer) Renderer() *present.Renderer {
	return vr.renderer
}

// Shutdown destroys everything in the opposite order of creation. It is
// safe after a partial Initialize and when called twice.
func (vr *VulkanRenderer) Shutdown() error {
	var err error
	if vr.renderer != nil {
		err = vr.renderer.Shutdown()
		vr.renderer = nil
	}
	vr.scene = nil

	if vr.device != nil {
		core.LogDebug("Destroying Vulkan device...")
		vr.device.Destroy()
		vr.device = nil
	}
	if vr.context != nil {
		vr.context.Destroy()
		vr.context = nil
	}
	return err
}
