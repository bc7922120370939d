package present

import (
	"errors"
	"fmt"
)

// fakeObject is a driver handle of the in-memory device.
type fakeObject struct {
	kind string
	id   int
}

func (o *fakeObject) String() string {
	return fmt.Sprintf("%s#%d", o.kind, o.id)
}

type acquireResult struct {
	index  uint32
	status Status
	err    error
}

type presentResult struct {
	status Status
	err    error
}

// fakeDevice simulates a GPU that finishes submitted work instantly. Every
// call is appended to calls so tests can check ordering.
type fakeDevice struct {
	support    SurfaceSupport
	supportErr error

	nextID int
	live   map[*fakeObject]bool
	calls  []string
	// failOn[kind] = k fails the k-th (1-based) creation of that kind.
	failOn  map[string]int
	created map[string]int

	signaled       map[*fakeObject]bool
	images         map[*fakeObject][]Image
	nextImage      uint32
	acquireScript  []acquireResult
	presentScript  []presentResult
	submitErr      error
	waitIdleCount  int
	destroyed      bool
	graphicsQueue  *fakeObject
	presentQueue   *fakeObject
	commandPool    *fakeObject
	transferFence  *fakeObject
	submittedCmds  []CommandBuffer
	presentedIndex []uint32
}

func newFakeDevice(support SurfaceSupport) *fakeDevice {
	d := &fakeDevice{
		support:  support,
		live:     map[*fakeObject]bool{},
		failOn:   map[string]int{},
		created:  map[string]int{},
		signaled: map[*fakeObject]bool{},
		images:   map[*fakeObject][]Image{},
	}
	d.graphicsQueue = &fakeObject{kind: "queue"}
	d.presentQueue = d.graphicsQueue
	d.commandPool = &fakeObject{kind: "pool"}
	d.transferFence = &fakeObject{kind: "transfer-fence"}
	return d
}

func defaultSupport() SurfaceSupport {
	return SurfaceSupport{
		Capabilities: SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  8,
			CurrentExtent:  Extent2D{Width: ExtentSentinel, Height: ExtentSentinel},
			MinImageExtent: Extent2D{Width: 1, Height: 1},
			MaxImageExtent: Extent2D{Width: 4096, Height: 4096},
		},
		Formats:      []SurfaceFormat{{Format: FormatB8G8R8A8Unorm}, PreferredSurfaceFormat},
		PresentModes: []PresentMode{PresentModeFifo, PresentModeMailbox},
	}
}

func (d *fakeDevice) log(format string, args ...interface{}) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) create(kind string) (*fakeObject, error) {
	d.created[kind]++
	if k, ok := d.failOn[kind]; ok && k == d.created[kind] {
		d.log("create-fail:%s", kind)
		return nil, errors.New("injected " + kind + " failure")
	}
	d.nextID++
	o := &fakeObject{kind: kind, id: d.nextID}
	d.live[o] = true
	d.log("create:%s", o)
	return o, nil
}

func (d *fakeDevice) destroy(h interface{}) {
	if h == nil {
		return
	}
	o := h.(*fakeObject)
	if !d.live[o] {
		panic("double destroy of " + o.String())
	}
	delete(d.live, o)
	d.log("destroy:%s", o.kind)
}

func (d *fakeDevice) liveCount(kind string) int {
	n := 0
	for o := range d.live {
		if o.kind == kind {
			n++
		}
	}
	return n
}

func (d *fakeDevice) countCalls(prefix string) int {
	n := 0
	for _, c := range d.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (d *fakeDevice) GraphicsQueue() Queue         { return d.graphicsQueue }
func (d *fakeDevice) PresentQueue() Queue          { return d.presentQueue }
func (d *fakeDevice) CommandPool() CommandPool     { return d.commandPool }
func (d *fakeDevice) TransferFence() Fence         { return d.transferFence }
func (d *fakeDevice) Destroy()                     { d.destroyed = true }
func (d *fakeDevice) DestroySwapchain(s Swapchain) { d.destroy(s) }
func (d *fakeDevice) DestroyImageView(v ImageView) { d.destroy(v) }
func (d *fakeDevice) DestroySemaphore(s Semaphore) { d.destroy(s) }

func (d *fakeDevice) SurfaceSupport(surface Surface) (SurfaceSupport, error) {
	d.log("surface-support")
	return d.support, d.supportErr
}

func (d *fakeDevice) CreateSwapchain(surface Surface, cfg ChainConfig) (Swapchain, error) {
	o, err := d.create("swapchain")
	if err != nil {
		return nil, err
	}
	imgs := make([]Image, cfg.ImageCount)
	for i := range imgs {
		imgs[i] = &fakeObject{kind: "image", id: i}
	}
	d.images[o] = imgs
	d.nextImage = 0
	return o, nil
}

func (d *fakeDevice) SwapchainImages(swapchain Swapchain) ([]Image, error) {
	return d.images[swapchain.(*fakeObject)], nil
}

func (d *fakeDevice) CreateImageView(image Image, format Format) (ImageView, error) {
	o, err := d.create("view")
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (d *fakeDevice) CreateSemaphore() (Semaphore, error) {
	o, err := d.create("semaphore")
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (d *fakeDevice) CreateFence(signaled bool) (Fence, error) {
	o, err := d.create("fence")
	if err != nil {
		return nil, err
	}
	d.signaled[o] = signaled
	return o, nil
}

func (d *fakeDevice) DestroyFence(f Fence) {
	if f != nil {
		delete(d.signaled, f.(*fakeObject))
	}
	d.destroy(f)
}

func (d *fakeDevice) WaitForFence(f Fence, timeout uint64) error {
	o := f.(*fakeObject)
	d.log("wait:%s", o)
	if !d.live[o] {
		return errors.New("wait on destroyed fence " + o.String())
	}
	if !d.signaled[o] {
		// Nothing is queued behind an unsignaled fence: this would hang.
		return errors.New("deadlock waiting on " + o.String())
	}
	return nil
}

func (d *fakeDevice) ResetFence(f Fence) error {
	o := f.(*fakeObject)
	d.log("reset:%s", o)
	d.signaled[o] = false
	return nil
}

func (d *fakeDevice) AcquireNextImage(swapchain Swapchain, timeout uint64, signal Semaphore) (uint32, Status, error) {
	sc := swapchain.(*fakeObject)
	if !d.live[sc] {
		return 0, StatusSuccess, errors.New("acquire on destroyed swapchain")
	}
	d.log("acquire:%s", signal.(*fakeObject))
	if len(d.acquireScript) > 0 {
		r := d.acquireScript[0]
		d.acquireScript = d.acquireScript[1:]
		return r.index, r.status, r.err
	}
	n := uint32(len(d.images[sc]))
	idx := d.nextImage
	d.nextImage = (d.nextImage + 1) % n
	return idx, StatusSuccess, nil
}

func (d *fakeDevice) Submit(queue Queue, cmd CommandBuffer, wait Semaphore, signal Semaphore, fence Fence) error {
	d.log("submit:%v wait=%s signal=%s fence=%s", cmd, wait.(*fakeObject), signal.(*fakeObject), fence.(*fakeObject))
	if d.submitErr != nil {
		return d.submitErr
	}
	d.submittedCmds = append(d.submittedCmds, cmd)
	// The fake GPU finishes instantly.
	d.signaled[fence.(*fakeObject)] = true
	return nil
}

func (d *fakeDevice) Present(queue Queue, swapchain Swapchain, wait Semaphore, imageIndex uint32) (Status, error) {
	d.log("present:%d wait=%s", imageIndex, wait.(*fakeObject))
	d.presentedIndex = append(d.presentedIndex, imageIndex)
	if len(d.presentScript) > 0 {
		r := d.presentScript[0]
		d.presentScript = d.presentScript[1:]
		return r.status, r.err
	}
	return StatusSuccess, nil
}

func (d *fakeDevice) WaitIdle() error {
	d.waitIdleCount++
	d.log("wait-idle")
	return nil
}

// fakeInstance hands out candidates and one fakeDevice.
type fakeInstance struct {
	candidates  []PhysicalDeviceCandidate
	families    map[string][]QueueFamilyCapabilities
	enumErr     error
	createErr   error
	device      *fakeDevice
	lastRequest DeviceRequest
}

func (i *fakeInstance) PhysicalDevices() ([]PhysicalDeviceCandidate, error) {
	return i.candidates, i.enumErr
}

func (i *fakeInstance) QueueFamilies(device PhysicalDevice, surface Surface) ([]QueueFamilyCapabilities, error) {
	return i.families[device.(string)], nil
}

func (i *fakeInstance) CreateDevice(req DeviceRequest) (Device, error) {
	i.lastRequest = req
	if i.createErr != nil {
		return nil, i.createErr
	}
	return i.device, nil
}

// fakeDependents records what it was built against.
type fakeDependents struct {
	dev        *fakeDevice
	built      bool
	buildCount int
	buildErr   error
	imageCount uint32
	extent     Extent2D
	cmds       []CommandBuffer
	inputs     map[uint32]FrameInputs
	inputOrder []uint32
}

func newFakeDependents(dev *fakeDevice) *fakeDependents {
	return &fakeDependents{dev: dev, inputs: map[uint32]FrameInputs{}}
}

func (f *fakeDependents) Build(chain *PresentationChain) error {
	f.dev.log("dependents-build")
	if f.buildErr != nil {
		return f.buildErr
	}
	f.buildCount++
	f.built = true
	f.imageCount = chain.ImageCount()
	f.extent = chain.Extent()
	f.cmds = make([]CommandBuffer, f.imageCount)
	for i := range f.cmds {
		f.cmds[i] = fmt.Sprintf("cmd%d/%d", f.buildCount, i)
	}
	return nil
}

func (f *fakeDependents) Destroy() {
	if f.built {
		f.dev.log("dependents-destroy")
	}
	f.built = false
	f.cmds = nil
}

func (f *fakeDependents) UpdateInputs(imageIndex uint32, inputs FrameInputs) error {
	if imageIndex >= uint32(len(f.cmds)) {
		return fmt.Errorf("image %d out of range", imageIndex)
	}
	f.dev.log("inputs:%d", imageIndex)
	f.inputs[imageIndex] = inputs
	f.inputOrder = append(f.inputOrder, imageIndex)
	return nil
}

func (f *fakeDependents) CommandBuffer(imageIndex uint32) CommandBuffer {
	return f.cmds[imageIndex]
}

type size struct{ w, h int }

// fakeWindow replays framebuffer sizes; the last one repeats.
type fakeWindow struct {
	sizes       []size
	closeAfter  int // ShouldClose turns true after this many calls; <0 never
	closeCalls  int
	polls       int
	waits       int
	mouseX      float64
	mouseY      float64
	onWaitEvent func()
}

func (w *fakeWindow) FramebufferSize() (int, int) {
	s := w.sizes[0]
	if len(w.sizes) > 1 {
		w.sizes = w.sizes[1:]
	}
	return s.w, s.h
}

func (w *fakeWindow) CursorPos() (float64, float64) { return w.mouseX, w.mouseY }

func (w *fakeWindow) ShouldClose() bool {
	w.closeCalls++
	return w.closeAfter >= 0 && w.closeCalls > w.closeAfter
}

func (w *fakeWindow) PollEvents() { w.polls++ }

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if w.onWaitEvent != nil {
		w.onWaitEvent()
	}
}

func fixedWindow(width, height int) *fakeWindow {
	return &fakeWindow{sizes: []size{{width, height}}, closeAfter: -1}
}

// newTestRenderer builds a started renderer over fakes.
func newTestRenderer(support SurfaceSupport, window *fakeWindow) (*Renderer, *fakeDevice, *fakeDependents, error) {
	dev := newFakeDevice(support)
	deps := newFakeDependents(dev)
	handle := &DeviceHandle{Device: dev}
	r := NewRenderer(handle, "surface", window, deps)
	err := r.Start()
	return r, dev, deps, err
}
