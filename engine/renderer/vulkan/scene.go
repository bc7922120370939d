package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/present"
)

// fullscreenVertexCount is two triangles covering the viewport, generated in
// the vertex shader.
const fullscreenVertexCount = 6

// SceneUniform is the std140 uniform block read by both shader stages.
type SceneUniform struct {
	Resolution [3]float32
	Time       float32
	Mouse      [4]float32
}

// NewSceneUniform converts frame inputs into the uniform block. The mouse
// zw components hold the previous frame position.
func NewSceneUniform(in present.FrameInputs) SceneUniform {
	return SceneUniform{
		Resolution: [3]float32{float32(in.Resolution.Width), float32(in.Resolution.Height), 1},
		Time:       in.Time,
		Mouse:      [4]float32{in.MouseX, in.MouseY, 0, 0},
	}
}

// Bytes returns the block exactly as it is laid out in memory.
func (u *SceneUniform) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), unsafe.Sizeof(*u))
}

// ShaderScene draws a fullscreen fragment shader. Everything it owns is
// sized by the chain it was built from.
type ShaderScene struct {
	device       *VulkanDevice
	vertexPath   string
	fragmentPath string
	ClearColor   [4]float32

	renderpass   *VulkanRenderpass
	setLayout    vk.DescriptorSetLayout
	pipeline     *VulkanPipeline
	framebuffers []*VulkanFramebuffer
	uniforms     []*VulkanBuffer
	descriptors  *VulkanDescriptors
	commands     []*VulkanCommandBuffer

	lastMouse [2]float32
}

func NewShaderScene(device *VulkanDevice, vertexPath, fragmentPath string) *ShaderScene {
	return &ShaderScene{
		device:       device,
		vertexPath:   vertexPath,
		fragmentPath: fragmentPath,
		ClearColor:   [4]float32{0, 0, 0, 1},
	}
}

var _ present.Dependents = (*ShaderScene)(nil)

// Build creates the render pass, pipeline, framebuffers, uniform buffers,
// descriptor sets and one recorded command buffer per image of chain.
func (s *ShaderScene) Build(chain *present.PresentationChain) error {
	if err := s.build(chain); err != nil {
		s.Destroy()
		return err
	}
	core.LogDebug("Scene built for chain %s with %d images.", chain.ID, chain.ImageCount())
	return nil
}

func (s *ShaderScene) build(chain *present.PresentationChain) error {
	extent := chain.Extent()
	n := int(chain.ImageCount())
	w, h := float32(extent.Width), float32(extent.Height)

	var err error
	s.renderpass, err = RenderpassCreate(s.device, vk.Format(chain.Config.Format.Format),
		0, 0, w, h, s.ClearColor[0], s.ClearColor[1], s.ClearColor[2], s.ClearColor[3])
	if err != nil {
		return err
	}

	if s.setLayout, err = NewDescriptorSetLayout(s.device, uniformSetConfig()); err != nil {
		return err
	}

	if err := s.buildPipeline(w, h, extent); err != nil {
		return err
	}

	s.framebuffers = make([]*VulkanFramebuffer, 0, n)
	for i := 0; i < n; i++ {
		fb, err := FramebufferCreate(s.device, s.renderpass, extent.Width, extent.Height,
			[]vk.ImageView{chain.Views[i].(vk.ImageView)})
		if err != nil {
			return fmt.Errorf("framebuffer %d: %w", i, err)
		}
		s.framebuffers = append(s.framebuffers, fb)
	}

	size := int(unsafe.Sizeof(SceneUniform{}))
	s.uniforms = make([]*VulkanBuffer, 0, n)
	for i := 0; i < n; i++ {
		buf, err := NewHostBuffer(s.device, size, vk.BufferUsageUniformBufferBit)
		if err != nil {
			return fmt.Errorf("uniform buffer %d: %w", i, err)
		}
		s.uniforms = append(s.uniforms, buf)
	}

	if s.descriptors, err = NewUniformDescriptors(s.device, s.setLayout, s.uniforms); err != nil {
		return err
	}

	s.commands = make([]*VulkanCommandBuffer, 0, n)
	for i := 0; i < n; i++ {
		cb, err := NewVulkanCommandBuffer(s.device, s.device.GraphicsCommandPool, true)
		if err != nil {
			return fmt.Errorf("command buffer %d: %w", i, err)
		}
		s.commands = append(s.commands, cb)
		if err := s.record(i, extent); err != nil {
			return fmt.Errorf("record image %d: %w", i, err)
		}
	}
	return nil
}

func (s *ShaderScene) buildPipeline(w, h float32, extent present.Extent2D) error {
	vert, err := NewShaderStage(s.device, s.vertexPath, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	defer vert.Destroy(s.device)
	frag, err := NewShaderStage(s.device, s.fragmentPath, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	// Modules are only needed while the pipeline is created.
	defer frag.Destroy(s.device)

	s.pipeline, err = NewGraphicsPipeline(s.device, &VulkanPipelineConfig{
		Renderpass:           s.renderpass,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{s.setLayout},
		Stages:               []vk.PipelineShaderStageCreateInfo{vert.ShaderStageCreateInfo, frag.ShaderStageCreateInfo},
		Viewport:             fullViewport(w, h),
		Scissor:              fullScissor(extent),
		CullMode:             FaceCullModeNone,
	})
	return err
}

func fullViewport(w, h float32) vk.Viewport {
	return vk.Viewport{X: 0, Y: 0, Width: w, Height: h, MinDepth: 0, MaxDepth: 1}
}

func fullScissor(extent present.Extent2D) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
	}
}

func (s *ShaderScene) record(i int, extent present.Extent2D) error {
	cb := s.commands[i]
	if err := cb.Begin(false, false, true); err != nil {
		return err
	}
	s.renderpass.Begin(cb, s.framebuffers[i].Handle)
	s.pipeline.Bind(cb, vk.PipelineBindPointGraphics)
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{fullViewport(float32(extent.Width), float32(extent.Height))})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{fullScissor(extent)})
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, s.pipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{s.descriptors.Sets[i]}, 0, nil)
	vk.CmdDraw(cb.Handle, fullscreenVertexCount, 1, 0, 0)
	s.renderpass.End(cb)
	return cb.End()
}

// Destroy releases, in order, the recorded commands, framebuffers, render
// pass, pipeline, descriptors and uniform buffers. It is safe on partial
// or already destroyed state.
func (s *ShaderScene) Destroy() {
	for _, cb := range s.commands {
		cb.Free(s.device, s.device.GraphicsCommandPool)
	}
	s.commands = nil

	for _, fb := range s.framebuffers {
		fb.Destroy(s.device)
	}
	s.framebuffers = nil

	if s.renderpass != nil {
		s.renderpass.Destroy(s.device)
		s.renderpass = nil
	}
	if s.pipeline != nil {
		s.pipeline.Destroy(s.device)
		s.pipeline = nil
	}

	if s.descriptors != nil {
		s.descriptors.Destroy(s.device)
		s.descriptors = nil
	}
	if s.setLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(s.device.LogicalDevice, s.setLayout, s.device.allocator)
		s.setLayout = vk.NullDescriptorSetLayout
	}

	for _, buf := range s.uniforms {
		buf.Destroy(s.device)
	}
	s.uniforms = nil
}

// UpdateInputs writes the uniform block of image imageIndex.
func (s *ShaderScene) UpdateInputs(imageIndex uint32, inputs present.FrameInputs) error {
	if int(imageIndex) >= len(s.uniforms) {
		return fmt.Errorf("no uniform buffer for image %d", imageIndex)
	}
	u := NewSceneUniform(inputs)
	u.Mouse[2], u.Mouse[3] = s.lastMouse[0], s.lastMouse[1]
	s.lastMouse = [2]float32{inputs.MouseX, inputs.MouseY}
	return s.uniforms[imageIndex].Write(u.Bytes())
}

func (s *ShaderScene) CommandBuffer(imageIndex uint32) present.CommandBuffer {
	return s.commands[imageIndex].Handle
}
