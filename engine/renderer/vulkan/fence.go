package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/present"
)

// VulkanFence tracks whether the fence is known to be signaled so waits on
// it can be skipped.
type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device *VulkanDevice, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if res := vk.CreateFence(device.LogicalDevice, &fenceCreateInfo, device.allocator, &handle); res != vk.Success {
		return nil, resultError("vkCreateFence", res)
	}
	fence.Handle = handle
	return fence, nil
}

func (vf *VulkanFence) Destroy(device *VulkanDevice) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(device.LogicalDevice, vf.Handle, device.allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence is signaled or timeoutNs expires.
func (vf *VulkanFence) Wait(device *VulkanDevice, timeoutNs uint64) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	}
	return resultError("vkWaitForFences", result)
}

func (vf *VulkanFence) Reset(device *VulkanDevice) error {
	if vf.IsSignaled {
		if res := vk.ResetFences(device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
			return resultError("vkResetFences", res)
		}
		vf.IsSignaled = false
	}
	return nil
}

func (d *VulkanDevice) CreateFence(signaled bool) (present.Fence, error) {
	f, err := NewFence(d, signaled)
	if err != nil {
		return nil, err
	}
	return presentFence(f), nil
}

// presentFence keeps a nil *VulkanFence from becoming a non-nil
// present.Fence.
func presentFence(f *VulkanFence) present.Fence {
	if f == nil {
		return nil
	}
	return f
}

func (d *VulkanDevice) DestroyFence(fence present.Fence) {
	if f, ok := fence.(*VulkanFence); ok && f != nil {
		f.Destroy(d)
	}
}

func (d *VulkanDevice) WaitForFence(fence present.Fence, timeout uint64) error {
	f, ok := fence.(*VulkanFence)
	if !ok || f == nil {
		return fmt.Errorf("wait on %T: not a fence", fence)
	}
	return f.Wait(d, timeout)
}

func (d *VulkanDevice) ResetFence(fence present.Fence) error {
	f, ok := fence.(*VulkanFence)
	if !ok || f == nil {
		return fmt.Errorf("reset of %T: not a fence", fence)
	}
	return f.Reset(d)
}

func (d *VulkanDevice) CreateSemaphore() (present.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(d.LogicalDevice, &info, d.allocator, &semaphore); res != vk.Success {
		return nil, resultError("vkCreateSemaphore", res)
	}
	return semaphore, nil
}

func (d *VulkanDevice) DestroySemaphore(semaphore present.Semaphore) {
	if s, ok := semaphore.(vk.Semaphore); ok && s != vk.NullSemaphore {
		vk.DestroySemaphore(d.LogicalDevice, s, d.allocator)
	}
}

// Submit runs cmd once wait is signaled at the color attachment output
// stage. The fence is left unsignaled until the GPU finishes.
func (d *VulkanDevice) Submit(queue present.Queue, cmd present.CommandBuffer, wait present.Semaphore, signal present.Semaphore, fence present.Fence) error {
	f, ok := fence.(*VulkanFence)
	if !ok || f == nil {
		return fmt.Errorf("submit with %T: not a fence", fence)
	}
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait.(vk.Semaphore)},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd.(vk.CommandBuffer)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal.(vk.Semaphore)},
	}
	if res := vk.QueueSubmit(queue.(vk.Queue), 1, []vk.SubmitInfo{submitInfo}, f.Handle); res != vk.Success {
		return resultError("vkQueueSubmit", res)
	}
	f.IsSignaled = false
	return nil
}
