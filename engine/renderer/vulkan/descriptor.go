package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanDescriptorSetConfig is the layout of the single descriptor set the
// fullscreen pipeline uses.
type VulkanDescriptorSetConfig struct {
	Bindings []vk.DescriptorSetLayoutBinding
}

// VulkanDescriptors owns a pool, one layout and one set per image.
type VulkanDescriptors struct {
	Pool   vk.DescriptorPool
	Layout vk.DescriptorSetLayout
	Sets   []vk.DescriptorSet
}

// uniformSetConfig binds one uniform buffer at binding 0, visible to both
// stages.
func uniformSetConfig() VulkanDescriptorSetConfig {
	return VulkanDescriptorSetConfig{
		Bindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
		}},
	}
}

// NewDescriptorSetLayout creates the layout described by config.
func NewDescriptorSetLayout(device *VulkanDevice, config VulkanDescriptorSetConfig) (vk.DescriptorSetLayout, error) {
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(config.Bindings)),
		PBindings:    config.Bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(device.LogicalDevice, &createInfo, device.allocator, &layout); res != vk.Success {
		return vk.NullDescriptorSetLayout, resultError("vkCreateDescriptorSetLayout", res)
	}
	return layout, nil
}

// NewUniformDescriptors allocates one set per buffer and points binding 0 of
// set i at buffers[i]. Every descriptor object shares the lifetime of the
// chain that sized it.
func NewUniformDescriptors(device *VulkanDevice, layout vk.DescriptorSetLayout, buffers []*VulkanBuffer) (*VulkanDescriptors, error) {
	d := &VulkanDescriptors{Layout: layout}
	count := uint32(len(buffers))

	poolSizes := []vk.DescriptorPoolSize{{
		Type:            vk.DescriptorTypeUniformBuffer,
		DescriptorCount: count,
	}}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       count,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if res := vk.CreateDescriptorPool(device.LogicalDevice, &poolCreateInfo, device.allocator, &d.Pool); res != vk.Success {
		return nil, resultError("vkCreateDescriptorPool", res)
	}

	d.Sets = make([]vk.DescriptorSet, count)
	for i, buf := range buffers {
		allocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     d.Pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}
		if res := vk.AllocateDescriptorSets(device.LogicalDevice, &allocateInfo, &d.Sets[i]); res != vk.Success {
			d.destroyPool(device)
			return nil, resultError("vkAllocateDescriptorSets", res)
		}

		writes := []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.Sets[i],
			DstBinding:      0,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: buf.Handle,
				Offset: 0,
				Range:  buf.Size,
			}},
		}}
		vk.UpdateDescriptorSets(device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	}
	return d, nil
}

func (d *VulkanDescriptors) destroyPool(device *VulkanDevice) {
	if d.Pool != vk.NullDescriptorPool {
		// Sets go with their pool.
		vk.DestroyDescriptorPool(device.LogicalDevice, d.Pool, device.allocator)
		d.Pool = vk.NullDescriptorPool
	}
	d.Sets = nil
}

// Destroy releases the pool with its sets. The layout belongs to the caller.
func (d *VulkanDescriptors) Destroy(device *VulkanDevice) {
	d.destroyPool(device)
}
