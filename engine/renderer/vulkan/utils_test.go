package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/renderer/present"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVulkanResultIsSuccess(t *testing.T) {
	for _, r := range []vk.Result{vk.Success, vk.Suboptimal, vk.Timeout, vk.Incomplete} {
		assert.True(t, VulkanResultIsSuccess(r), VulkanResultString(r, false))
	}
	for _, r := range []vk.Result{vk.ErrorOutOfDate, vk.ErrorDeviceLost, vk.ErrorSurfaceLost, vk.Result(-999)} {
		assert.False(t, VulkanResultIsSuccess(r), VulkanResultString(r, false))
	}
}

func TestVulkanResultStringUnknown(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", VulkanResultString(vk.Success, false))
	assert.Equal(t, "VkResult(-999)", VulkanResultString(vk.Result(-999), false))
	assert.Equal(t, "VkResult(-999)", VulkanResultString(vk.Result(-999), true))
}

func TestChainStatus(t *testing.T) {
	tests := []struct {
		result  vk.Result
		want    present.Status
		wantErr bool
	}{
		{vk.Success, present.StatusSuccess, false},
		{vk.Suboptimal, present.StatusSuboptimal, false},
		{vk.ErrorOutOfDate, present.StatusOutOfDate, false},
		{vk.ErrorSurfaceLost, present.StatusSuccess, true},
		{vk.ErrorDeviceLost, present.StatusSuccess, true},
		{vk.Timeout, present.StatusSuccess, true},
	}
	for _, tt := range tests {
		t.Run(VulkanResultString(tt.result, false), func(t *testing.T) {
			status, err := chainStatus("vkQueuePresentKHR", tt.result)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "vkQueuePresentKHR")
				assert.Contains(t, err.Error(), VulkanResultString(tt.result, false))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestFixedString(t *testing.T) {
	var name [16]byte
	copy(name[:], "VK_KHR_swapchain")
	assert.Equal(t, "VK_KHR_swapchain", fixedString(name[:]))

	var padded [32]byte
	copy(padded[:], "VK_LAYER_X")
	assert.Equal(t, "VK_LAYER_X", fixedString(padded[:]))
	assert.Equal(t, 10, FindFirstZeroInByteArray(padded[:]))

	assert.Equal(t, "", fixedString(nil))
}

func TestVulkanSafeStrings(t *testing.T) {
	in := []string{"a", "b\x00"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, "a", in[0], "input is left untouched")
}

func TestNilFenceIsNilInterface(t *testing.T) {
	assert.Nil(t, presentFence(nil))
	assert.True(t, presentFence(nil) == nil)

	// A destroyed device has no transfer fence left.
	d := &VulkanDevice{}
	assert.True(t, d.TransferFence() == nil)
	d.DestroyFence(d.TransferFence())
}
