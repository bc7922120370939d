package vulkan

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirvWords(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

func TestDecodeSPIRV(t *testing.T) {
	code, err := DecodeSPIRV(spirvWords(spirvMagic, 0x00010000, 42))
	require.NoError(t, err)
	assert.Equal(t, []uint32{spirvMagic, 0x00010000, 42}, code)
}

func TestDecodeSPIRVRejectsBadInput(t *testing.T) {
	tests := map[string][]byte{
		"empty":     nil,
		"unaligned": append(spirvWords(spirvMagic), 0x01),
		"bad magic": spirvWords(0xdeadbeef, 1),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSPIRV(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrShaderLoad))
			assert.True(t, errors.Is(err, core.ErrBuild))
		})
	}
}

func TestNewShaderStageMissingFile(t *testing.T) {
	_, err := NewShaderStage(&VulkanDevice{}, filepath.Join(t.TempDir(), "missing.spv"), vk.ShaderStageVertexBit)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrShaderLoad))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewShaderStageInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frag.spv")
	require.NoError(t, os.WriteFile(path, []byte("not spirv"), 0o644))

	_, err := NewShaderStage(&VulkanDevice{}, path, vk.ShaderStageFragmentBit)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrShaderLoad))
	assert.Contains(t, err.Error(), path)
}
