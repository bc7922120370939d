package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Contains(t, cfg.Renderer.RequiredDeviceExtensions, "VK_KHR_swapchain")
	assert.Equal(t, filepath.Join("shaders", "vert.spv"), cfg.VertexShaderPath())
	assert.Equal(t, filepath.Join("shaders", "frag.spv"), cfg.FragmentShaderPath())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Window, cfg.Window)
}

func TestLoadConfigFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[window]
name = "demo"
width = 1024
height = 768

[renderer]
validation = true
required_device_extensions = ["VK_KHR_maintenance1"]
shader_dir = "assets/shaders"

[renderer.features]
sampler_anisotropy = "required"
sample_rate_shading = "off"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Window.Name)
	assert.Equal(t, uint32(1024), cfg.Window.Width)
	assert.Equal(t, uint32(768), cfg.Window.Height)
	assert.True(t, cfg.Renderer.Validation)
	assert.Equal(t, []string{"VK_KHR_maintenance1", "VK_KHR_swapchain"}, cfg.Renderer.RequiredDeviceExtensions)
	assert.Equal(t, FeatureRequired, cfg.Renderer.Features.SamplerAnisotropy)
	assert.Equal(t, FeatureOff, cfg.Renderer.Features.SampleRateShading)
	assert.Equal(t, filepath.Join("assets/shaders", "frag.spv"), cfg.FragmentShaderPath())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("PRISM_WIDTH", "320")
	t.Setenv("PRISM_VALIDATION", "true")
	t.Setenv("PRISM_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, uint32(320), cfg.Window.Width)
	assert.True(t, cfg.Renderer.Validation)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PRISM_HEIGHT=200\n"), 0o644))
	// godotenv never overwrites variables that already exist.
	prev, had := os.LookupEnv("PRISM_HEIGHT")
	require.NoError(t, os.Unsetenv("PRISM_HEIGHT"))
	t.Cleanup(func() {
		if had {
			os.Setenv("PRISM_HEIGHT", prev)
		} else {
			os.Unsetenv("PRISM_HEIGHT")
		}
	})

	cfg, err := LoadConfig(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, uint32(200), cfg.Window.Height)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Run("bad env bool", func(t *testing.T) {
		t.Setenv("PRISM_VALIDATION", "maybe")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
		assert.Error(t, err)
	})
	t.Run("zero width", func(t *testing.T) {
		t.Setenv("PRISM_WIDTH", "0")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
		assert.Error(t, err)
	})
	t.Run("unknown feature mode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Renderer.Features.SampleRateShading = "sometimes"
		assert.Error(t, cfg.Validate())
	})
	t.Run("malformed toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[window\nwidth = "), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
