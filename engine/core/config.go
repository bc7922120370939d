package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// FeatureMode says how a device feature is negotiated.
type FeatureMode string

const (
	// FeatureOff never requests the feature.
	FeatureOff FeatureMode = "off"
	// FeatureOptional requests the feature only when the device supports it.
	FeatureOptional FeatureMode = "optional"
	// FeatureRequired fails device negotiation when the feature is unsupported.
	FeatureRequired FeatureMode = "required"
)

const envPrefix = "PRISM_"

type WindowConfig struct {
	Name   string `toml:"name"`
	PosX   uint32 `toml:"pos_x"`
	PosY   uint32 `toml:"pos_y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type FeaturesConfig struct {
	SamplerAnisotropy FeatureMode `toml:"sampler_anisotropy"`
	SampleRateShading FeatureMode `toml:"sample_rate_shading"`
}

type RendererConfig struct {
	// Validation enables the Khronos validation layer and the debug report
	// callback when they are available.
	Validation               bool           `toml:"validation"`
	RequiredDeviceExtensions []string       `toml:"required_device_extensions"`
	Features                 FeaturesConfig `toml:"features"`
	ShaderDir                string         `toml:"shader_dir"`
	VertexShader             string         `toml:"vertex_shader"`
	FragmentShader           string         `toml:"fragment_shader"`
	WatchShaders             bool           `toml:"watch_shaders"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type MetricsConfig struct {
	// ReportInterval is the number of seconds between frame metric reports.
	// Zero disables reporting.
	ReportInterval float64 `toml:"report_interval"`
}

// Config is the complete application configuration.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Name:   "Prism",
			PosX:   100,
			PosY:   100,
			Width:  800,
			Height: 600,
		},
		Renderer: RendererConfig{
			Validation:               false,
			RequiredDeviceExtensions: []string{"VK_KHR_swapchain"},
			Features: FeaturesConfig{
				SamplerAnisotropy: FeatureOptional,
				SampleRateShading: FeatureOptional,
			},
			ShaderDir:      "shaders",
			VertexShader:   "vert.spv",
			FragmentShader: "frag.spv",
			WatchShaders:   true,
		},
		Log:     LogConfig{Level: "info"},
		Metrics: MetricsConfig{ReportInterval: 5},
	}
}

// LoadConfig builds the configuration from the defaults, the optional TOML
// file at path and finally the environment. A .env file next to the TOML file
// is loaded into the environment first when present. Variables already set in
// the process environment win over the .env file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			LogDebug("config file %s not found, using defaults", path)
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.ensureSwapchainExtension()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(envPrefix + "SHADER_DIR"); ok {
		c.Renderer.ShaderDir = v
	}
	if v, ok := lookup(envPrefix + "VALIDATION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sVALIDATION %q: %w", envPrefix, v, err)
		}
		c.Renderer.Validation = b
	}
	if v, ok := lookup(envPrefix + "WATCH_SHADERS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sWATCH_SHADERS %q: %w", envPrefix, v, err)
		}
		c.Renderer.WatchShaders = b
	}
	for name, dst := range map[string]*uint32{
		"WIDTH":  &c.Window.Width,
		"HEIGHT": &c.Window.Height,
	} {
		v, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", envPrefix, name, v, err)
		}
		*dst = uint32(n)
	}
	return nil
}

func (c *Config) ensureSwapchainExtension() {
	for _, ext := range c.Renderer.RequiredDeviceExtensions {
		if ext == "VK_KHR_swapchain" {
			return
		}
	}
	c.Renderer.RequiredDeviceExtensions = append(c.Renderer.RequiredDeviceExtensions, "VK_KHR_swapchain")
}

// Validate reports configuration values the engine cannot start with.
func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size must be non zero, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if strings.TrimSpace(c.Renderer.VertexShader) == "" || strings.TrimSpace(c.Renderer.FragmentShader) == "" {
		return errors.New("vertex and fragment shader paths are required")
	}
	for name, mode := range map[string]FeatureMode{
		"sampler_anisotropy":  c.Renderer.Features.SamplerAnisotropy,
		"sample_rate_shading": c.Renderer.Features.SampleRateShading,
	} {
		switch mode {
		case FeatureOff, FeatureOptional, FeatureRequired:
		default:
			return fmt.Errorf("feature %s: unknown mode %q", name, mode)
		}
	}
	if c.Metrics.ReportInterval < 0 {
		return fmt.Errorf("metrics report interval must not be negative")
	}
	return nil
}

// VertexShaderPath is the vertex shader binary path joined with the shader directory.
func (c *Config) VertexShaderPath() string {
	return filepath.Join(c.Renderer.ShaderDir, c.Renderer.VertexShader)
}

// FragmentShaderPath is the fragment shader binary path joined with the shader directory.
func (c *Config) FragmentShaderPath() string {
	return filepath.Join(c.Renderer.ShaderDir, c.Renderer.FragmentShader)
}
