package present

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

const (
	scoreDiscrete   = 100
	scoreIntegrated = 10
	scoreStageBonus = 1
)

// FeaturePolicy decides which device features are requested.
type FeaturePolicy struct {
	SamplerAnisotropy core.FeatureMode
	SampleRateShading core.FeatureMode
}

// NegotiateConfig is the input of Negotiate.
type NegotiateConfig struct {
	RequiredExtensions []string
	Features           FeaturePolicy
}

// DeviceHandle is the logical device selected at start-up. It outlives
// every presentation chain.
type DeviceHandle struct {
	Device      Device
	Candidate   PhysicalDeviceCandidate
	QueueFamily QueueFamilyCapabilities
	// Enabled holds the features actually requested at device creation.
	Enabled DeviceFeatures
}

// Destroy releases the logical device with its pool, queues and transfer
// fence. Calling it twice is a no-op.
func (h *DeviceHandle) Destroy() {
	if h == nil || h.Device == nil {
		return
	}
	h.Device.Destroy()
	h.Device = nil
}

// ScoreDevice ranks a candidate: discrete beats integrated beats anything
// else, and geometry and tessellation support each add a small bonus.
func ScoreDevice(c PhysicalDeviceCandidate) int {
	score := 0
	switch c.Class {
	case DeviceClassDiscrete:
		score += scoreDiscrete
	case DeviceClassIntegrated:
		score += scoreIntegrated
	}
	if c.Features.GeometryShader {
		score += scoreStageBonus
	}
	if c.Features.TessellationShader {
		score += scoreStageBonus
	}
	return score
}

// SelectDevice drops candidates missing a required extension and returns
// the highest scoring one. Ties keep the first candidate encountered.
func SelectDevice(candidates []PhysicalDeviceCandidate, requiredExtensions []string) (PhysicalDeviceCandidate, error) {
	best := -1
	bestScore := 0
	for i, c := range candidates {
		if missing := missingExtension(c, requiredExtensions); missing != "" {
			core.LogWarn("Required device extension '%s' not found on '%s', skipping device.", missing, c.Name)
			continue
		}
		score := ScoreDevice(c)
		core.LogDebug("device: %s score: %d", c.Name, score)
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return PhysicalDeviceCandidate{}, fmt.Errorf("%w: %d candidate(s) enumerated", core.ErrNoSuitableDevice, len(candidates))
	}
	return candidates[best], nil
}

func missingExtension(c PhysicalDeviceCandidate, required []string) string {
	for _, name := range required {
		if !c.HasExtension(name) {
			return name
		}
	}
	return ""
}

// SelectQueueFamily returns the first family that supports both graphics
// and presentation to the surface. Separate graphics and present families
// are not supported.
func SelectQueueFamily(families []QueueFamilyCapabilities) (QueueFamilyCapabilities, error) {
	for _, f := range families {
		if f.Graphics && f.Present {
			return f, nil
		}
	}
	return QueueFamilyCapabilities{}, core.ErrNoSuitableQueue
}

// ResolveFeatures turns the policy into the feature set to request from the
// candidate. Optional features the device lacks are dropped with a warning;
// required ones fail with ErrFeatureMissing.
func ResolveFeatures(c PhysicalDeviceCandidate, policy FeaturePolicy) (DeviceFeatures, error) {
	var enabled DeviceFeatures
	gate := func(name string, mode core.FeatureMode, supported bool, dst *bool) error {
		switch mode {
		case core.FeatureRequired:
			if !supported {
				return fmt.Errorf("%w: %s on '%s'", core.ErrFeatureMissing, name, c.Name)
			}
			*dst = true
		case core.FeatureOptional:
			if !supported {
				core.LogWarn("Device '%s' does not support %s, leaving it disabled.", c.Name, name)
				return nil
			}
			*dst = true
		}
		return nil
	}
	if err := gate("samplerAnisotropy", policy.SamplerAnisotropy, c.Features.SamplerAnisotropy, &enabled.SamplerAnisotropy); err != nil {
		return DeviceFeatures{}, err
	}
	if err := gate("sampleRateShading", policy.SampleRateShading, c.Features.SampleRateShading, &enabled.SampleRateShading); err != nil {
		return DeviceFeatures{}, err
	}
	return enabled, nil
}

// Negotiate selects a GPU and queue family for surface and creates the
// logical device on them.
func Negotiate(instance Instance, surface Surface, cfg NegotiateConfig) (*DeviceHandle, error) {
	candidates, err := instance.PhysicalDevices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNoSuitableDevice, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrNoSuitableDevice)
	}

	candidate, err := SelectDevice(candidates, cfg.RequiredExtensions)
	if err != nil {
		return nil, err
	}
	core.LogInfo("Selected device: '%s'.", candidate.Name)
	core.LogInfo("GPU type is %s.", candidate.Class)
	core.LogInfo("GPU Driver version: %d.%d.%d", candidate.DriverVersion>>22, (candidate.DriverVersion>>12)&0x3ff, candidate.DriverVersion&0xfff)
	core.LogInfo("Vulkan API version: %d.%d.%d", candidate.APIVersion>>22, (candidate.APIVersion>>12)&0x3ff, candidate.APIVersion&0xfff)
	if candidate.Features.GeometryShader {
		core.LogDebug("geometry shader supported")
	}
	if candidate.Features.TessellationShader {
		core.LogDebug("tessellation shader supported")
	}

	families, err := instance.QueueFamilies(candidate.Handle, surface)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNoSuitableQueue, err)
	}
	core.LogDebug("Index | Graphics | Present | Compute | Transfer")
	for _, f := range families {
		core.LogDebug("%5d | %8t | %7t | %7t | %8t", f.Index, f.Graphics, f.Present, f.Compute, f.Transfer)
	}
	family, err := SelectQueueFamily(families)
	if err != nil {
		return nil, err
	}

	features, err := ResolveFeatures(candidate, cfg.Features)
	if err != nil {
		return nil, err
	}

	device, err := instance.CreateDevice(DeviceRequest{
		PhysicalDevice: candidate.Handle,
		QueueFamily:    family.Index,
		Extensions:     cfg.RequiredExtensions,
		Features:       features,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: logical device creation: %v", core.ErrCapability, err)
	}
	core.LogInfo("Logical device created on queue family %d.", family.Index)

	return &DeviceHandle{
		Device:      device,
		Candidate:   candidate,
		QueueFamily: family,
		Enabled:     features,
	}, nil
}
