package renderer

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/vulkan"
)

// RendererBackend is a graphics API driving the presentation loop.
type RendererBackend interface {
	Initialize(cfg *core.Config) error
	Run() error
	RequestRecreate()
	Shutdown() error
}

type RendererType uint8

const (
	Vulkan RendererType = iota
	DirectX
	Metal
	OpenGL
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	case DirectX:
		return "directx"
	case Metal:
		return "metal"
	case OpenGL:
		return "opengl"
	default:
		return "unknown"
	}
}

// New returns the backend for kind presenting to window. Only Vulkan is
// implemented.
func New(kind RendererType, window vulkan.SurfaceWindow) (RendererBackend, error) {
	switch kind {
	case Vulkan:
		return vulkan.New(window), nil
	default:
		return nil, fmt.Errorf("renderer backend %s is not supported", kind)
	}
}
