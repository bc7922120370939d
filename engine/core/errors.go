package core

import (
	"errors"
	"fmt"
)

// Capability failures abort start-up before any frame is produced.
var (
	ErrCapability       = errors.New("capability error")
	ErrNoSuitableDevice = fmt.Errorf("%w: no suitable physical device", ErrCapability)
	ErrNoSuitableQueue  = fmt.Errorf("%w: no queue family supports both graphics and present", ErrCapability)
	ErrExtensionMissing = errors.New("required extension missing")
	ErrFeatureMissing   = errors.New("required device feature missing")
	ErrLayerMissing     = errors.New("layer missing")
)

// Build failures happen while a presentation chain or its dependents are
// (re)created. Presentation is unusable afterwards.
var (
	ErrBuild              = errors.New("build error")
	ErrSurfaceQuery       = fmt.Errorf("%w: surface query failed", ErrBuild)
	ErrChainCreation      = fmt.Errorf("%w: swapchain creation failed", ErrBuild)
	ErrViewCreation       = fmt.Errorf("%w: image view creation failed", ErrBuild)
	ErrSyncObjectCreation = fmt.Errorf("%w: sync object creation failed", ErrBuild)
	ErrDependentCreation  = fmt.Errorf("%w: dependent resource creation failed", ErrBuild)
	ErrShaderLoad         = fmt.Errorf("%w: shader load failed", ErrBuild)
)

// Loop failures are unexpected driver results during the frame loop.
var (
	ErrFrame     = errors.New("frame error")
	ErrAcquire   = fmt.Errorf("%w: acquire next image failed", ErrFrame)
	ErrSubmit    = fmt.Errorf("%w: queue submit failed", ErrFrame)
	ErrPresent   = fmt.Errorf("%w: queue present failed", ErrFrame)
	ErrFenceWait = fmt.Errorf("%w: fence wait failed", ErrFrame)
)

// ErrWindowClosed is returned when a close request arrives while the loop is
// blocked waiting for a drawable window. It is a clean shutdown, not a failure.
var ErrWindowClosed = errors.New("window closed")
