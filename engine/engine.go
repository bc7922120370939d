package engine

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Engine owns the window, the renderer backend and the shader watcher. All
// methods except RequestClose belong to the main thread.
type Engine struct {
	currentStage Stage
	config       *core.Config
	events       *core.EventBus
	platform     *platform.Platform
	backend      renderer.RendererBackend
	watcher      *assets.ShaderWatcher
}

func New(cfg *core.Config) *Engine {
	events := core.NewEventBus()
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		events:       events,
		platform:     platform.New(events),
	}
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	w := e.config.Window
	if err := e.platform.Startup(w.Name, w.PosX, w.PosY, w.Width, w.Height); err != nil {
		return err
	}

	backend, err := renderer.New(renderer.Vulkan, e.platform)
	if err != nil {
		return err
	}
	if err := backend.Initialize(e.config); err != nil {
		return err
	}
	e.backend = backend

	if e.config.Renderer.WatchShaders {
		watcher, err := assets.NewShaderWatcher(e.events, func(string) {
			e.backend.RequestRecreate()
		})
		if err != nil {
			return fmt.Errorf("failed to create shader watcher: %w", err)
		}
		e.watcher = watcher
		if err := watcher.Watch(e.config.Renderer.ShaderDir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", e.config.Renderer.ShaderDir, err)
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives frames until the window closes.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	return e.backend.Run()
}

// RequestClose asks the loop to stop at the next iteration boundary. Safe
// from any goroutine.
func (e *Engine) RequestClose() {
	e.platform.RequestClose()
}

// Shutdown releases everything Initialize created, also after a partial
// Initialize.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	var errs []error
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
		e.watcher = nil
	}
	if e.backend != nil {
		if err := e.backend.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		e.backend = nil
	}
	e.events.Shutdown()
	if err := e.platform.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

func (e *Engine) onEvent(code core.SystemEventCode, sender, listener interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.platform.RequestClose()
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender, listener interface{}, context core.EventContext) bool {
	switch context.Data.I32[0] {
	case platform.KeyEscape:
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		// Block anything else from processing this.
		return true
	case platform.KeyR:
		if e.backend != nil {
			core.LogInfo("Rebuild requested from the keyboard.")
			e.backend.RequestRecreate()
		}
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender, listener interface{}, context core.EventContext) bool {
	width, height := context.Data.U32[0], context.Data.U32[1]
	core.LogDebug("Window resize: %d, %d", width, height)
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, waiting for it to be restored.")
		return false
	}
	// Some surfaces never report a stale chain after a resize.
	if e.backend != nil {
		e.backend.RequestRecreate()
	}
	return false
}
