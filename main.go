/*
Prism opens a window and renders a fullscreen fragment shader through a
Vulkan presentation chain that is rebuilt whenever the window changes.
*/
package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		core.LogError(err.Error())
		return 1
	}
	core.SetLogLevel(cfg.Log.Level)

	e := engine.New(cfg)
	defer func() {
		if err := e.Shutdown(); err != nil {
			core.LogError("shutdown: %s", err)
		}
	}()

	if err := e.Initialize(); err != nil {
		return exitCode("initialize", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)
	// Stops before the deferred Shutdown. The platform must outlive the
	// signal goroutine.
	stopSignals := watchSignals(sigCh, func() {
		core.LogInfo("Signal received, closing window.")
		e.RequestClose()
	})
	defer stopSignals()

	return exitCode("run", e.Run())
}

// watchSignals calls onSignal for every signal received on sigCh until the
// returned stop function is called. stop returns once the goroutine exited.
func watchSignals(sigCh <-chan os.Signal, onSignal func()) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case _, ok := <-sigCh:
				if !ok {
					return
				}
				onSignal()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// exitCode maps the error of a stage to the process status. A close request
// is a clean shutdown, also when it arrives before the first frame.
func exitCode(stage string, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, core.ErrWindowClosed):
		core.LogInfo("Window closed during %s.", stage)
		return 0
	default:
		core.LogError("%s: %s", stage, err)
		return 1
	}
}
