package main

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"clean run", nil, 0},
		{"closed while minimized", core.ErrWindowClosed, 0},
		{"closed during first build", fmt.Errorf("vulkan: %w", core.ErrWindowClosed), 0},
		{"capability", core.ErrNoSuitableDevice, 1},
		{"missing extension", fmt.Errorf("%w: instance extension VK_KHR_surface", core.ErrExtensionMissing), 1},
		{"other", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode("run", tt.err))
		})
	}
}

func TestWatchSignals(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	var calls atomic.Int32
	stop := watchSignals(sigCh, func() { calls.Add(1) })

	sigCh <- syscall.SIGINT
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	stop()
	stop()
	// Once stopped, signals no longer reach the callback.
	sigCh <- syscall.SIGTERM
	assert.Never(t, func() bool { return calls.Load() > 1 }, 100*time.Millisecond, 5*time.Millisecond)
}
