package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineAssetType(t *testing.T) {
	tests := []struct {
		path string
		want AssetType
	}{
		{"shaders/frag.spv", AssetTypeShaderBinary},
		{"shaders/shader.vert", AssetTypeShaderSource},
		{"shaders/shader.frag", AssetTypeShaderSource},
		{"shaders/common.glsl", AssetTypeShaderSource},
		{"shaders/readme.md", AssetTypeNone},
		{"shaders/noext", AssetTypeNone},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, determineAssetType(tt.path))
		})
	}
}

func TestShaderWatcherIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vert.spv"), []byte{1}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shader.vert"), []byte("#version 450"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	sw, err := NewShaderWatcher(nil, nil)
	require.NoError(t, err)
	defer sw.Close()
	require.NoError(t, sw.Watch(dir))

	got := sw.Assets()
	require.Len(t, got, 2)
	assert.Equal(t, filepath.Join(dir, "shader.vert"), got[0].Path)
	assert.Equal(t, AssetTypeShaderSource, got[0].Type)
	assert.Equal(t, filepath.Join(dir, "vert.spv"), got[1].Path)
	assert.Equal(t, AssetTypeShaderBinary, got[1].Type)
}

func TestShaderWatcherReportsBinaryWrites(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 16)
	bus := core.NewEventBus()
	fired := make(chan string, 16)
	bus.Register(core.EVENT_CODE_SHADER_CHANGED, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		fired <- data.Data.S
		return false
	})

	sw, err := NewShaderWatcher(bus, func(path string) { changed <- path })
	require.NoError(t, err)
	defer sw.Close()
	require.NoError(t, sw.Watch(dir))

	// Sources are indexed but never trigger a rebuild.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shader.frag"), []byte("#version 450"), 0o644))
	target := filepath.Join(dir, "frag.spv")
	require.NoError(t, os.WriteFile(target, []byte{0x03, 0x02, 0x23, 0x07}, 0o644))

	select {
	case path := <-changed:
		assert.Equal(t, target, path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for the SPIR-V write")
	}
	select {
	case path := <-fired:
		assert.Equal(t, target, path)
	case <-time.After(5 * time.Second):
		t.Fatal("no shader changed event fired")
	}
}

func TestShaderWatcherCoalescesWriteBursts(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 16)

	sw, err := NewShaderWatcher(nil, func(path string) { changed <- path })
	require.NoError(t, err)
	sw.settle = 200 * time.Millisecond
	defer sw.Close()
	require.NoError(t, sw.Watch(dir))

	// A non-atomic writer produces several events for one shader.
	target := filepath.Join(dir, "vert.spv")
	f, err := os.Create(target)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := f.Write([]byte{0x03, 0x02, 0x23, 0x07})
		require.NoError(t, err)
		require.NoError(t, f.Sync())
	}
	require.NoError(t, f.Close())

	select {
	case path := <-changed:
		assert.Equal(t, target, path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for the SPIR-V writes")
	}
	assert.Never(t, func() bool { return len(changed) > 0 }, 600*time.Millisecond, 20*time.Millisecond)
}

func TestShaderWatcherDropsRemovedPendingFiles(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 16)

	sw, err := NewShaderWatcher(nil, func(path string) { changed <- path })
	require.NoError(t, err)
	sw.settle = 300 * time.Millisecond
	defer sw.Close()
	require.NoError(t, sw.Watch(dir))

	target := filepath.Join(dir, "frag.spv")
	require.NoError(t, os.WriteFile(target, []byte{1}, 0o644))
	require.NoError(t, os.Remove(target))

	assert.Never(t, func() bool { return len(changed) > 0 }, time.Second, 20*time.Millisecond)
}

func TestShaderWatcherForgetsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "vert.spv")
	require.NoError(t, os.WriteFile(target, []byte{1}, 0o644))

	sw, err := NewShaderWatcher(nil, nil)
	require.NoError(t, err)
	defer sw.Close()
	require.NoError(t, sw.Watch(dir))
	require.Len(t, sw.Assets(), 1)

	require.NoError(t, os.Remove(target))
	assert.Eventually(t, func() bool { return len(sw.Assets()) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestShaderWatcherClose(t *testing.T) {
	sw, err := NewShaderWatcher(nil, nil)
	require.NoError(t, err)
	require.NoError(t, sw.Watch(t.TempDir()))
	require.NoError(t, sw.Close())
	require.NoError(t, sw.Close())
	assert.Error(t, sw.Watch(t.TempDir()))
}
