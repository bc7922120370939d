package assets

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/core"
)

// defaultSettleDelay is how long a shader binary must stay quiet before a
// change is reported.
const defaultSettleDelay = 150 * time.Millisecond

type AssetType uint8

const (
	AssetTypeNone AssetType = iota
	// AssetTypeShaderBinary is compiled SPIR-V, loaded by the pipeline.
	AssetTypeShaderBinary
	// AssetTypeShaderSource is GLSL, compiled offline.
	AssetTypeShaderSource
)

type AssetInfo struct {
	Path        string
	Type        AssetType
	LastChanged time.Time
}

// ShaderWatcher keeps an index of the shader files under a directory and
// reports creates and writes of compiled shaders once they settle. A burst
// of writes to the same file is reported once.
type ShaderWatcher struct {
	assets map[string]AssetInfo
	mutex  sync.RWMutex
	settle time.Duration

	events   *core.EventBus
	onChange func(path string)

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
}

// NewShaderWatcher creates a watcher. onChange runs on the watcher
// goroutine and must not block. events may be nil.
func NewShaderWatcher(events *core.EventBus, onChange func(path string)) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ShaderWatcher{
		assets:   make(map[string]AssetInfo),
		settle:   defaultSettleDelay,
		events:   events,
		onChange: onChange,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

// Watch indexes dir and its sub-directories and starts reporting changes.
func (sw *ShaderWatcher) Watch(dir string) error {
	if sw.isClosed {
		return errors.New("shader watcher already closed")
	}
	if err := sw.watchRecursive(dir); err != nil {
		return err
	}
	sw.wg.Add(1)
	go sw.start()
	core.LogInfo("Watching shaders in %s.", dir)
	return nil
}

// Close stops the watcher. Calling it twice is a no-op.
func (sw *ShaderWatcher) Close() error {
	if sw.isClosed {
		return nil
	}
	sw.isClosed = true
	close(sw.done)
	sw.wg.Wait()
	return sw.fsnotify.Close()
}

// Assets lists the indexed shader files sorted by path.
func (sw *ShaderWatcher) Assets() []AssetInfo {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()

	out := make([]AssetInfo, 0, len(sw.assets))
	for _, a := range sw.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (sw *ShaderWatcher) start() {
	defer sw.wg.Done()

	pending := make(map[string]struct{})
	settled := time.NewTimer(sw.settle)
	settled.Stop()
	defer settled.Stop()

	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			if sw.handleEvent(e, pending) {
				settled.Reset(sw.settle)
			}

		case <-settled.C:
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			clear(pending)
			slices.Sort(paths)
			for _, path := range paths {
				sw.notify(path)
			}

		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err)

		case <-sw.done:
			return
		}
	}
}

// handleEvent updates the index and the set of binaries waiting to settle.
// It reports whether e changed a binary.
func (sw *ShaderWatcher) handleEvent(e fsnotify.Event, pending map[string]struct{}) bool {
	if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := sw.watchRecursive(e.Name); err != nil {
				core.LogWarn("shader watcher: %s", err)
			}
		}
		return false
	}

	switch {
	case e.Has(fsnotify.Create) || e.Has(fsnotify.Write):
		if sw.indexFile(e.Name) == AssetTypeShaderBinary {
			pending[e.Name] = struct{}{}
			return true
		}
	case e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename):
		sw.removeAsset(e.Name)
		delete(pending, e.Name)
	}
	return false
}

func (sw *ShaderWatcher) notify(path string) {
	core.LogInfo("Shader changed: %s", path)
	if sw.events != nil {
		var ctx core.EventContext
		ctx.Data.S = path
		sw.events.Fire(core.EVENT_CODE_SHADER_CHANGED, sw, ctx)
	}
	if sw.onChange != nil {
		sw.onChange(path)
	}
}

// watchRecursive adds every directory under path to the watch list and
// indexes the files already there.
func (sw *ShaderWatcher) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return sw.fsnotify.Add(walkPath)
		}
		sw.indexFile(walkPath)
		return nil
	})
}

func (sw *ShaderWatcher) indexFile(path string) AssetType {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return assetType
	}

	sw.mutex.Lock()
	defer sw.mutex.Unlock()
	sw.assets[path] = AssetInfo{
		Path:        path,
		Type:        assetType,
		LastChanged: time.Now(),
	}
	return assetType
}

func (sw *ShaderWatcher) removeAsset(path string) {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	delete(sw.assets, path)
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".spv":
		return AssetTypeShaderBinary
	case ".vert", ".frag", ".glsl":
		return AssetTypeShaderSource
	default:
		return AssetTypeNone
	}
}
