package present

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
)

func TestRecreateTearsDownInOrder(t *testing.T) {
	r, dev, _, err := newTestRenderer(defaultSupport(), fixedWindow(800, 600))
	require.NoError(t, err)
	oldID := r.Chain().ID

	dev.calls = nil
	require.NoError(t, r.Recreate())

	idle := indexOf(dev.calls, "wait-idle", 0)
	depsDown := indexOf(dev.calls, "dependents-destroy", 0)
	chainDown := indexOf(dev.calls, "destroy:", 0)
	chainUp := indexOf(dev.calls, "create:swapchain", 0)
	depsUp := indexOf(dev.calls, "dependents-build", 0)

	assert.Equal(t, 0, idle)
	assert.Less(t, idle, depsDown)
	assert.Less(t, depsDown, chainDown)
	assert.Less(t, chainDown, chainUp)
	assert.Less(t, chainUp, depsUp)
	assert.NotEqual(t, oldID, r.Chain().ID)
	assert.Equal(t, 3, dev.liveCount("fence"))
}

func TestRecreateFollowsWindowSize(t *testing.T) {
	w := fixedWindow(800, 600)
	r, _, deps, err := newTestRenderer(defaultSupport(), w)
	require.NoError(t, err)

	w.sizes = []size{{1024, 768}}
	require.NoError(t, r.Recreate())
	assert.Equal(t, Extent2D{Width: 1024, Height: 768}, r.Chain().Extent())
	assert.Equal(t, r.Chain().Extent(), deps.extent)
}

func TestRecreateKeepsDevice(t *testing.T) {
	r, dev, _, err := newTestRenderer(defaultSupport(), fixedWindow(800, 600))
	require.NoError(t, err)

	pool := dev.CommandPool()
	require.NoError(t, r.Recreate())
	require.NoError(t, r.Shutdown())
	assert.False(t, dev.destroyed)
	assert.Same(t, pool, dev.CommandPool())
}

func TestRecreateDependentFailureLeavesNothing(t *testing.T) {
	r, dev, deps, err := newTestRenderer(defaultSupport(), fixedWindow(800, 600))
	require.NoError(t, err)

	deps.buildErr = errors.New("pipeline rejected")
	r.RequestRecreate()
	err = r.Frame()
	assert.ErrorIs(t, err, core.ErrDependentCreation)
	assert.ErrorIs(t, err, core.ErrBuild)

	assert.Nil(t, r.Chain())
	assert.False(t, deps.built)
	assert.Empty(t, dev.live)
}

func TestRecreateChainFailureLeavesNothing(t *testing.T) {
	r, dev, deps, err := newTestRenderer(defaultSupport(), fixedWindow(800, 600))
	require.NoError(t, err)

	dev.failOn["fence"] = dev.created["fence"] + 2
	err = r.Recreate()
	assert.ErrorIs(t, err, core.ErrSyncObjectCreation)
	assert.Nil(t, r.Chain())
	assert.False(t, deps.built)
	assert.Empty(t, dev.live)
}

func TestStartFailsOnEmptySurface(t *testing.T) {
	support := defaultSupport()
	support.PresentModes = nil
	_, dev, _, err := newTestRenderer(support, fixedWindow(800, 600))
	assert.ErrorIs(t, err, core.ErrSurfaceQuery)
	assert.Empty(t, dev.live)
}

func TestStartClosedWhileMinimized(t *testing.T) {
	w := &fakeWindow{sizes: []size{{0, 0}}, closeAfter: 0}
	r, dev, deps, err := newTestRenderer(defaultSupport(), w)
	assert.ErrorIs(t, err, core.ErrWindowClosed)
	assert.Nil(t, r.Chain())
	assert.Empty(t, dev.live)
	assert.False(t, deps.built)
	assert.NoError(t, r.Shutdown())
}

func TestShutdown(t *testing.T) {
	r, dev, deps, err := newTestRenderer(defaultSupport(), fixedWindow(800, 600))
	require.NoError(t, err)
	require.NoError(t, r.Frame())

	require.NoError(t, r.Shutdown())
	assert.Empty(t, dev.live)
	assert.False(t, deps.built)
	assert.Nil(t, r.Chain())
	assert.Equal(t, uint32(0), r.Cursor())

	require.NoError(t, r.Shutdown())
}
