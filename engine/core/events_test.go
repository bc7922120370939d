package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusDispatch(t *testing.T) {
	bus := NewEventBus()
	var got []string

	first := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		got = append(got, "first")
		return data.Data.U32[0] == 0
	}
	second := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		got = append(got, "second")
		return true
	}
	assert.True(t, bus.Register(EVENT_CODE_RESIZED, "a", first))
	assert.True(t, bus.Register(EVENT_CODE_RESIZED, "b", second))
	assert.False(t, bus.Register(EVENT_CODE_RESIZED, "a", second), "duplicate listener")

	var ctx EventContext
	ctx.Data.U32[0] = 800
	assert.True(t, bus.Fire(EVENT_CODE_RESIZED, nil, ctx))
	assert.Equal(t, []string{"first", "second"}, got)

	got = nil
	assert.True(t, bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{}))
	assert.Equal(t, []string{"first"}, got, "handled events stop propagating")

	assert.False(t, bus.Fire(EVENT_CODE_KEY_PRESSED, nil, EventContext{}))
}

func TestEventBusUnregister(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	cb := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		calls++
		return false
	}
	bus.Register(EVENT_CODE_APPLICATION_QUIT, "x", cb)
	bus.Register(EVENT_CODE_APPLICATION_QUIT, "y", cb)

	assert.True(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, "x"))
	assert.False(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, "x"))
	bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{})
	assert.Equal(t, 1, calls)

	bus.Shutdown()
	bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{})
	assert.Equal(t, 1, calls)
	assert.False(t, bus.Register(MAX_EVENT_CODE, "z", cb))
}
