package core

import "sync"

// EventContext carries the payload of a fired event.
type EventContext struct {
	Data struct {
		I32 [4]int32
		U32 [4]uint32
		F64 [2]float64
		S   string
	}
}

type SystemEventCode int

const (
	// Closes the window at the next loop boundary.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = iota + 1

	// Keyboard key pressed.
	/* Context usage:
	 * key := data.Data.I32[0]
	 */
	EVENT_CODE_KEY_PRESSED

	// Framebuffer resized by the OS.
	/* Context usage:
	 * width := data.Data.U32[0]
	 * height := data.Data.U32[1]
	 */
	EVENT_CODE_RESIZED

	// A shader binary changed on disk.
	/* Context usage:
	 * path := data.Data.S
	 */
	EVENT_CODE_SHADER_CHANGED

	MAX_EVENT_CODE
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events to listeners in registration order. It is safe
// for concurrent use.
type EventBus struct {
	mu         sync.RWMutex
	registered [MAX_EVENT_CODE][]registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Register adds a listener for code. A listener may register only once per
// code.
func (b *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if code <= 0 || code >= MAX_EVENT_CODE || onEvent == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], registeredEvent{listener: listener, callback: onEvent})
	return true
}

// Unregister removes the listener for code.
func (b *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	if code <= 0 || code >= MAX_EVENT_CODE {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire passes the event to listeners until one handles it.
func (b *EventBus) Fire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if code <= 0 || code >= MAX_EVENT_CODE {
		return false
	}
	b.mu.RLock()
	events := append([]registeredEvent(nil), b.registered[code]...)
	b.mu.RUnlock()
	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}

// Shutdown drops every listener.
func (b *EventBus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.registered {
		b.registered[i] = nil
	}
}
