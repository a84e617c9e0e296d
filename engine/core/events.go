package core

import "sync"

// EventContext carries a small amount of event payload data. Which fields are
// meaningful depends on the event code.
type EventContext struct {
	Data struct {
		U64 [2]uint64
		F64 [2]float64
		U32 [4]uint32
		F32 [4]float32
		U16 [8]uint16
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// A window framebuffer was resized.
	/* Context usage:
	 * u32 window_id = data.data.u32[0];
	 * u32 width     = data.data.u32[1];
	 * u32 height    = data.data.u32[2];
	 */
	EVENT_CODE_WINDOW_RESIZED SystemEventCode = 0x02

	// A window requested to close.
	/* Context usage:
	 * u32 window_id = data.data.u32[0];
	 */
	EVENT_CODE_WINDOW_CLOSED SystemEventCode = 0x03

	// A window asked to be redrawn outside the regular loop (e.g. expose).
	/* Context usage:
	 * u32 window_id = data.data.u32[0];
	 */
	EVENT_CODE_WINDOW_REDRAW SystemEventCode = 0x04

	// An asset on disk changed and its GPU resource should be reloaded.
	/* Context usage:
	 * path is delivered out of band via the asset manager queue.
	 */
	EVENT_CODE_ASSET_CHANGED SystemEventCode = 0x05

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventCallback func(code SystemEventCode, context EventContext)

type eventSystem struct {
	mutex     sync.RWMutex
	listeners map[SystemEventCode][]EventCallback
}

var events = &eventSystem{
	listeners: make(map[SystemEventCode][]EventCallback),
}

// EventRegister subscribes the callback to the given code. Callbacks fire on
// the thread that calls EventFire, which for window events is the main thread.
func EventRegister(code SystemEventCode, callback EventCallback) {
	events.mutex.Lock()
	defer events.mutex.Unlock()
	events.listeners[code] = append(events.listeners[code], callback)
}

// EventUnregisterAll drops every listener for the code.
func EventUnregisterAll(code SystemEventCode) {
	events.mutex.Lock()
	defer events.mutex.Unlock()
	delete(events.listeners, code)
}

func EventFire(code SystemEventCode, context EventContext) {
	events.mutex.RLock()
	callbacks := make([]EventCallback, len(events.listeners[code]))
	copy(callbacks, events.listeners[code])
	events.mutex.RUnlock()

	for _, cb := range callbacks {
		cb(code, context)
	}
}
