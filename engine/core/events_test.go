package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Codes above 255 are reserved for applications; tests use them to stay out
// of the engine's range on the shared event system.
const testEventCode SystemEventCode = 0x101

func TestEventFireReachesListeners(t *testing.T) {
	defer EventUnregisterAll(testEventCode)

	var got []uint32
	EventRegister(testEventCode, func(code SystemEventCode, context EventContext) {
		assert.Equal(t, testEventCode, code)
		got = append(got, context.Data.U32[0])
	})
	EventRegister(testEventCode, func(code SystemEventCode, context EventContext) {
		got = append(got, context.Data.U32[0]+100)
	})

	var context EventContext
	context.Data.U32[0] = 7
	EventFire(testEventCode, context)

	assert.Equal(t, []uint32{7, 107}, got)
}

func TestEventFireWithoutListeners(t *testing.T) {
	EventFire(testEventCode+1, EventContext{})
}

func TestEventUnregisterAllStopsDelivery(t *testing.T) {
	fired := false
	EventRegister(testEventCode, func(SystemEventCode, EventContext) {
		fired = true
	})
	EventUnregisterAll(testEventCode)

	EventFire(testEventCode, EventContext{})
	assert.False(t, fired)
}

func TestEventRegisterDuringFire(t *testing.T) {
	defer EventUnregisterAll(testEventCode)

	count := 0
	EventRegister(testEventCode, func(SystemEventCode, EventContext) {
		count++
		// Registering from inside a callback must not deadlock or affect the
		// in-flight dispatch.
		EventRegister(testEventCode, func(SystemEventCode, EventContext) {
			count += 10
		})
	})

	EventFire(testEventCode, EventContext{})
	assert.Equal(t, 1, count)

	EventUnregisterAll(testEventCode)
}
