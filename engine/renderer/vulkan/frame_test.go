package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotIndexForCyclesThroughSlots(t *testing.T) {
	assert.Equal(t, uint32(0), SlotIndexFor(0, 2))
	assert.Equal(t, uint32(1), SlotIndexFor(1, 2))
	assert.Equal(t, uint32(0), SlotIndexFor(2, 2))

	assert.Equal(t, uint32(2), SlotIndexFor(5, 3))
	assert.Equal(t, uint32(0), SlotIndexFor(6, 3))
}

// The counter advances even on frames that end with a stale present, so the
// slot index must stay well defined for any counter value.
func TestSlotIndexForLargeCounters(t *testing.T) {
	const slots = 3
	for counter := uint64(1<<40 - 2); counter < 1<<40+2; counter++ {
		index := SlotIndexFor(counter, slots)
		assert.Less(t, index, uint32(slots))
		assert.Equal(t, SlotIndexFor(counter+slots, slots), index)
	}
}
