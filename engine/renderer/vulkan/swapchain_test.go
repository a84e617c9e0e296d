package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSurfaceStateResize(t *testing.T) {
	assert.Equal(t, SurfaceStale, NextSurfaceState(SurfaceValid, SurfaceEventResized, 800, 600))
	assert.Equal(t, SurfaceStale, NextSurfaceState(SurfaceStale, SurfaceEventResized, 1024, 768))

	// A zero extent parks the surface regardless of the current state.
	assert.Equal(t, SurfaceZeroExtent, NextSurfaceState(SurfaceValid, SurfaceEventResized, 0, 600))
	assert.Equal(t, SurfaceZeroExtent, NextSurfaceState(SurfaceStale, SurfaceEventResized, 800, 0))
	assert.Equal(t, SurfaceZeroExtent, NextSurfaceState(SurfaceZeroExtent, SurfaceEventResized, 0, 0))
}

func TestNextSurfaceStateParkedLeavesOnlyViaResize(t *testing.T) {
	parked := NextSurfaceState(SurfaceValid, SurfaceEventResized, 0, 0)
	assert.Equal(t, SurfaceZeroExtent, parked)

	// Out-of-date reports while minimized must not trigger recreation.
	assert.Equal(t, SurfaceZeroExtent, NextSurfaceState(parked, SurfaceEventOutOfDate, 0, 0))

	restored := NextSurfaceState(parked, SurfaceEventResized, 800, 600)
	assert.Equal(t, SurfaceStale, restored)
}

func TestNextSurfaceStateOutOfDateAtZeroExtentParks(t *testing.T) {
	// Acquire/present can report out-of-date on the same pump that minimized
	// the window; going Stale would drive a recreation at 0x0, which the
	// swapchain rejects. The report must park instead.
	assert.Equal(t, SurfaceZeroExtent, NextSurfaceState(SurfaceValid, SurfaceEventOutOfDate, 0, 0))
	assert.Equal(t, SurfaceZeroExtent, NextSurfaceState(SurfaceStale, SurfaceEventOutOfDate, 800, 0))

	// And the window still resumes through the usual nonzero resize.
	parked := NextSurfaceState(SurfaceValid, SurfaceEventOutOfDate, 0, 600)
	assert.Equal(t, SurfaceStale, NextSurfaceState(parked, SurfaceEventResized, 800, 600))
}

func TestNextSurfaceStateOutOfDateAndRecreated(t *testing.T) {
	stale := NextSurfaceState(SurfaceValid, SurfaceEventOutOfDate, 800, 600)
	assert.Equal(t, SurfaceStale, stale)

	assert.Equal(t, SurfaceValid, NextSurfaceState(stale, SurfaceEventRecreated, 800, 600))
	assert.Equal(t, SurfaceValid, NextSurfaceState(SurfaceValid, SurfaceEventRecreated, 800, 600))
}

func TestClampU32(t *testing.T) {
	assert.Equal(t, uint32(5), clampU32(3, 5, 10))
	assert.Equal(t, uint32(10), clampU32(12, 5, 10))
	assert.Equal(t, uint32(7), clampU32(7, 5, 10))
}
