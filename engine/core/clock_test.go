package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockElapsedGrows(t *testing.T) {
	clock := NewClock()
	clock.Start()

	time.Sleep(10 * time.Millisecond)
	clock.Update()

	elapsed := clock.Elapsed()
	assert.Greater(t, elapsed, 0.0)
	assert.Less(t, elapsed, 5.0)
}

func TestClockUpdateBeforeStartIsNoop(t *testing.T) {
	clock := NewClock()
	clock.Update()
	assert.Zero(t, clock.Elapsed())
}

func TestClockStopFreezesElapsed(t *testing.T) {
	clock := NewClock()
	clock.Start()
	time.Sleep(time.Millisecond)
	clock.Update()
	clock.Stop()

	frozen := clock.Elapsed()
	time.Sleep(time.Millisecond)
	clock.Update()
	assert.Equal(t, frozen, clock.Elapsed())
}
