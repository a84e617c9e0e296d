package vulkan

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickStagingIndexSmallestFit(t *testing.T) {
	sizes := []uint64{1024, 64, 256}
	free := []bool{true, true, true}

	// The smallest buffer that still fits wins, not the first.
	assert.Equal(t, 2, pickStagingIndex(sizes, free, 100))
	assert.Equal(t, 1, pickStagingIndex(sizes, free, 64))
	assert.Equal(t, 0, pickStagingIndex(sizes, free, 512))
}

func TestPickStagingIndexSkipsBusySlots(t *testing.T) {
	sizes := []uint64{256, 256}
	assert.Equal(t, 1, pickStagingIndex(sizes, []bool{false, true}, 100))
	assert.Equal(t, -1, pickStagingIndex(sizes, []bool{false, false}, 100))
}

func TestPickStagingIndexNoFit(t *testing.T) {
	assert.Equal(t, -1, pickStagingIndex([]uint64{64, 128}, []bool{true, true}, 1024))
	assert.Equal(t, -1, pickStagingIndex(nil, nil, 1))
}

func TestUploadRetryableOnlyForDeviceMemory(t *testing.T) {
	assert.True(t, uploadRetryable(ErrOutOfDeviceMemory))
	assert.True(t, uploadRetryable(fmt.Errorf("texture upload: %w", ErrOutOfDeviceMemory)))

	assert.False(t, uploadRetryable(nil))
	assert.False(t, uploadRetryable(ErrDeviceLost))
	assert.False(t, uploadRetryable(fmt.Errorf("no suitable memory type for buffer")))
}
