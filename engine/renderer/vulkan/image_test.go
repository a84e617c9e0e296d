package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMipLevelsFor(t *testing.T) {
	tests := []struct {
		width, height uint32
		want          uint32
	}{
		{1, 1, 1},
		{2, 2, 2},
		{2, 1, 2},
		{256, 256, 9},
		{256, 64, 9},
		{800, 600, 10},
		{1920, 1080, 11},
		{4096, 4096, 13},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, MipLevelsFor(test.width, test.height),
			"mip levels for %dx%d", test.width, test.height)
	}
}

func TestMipExtentHalvesAndClamps(t *testing.T) {
	width, height := MipExtent(800, 600, 0)
	assert.Equal(t, uint32(800), width)
	assert.Equal(t, uint32(600), height)

	width, height = MipExtent(800, 600, 1)
	assert.Equal(t, uint32(400), width)
	assert.Equal(t, uint32(300), height)

	// Non-square images clamp the short axis at 1 while the long one keeps halving.
	width, height = MipExtent(256, 4, 4)
	assert.Equal(t, uint32(16), width)
	assert.Equal(t, uint32(1), height)

	// The last level of the full chain is 1x1.
	last := MipLevelsFor(800, 600) - 1
	width, height = MipExtent(800, 600, last)
	assert.Equal(t, uint32(1), width)
	assert.Equal(t, uint32(1), height)
}

func TestMipChainCoversEveryLevel(t *testing.T) {
	const w, h = 1920, 1080
	levels := MipLevelsFor(w, h)
	for level := uint32(1); level < levels; level++ {
		prevW, prevH := MipExtent(w, h, level-1)
		curW, curH := MipExtent(w, h, level)
		assert.True(t, curW < prevW || prevW == 1, "width must shrink at level %d", level)
		assert.True(t, curH < prevH || prevH == 1, "height must shrink at level %d", level)
		assert.GreaterOrEqual(t, curW, uint32(1))
		assert.GreaterOrEqual(t, curH, uint32(1))
	}
}
