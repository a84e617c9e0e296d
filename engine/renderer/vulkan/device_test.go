package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestFormatSupportsMipBlit(t *testing.T) {
	blitSrc := vk.FormatFeatureFlags(vk.FormatFeatureBlitSrcBit)
	blitDst := vk.FormatFeatureFlags(vk.FormatFeatureBlitDstBit)
	linear := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit)
	sampled := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit)

	assert.True(t, formatSupportsMipBlit(blitSrc|blitDst|linear))
	assert.True(t, formatSupportsMipBlit(blitSrc|blitDst|linear|sampled))

	// All three capabilities are required; any one missing disqualifies the
	// format for blit-generated mips.
	assert.False(t, formatSupportsMipBlit(blitDst|linear))
	assert.False(t, formatSupportsMipBlit(blitSrc|linear))
	assert.False(t, formatSupportsMipBlit(blitSrc|blitDst))
	assert.False(t, formatSupportsMipBlit(0))
	assert.False(t, formatSupportsMipBlit(sampled))
}
