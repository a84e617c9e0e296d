package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3NormalizedUnitLength(t *testing.T) {
	normalized := NewVec3(3, 4, 0).Normalized()
	assert.InDelta(t, 1, normalized.Length(), epsilon)
	assert.InDelta(t, 0.6, normalized.X, epsilon)
	assert.InDelta(t, 0.8, normalized.Y, epsilon)
}

func TestVec3NormalizedZeroStaysZero(t *testing.T) {
	assert.Equal(t, NewVec3Zero(), NewVec3Zero().Normalized())
}

func TestVec3CrossRightHanded(t *testing.T) {
	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)
	z := x.Cross(y)

	assert.InDelta(t, 0, z.X, epsilon)
	assert.InDelta(t, 0, z.Y, epsilon)
	assert.InDelta(t, 1, z.Z, epsilon)

	// Anti-commutative.
	flipped := y.Cross(x)
	assert.InDelta(t, -1, flipped.Z, epsilon)
}

func TestVec3DotOrthogonal(t *testing.T) {
	assert.InDelta(t, 0, NewVec3(1, 0, 0).Dot(NewVec3(0, 1, 0)), epsilon)
	assert.InDelta(t, 2, NewVec3(1, 1, 0).Dot(NewVec3(1, 1, 0)), epsilon)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(10, 0, 5))
	assert.Equal(t, 0, Clamp(-3, 0, 5))
	assert.Equal(t, 3, Clamp(3, 0, 5))
	assert.Equal(t, float32(1.5), Clamp(float32(1.5), 1.0, 2.0))
}

func TestMax(t *testing.T) {
	assert.Equal(t, uint32(800), Max(uint32(800), 600))
	assert.Equal(t, uint32(600), Max(uint32(1), 600))
	assert.Equal(t, float32(2.5), Max(float32(2.5), 2.0))
}

func TestDegToRad(t *testing.T) {
	assert.InDelta(t, Pi, DegToRad(180), epsilon)
	assert.InDelta(t, Pi/2, DegToRad(90), epsilon)
}
