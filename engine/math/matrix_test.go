package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const epsilon = 1e-5

func TestMat4IdentityMul(t *testing.T) {
	identity := NewMat4Identity()
	translation := NewMat4Translation(NewVec3(1, 2, 3))

	assert.Equal(t, translation, identity.Mul(translation))
	assert.Equal(t, translation, translation.Mul(identity))
}

func TestMat4MulAppliesRightOperandFirst(t *testing.T) {
	// Scale by 2, then translate: the point (1,0,0) should land at (3,1,1).
	translate := NewMat4Translation(NewVec3(1, 1, 1))
	scale := NewMat4Scale(NewVec3(2, 2, 2))

	result := translate.Mul(scale).MulVec4(NewVec4(1, 0, 0, 1))
	assert.InDelta(t, 3, result.X, epsilon)
	assert.InDelta(t, 1, result.Y, epsilon)
	assert.InDelta(t, 1, result.Z, epsilon)
}

func TestMat4TranslationMovesPoint(t *testing.T) {
	translation := NewMat4Translation(NewVec3(-4, 7, 0.5))
	moved := translation.MulVec4(NewVec4(1, 1, 1, 1))

	assert.InDelta(t, -3, moved.X, epsilon)
	assert.InDelta(t, 8, moved.Y, epsilon)
	assert.InDelta(t, 1.5, moved.Z, epsilon)

	// Directions (w=0) are unaffected by translation.
	direction := translation.MulVec4(NewVec4(1, 0, 0, 0))
	assert.InDelta(t, 1, direction.X, epsilon)
	assert.InDelta(t, 0, direction.Y, epsilon)
}

func TestMat4PerspectiveVulkanConventions(t *testing.T) {
	fov := DegToRad(90)
	projection := NewMat4Perspective(fov, 2.0, 0.1, 100.0)

	// f = 1/tan(fov/2) = 1 for a 90 degree fov.
	assert.InDelta(t, 0.5, projection.Data[0], epsilon)
	// Y is flipped for Vulkan's Y-down clip space.
	assert.InDelta(t, -1.0, projection.Data[5], epsilon)
	assert.InDelta(t, -1.0, projection.Data[11], epsilon)

	// Depth range [0,1]: the near plane maps to 0, the far plane to 1.
	near := projection.MulVec4(NewVec4(0, 0, -0.1, 1))
	assert.InDelta(t, 0, near.Z/near.W, epsilon)
	far := projection.MulVec4(NewVec4(0, 0, -100, 1))
	assert.InDelta(t, 1, far.Z/far.W, 1e-3)
}

func TestMat4PerspectiveAspectOnlyScalesX(t *testing.T) {
	fov := DegToRad(45)
	wide := NewMat4Perspective(fov, 800.0/600.0, 0.1, 100.0)
	tall := NewMat4Perspective(fov, 400.0/800.0, 0.1, 100.0)

	// The Y scale depends only on fov; a resize touches only Data[0].
	assert.InDelta(t, wide.Data[5], tall.Data[5], epsilon)
	assert.InDelta(t, wide.Data[0]*(800.0/600.0), tall.Data[0]*(400.0/800.0), epsilon)
}

func TestMat4LookAtMapsPositionToOrigin(t *testing.T) {
	position := NewVec3(3, 4, 5)
	view := NewMat4LookAt(position, NewVec3Zero(), NewVec3Up())

	origin := view.MulVec4(position.ToVec4(1))
	assert.InDelta(t, 0, origin.X, epsilon)
	assert.InDelta(t, 0, origin.Y, epsilon)
	assert.InDelta(t, 0, origin.Z, epsilon)
	assert.InDelta(t, 1, origin.W, epsilon)
}

func TestMat4LookAtTargetOnNegativeZ(t *testing.T) {
	view := NewMat4LookAt(NewVec3(0, 0, 5), NewVec3Zero(), NewVec3Up())
	target := view.MulVec4(NewVec4(0, 0, 0, 1))

	// Right-handed view space looks down -Z.
	assert.InDelta(t, 0, target.X, epsilon)
	assert.InDelta(t, 0, target.Y, epsilon)
	assert.InDelta(t, -5, target.Z, epsilon)
}

func TestMat4EulerYRotatesAroundUp(t *testing.T) {
	rotation := NewMat4EulerY(DegToRad(90))
	rotated := rotation.MulVec4(NewVec4(1, 0, 0, 0))

	assert.InDelta(t, 0, rotated.X, epsilon)
	assert.InDelta(t, 0, rotated.Y, epsilon)
	assert.InDelta(t, -1, rotated.Z, epsilon)
}

func TestMat4Transposed(t *testing.T) {
	matrix := NewMat4Translation(NewVec3(1, 2, 3))
	transposed := NewMat4Transposed(matrix)

	assert.InDelta(t, 1, transposed.Data[3], epsilon)
	assert.InDelta(t, 2, transposed.Data[7], epsilon)
	assert.InDelta(t, 3, transposed.Data[11], epsilon)
	assert.Equal(t, matrix, NewMat4Transposed(transposed))
}

func TestMat4GltfToVulkanFlipsY(t *testing.T) {
	fixup := NewMat4GltfToVulkan()
	flipped := fixup.MulVec4(NewVec4(1, 2, 3, 1))

	assert.InDelta(t, 1, flipped.X, epsilon)
	assert.InDelta(t, -2, flipped.Y, epsilon)
	assert.InDelta(t, 3, flipped.Z, epsilon)

	// Applying it twice is the identity.
	assert.Equal(t, NewMat4Identity(), fixup.Mul(fixup))
}
