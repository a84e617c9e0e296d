package scene

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/spectralab/spectra/engine/config"
	"github.com/spectralab/spectra/engine/math"
	"github.com/spectralab/spectra/engine/platform"
)

const epsilon = 1e-5

func testCameraConfig() config.CameraConfig {
	return config.CameraConfig{FovDegrees: 45, Near: 0.1, Far: 100}
}

func TestCameraOnResizeUpdatesAspectOnly(t *testing.T) {
	camera := NewCamera(testCameraConfig(), 800, 600)
	assert.InDelta(t, 800.0/600.0, camera.Aspect(), epsilon)

	position := camera.Position
	camera.OnResize(400, 800)
	assert.InDelta(t, 0.5, camera.Aspect(), epsilon)
	assert.Equal(t, position, camera.Position)
}

func TestCameraOnResizeIgnoresZeroExtent(t *testing.T) {
	camera := NewCamera(testCameraConfig(), 800, 600)
	camera.OnResize(0, 600)
	camera.OnResize(800, 0)
	assert.InDelta(t, 800.0/600.0, camera.Aspect(), epsilon)
}

func TestCameraMoveForward(t *testing.T) {
	camera := NewCamera(testCameraConfig(), 800, 600)
	start := camera.Position

	camera.Move(0.5, platform.KeyState{Forward: true}, 0, 0)

	// Yaw 0 looks down -Z, so forward motion decreases Z.
	assert.InDelta(t, start.X, camera.Position.X, epsilon)
	assert.InDelta(t, start.Y, camera.Position.Y, epsilon)
	assert.InDelta(t, start.Z-0.5*moveSpeed, camera.Position.Z, epsilon)
}

func TestCameraMoveOpposedKeysCancel(t *testing.T) {
	camera := NewCamera(testCameraConfig(), 800, 600)
	start := camera.Position

	camera.Move(1, platform.KeyState{Forward: true, Backward: true}, 0, 0)
	assert.Equal(t, start, camera.Position)
}

func TestCameraPitchClamped(t *testing.T) {
	camera := NewCamera(testCameraConfig(), 800, 600)
	camera.Move(0.016, platform.KeyState{}, 0, -1e6)
	assert.InDelta(t, pitchLimit, camera.Pitch, epsilon)

	camera.Move(0.016, platform.KeyState{}, 0, 1e7)
	assert.InDelta(t, -pitchLimit, camera.Pitch, epsilon)
}

func TestCameraViewProjectionComposition(t *testing.T) {
	camera := NewCamera(testCameraConfig(), 800, 600)
	expected := camera.ProjectionMatrix().Mul(camera.ViewMatrix())
	assert.Equal(t, expected, camera.ViewProjection())
}

func TestInstanceModelMatrixOrder(t *testing.T) {
	instance := Instance{
		Position: math.NewVec3(5, 0, 0),
		Rotation: math.NewVec3(0, math.DegToRad(90), 0),
		Scale:    math.NewVec3(2, 2, 2),
	}

	// A local +X point is scaled to 2, rotated onto -Z, then translated.
	point := instance.ModelMatrix().MulVec4(math.NewVec4(1, 0, 0, 1))
	assert.InDelta(t, 5, point.X, epsilon)
	assert.InDelta(t, 0, point.Y, epsilon)
	assert.InDelta(t, -2, point.Z, epsilon)
}

func TestSceneAddInstanceDefaultsScale(t *testing.T) {
	s := NewScene(testCameraConfig(), 800, 600)
	s.AddInstance(Instance{MeshIndex: 0})
	s.AddInstance(Instance{MeshIndex: 1, Scale: math.NewVec3(3, 3, 3)})

	assert.Equal(t, math.NewVec3(1, 1, 1), s.Instances[0].Scale)
	assert.Equal(t, math.NewVec3(3, 3, 3), s.Instances[1].Scale)
}

func TestSceneUpdateAppliesSpin(t *testing.T) {
	s := NewScene(testCameraConfig(), 800, 600)
	s.AddInstance(Instance{Spin: math.NewVec3(0, 2, 0)})

	s.Update(0.25, platform.KeyState{}, 0, 0)
	assert.InDelta(t, 0.5, s.Instances[0].Rotation.Y, epsilon)

	s.Update(0.25, platform.KeyState{}, 0, 0)
	assert.InDelta(t, 1.0, s.Instances[0].Rotation.Y, epsilon)
}

func TestSceneTransformsForFiltersByMesh(t *testing.T) {
	s := NewScene(testCameraConfig(), 800, 600)
	s.AddInstance(Instance{MeshIndex: 0, Position: math.NewVec3(1, 0, 0)})
	s.AddInstance(Instance{MeshIndex: 1, Position: math.NewVec3(2, 0, 0)})
	s.AddInstance(Instance{MeshIndex: 0, Position: math.NewVec3(3, 0, 0)})

	transforms := s.TransformsFor(0)
	assert.Len(t, transforms, 2)
	assert.InDelta(t, 1, transforms[0].Data[12], epsilon)
	assert.InDelta(t, 3, transforms[1].Data[12], epsilon)

	assert.Empty(t, s.TransformsFor(7))
}

func TestSceneMeshIndicesFirstSeenOrder(t *testing.T) {
	s := NewScene(testCameraConfig(), 800, 600)
	for _, index := range []uint32{2, 0, 2, 1, 0} {
		s.AddInstance(Instance{MeshIndex: index})
	}
	assert.Equal(t, []uint32{2, 0, 1}, s.MeshIndices())
}

func TestSceneLightNormalized(t *testing.T) {
	s := NewScene(testCameraConfig(), 800, 600)
	assert.InDelta(t, 1, s.Light.Direction.Length(), epsilon)
}

func TestPushConstantBlockLayout(t *testing.T) {
	assert.Equal(t, uintptr(PushConstantBlockSize), unsafe.Sizeof(PushConstantBlock{}))

	light := DirectionalLight{
		Direction: math.NewVec3(0, -1, 0),
		Color:     math.NewVec3(1, 0.5, 0.25),
		Intensity: 2,
	}
	block := NewPushConstantBlock(math.NewMat4Identity(), light, 3)

	assert.InDelta(t, -1, block.LightDirection.Y, epsilon)
	assert.InDelta(t, 0, block.LightDirection.W, epsilon)
	assert.InDelta(t, 2, block.LightColor.X, epsilon)
	assert.InDelta(t, 0.5, block.LightColor.Z, epsilon)
	assert.InDelta(t, 3, block.Material.X, epsilon)

	assert.Len(t, block.Bytes(), PushConstantBlockSize)
}
