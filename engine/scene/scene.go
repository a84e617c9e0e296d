package scene

import (
	"github.com/spectralab/spectra/engine/config"
	"github.com/spectralab/spectra/engine/math"
	"github.com/spectralab/spectra/engine/platform"
)

// DirectionalLight is immutable scene-wide lighting state; it only changes on
// explicit scene edits, never per frame.
type DirectionalLight struct {
	Direction math.Vec3
	Color     math.Vec3
	Intensity float32
}

// Instance places one copy of a mesh in the world. Spin is an angular
// velocity in radians per second applied by Update.
type Instance struct {
	MeshIndex uint32
	Position  math.Vec3
	Rotation  math.Vec3
	Scale     math.Vec3
	Spin      math.Vec3
}

// ModelMatrix composes translation * rotation * scale.
func (i *Instance) ModelMatrix() math.Mat4 {
	translation := math.NewMat4Translation(i.Position)
	rotation := math.NewMat4EulerXYZ(i.Rotation.X, i.Rotation.Y, i.Rotation.Z)
	scale := math.NewMat4Scale(i.Scale)
	return translation.Mul(rotation).Mul(scale)
}

// Scene owns the camera, the directional light and the placed instances.
// Exclusive to one window's render loop; never shared across loops.
type Scene struct {
	Camera    *Camera
	Light     DirectionalLight
	Instances []Instance
}

func NewScene(cfg config.CameraConfig, width, height uint32) *Scene {
	return &Scene{
		Camera: NewCamera(cfg, width, height),
		Light: DirectionalLight{
			Direction: math.NewVec3(-0.4, -1, -0.3).Normalized(),
			Color:     math.NewVec3(1, 1, 1),
			Intensity: 1,
		},
	}
}

func (s *Scene) AddInstance(instance Instance) {
	if instance.Scale == math.NewVec3Zero() {
		instance.Scale = math.NewVec3(1, 1, 1)
	}
	s.Instances = append(s.Instances, instance)
}

// Update advances camera motion and instance spin for one frame.
func (s *Scene) Update(dt float64, keys platform.KeyState, cursorDX, cursorDY float64) {
	s.Camera.Move(dt, keys, cursorDX, cursorDY)
	for i := range s.Instances {
		spin := s.Instances[i].Spin.MulScalar(float32(dt))
		s.Instances[i].Rotation = s.Instances[i].Rotation.Add(spin)
	}
}

// OnResize forwards the new extent to the camera; only the projection's
// aspect changes.
func (s *Scene) OnResize(width, height uint32) {
	s.Camera.OnResize(width, height)
}

// TransformsFor collects the model matrices of every instance of one mesh,
// in instance order. Rewritten into the frame slot's instance buffer each
// frame.
func (s *Scene) TransformsFor(meshIndex uint32) []math.Mat4 {
	var transforms []math.Mat4
	for i := range s.Instances {
		if s.Instances[i].MeshIndex == meshIndex {
			transforms = append(transforms, s.Instances[i].ModelMatrix())
		}
	}
	return transforms
}

// MeshIndices returns the distinct mesh indices referenced by the instances,
// in first-seen order.
func (s *Scene) MeshIndices() []uint32 {
	var order []uint32
	seen := make(map[uint32]bool)
	for i := range s.Instances {
		index := s.Instances[i].MeshIndex
		if !seen[index] {
			seen[index] = true
			order = append(order, index)
		}
	}
	return order
}
