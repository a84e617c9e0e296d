package scene

import (
	"github.com/spectralab/spectra/engine/config"
	"github.com/spectralab/spectra/engine/math"
	"github.com/spectralab/spectra/engine/platform"
)

const (
	moveSpeed        = 4.0
	lookSensitivity  = 0.002
	pitchLimit       = 1.55 // just under pi/2
	defaultCameraFov = 45.0
)

// Camera derives the view matrix from position and yaw/pitch, and the
// projection matrix from fov, aspect and the near/far planes. Yaw 0 looks
// down -Z.
type Camera struct {
	Position math.Vec3
	Yaw      float32
	Pitch    float32

	FovDegrees float32
	Near       float32
	Far        float32

	aspect float32
}

func NewCamera(cfg config.CameraConfig, width, height uint32) *Camera {
	fov := cfg.FovDegrees
	if fov <= 0 {
		fov = defaultCameraFov
	}
	camera := &Camera{
		Position:   math.NewVec3(0, 1.5, 4),
		FovDegrees: fov,
		Near:       cfg.Near,
		Far:        cfg.Far,
	}
	camera.OnResize(width, height)
	return camera
}

// OnResize recomputes only the aspect ratio. The view matrix and model
// transforms are unaffected, so object proportions track the window shape.
func (c *Camera) OnResize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.aspect = float32(width) / float32(height)
}

func (c *Camera) Aspect() float32 {
	return c.aspect
}

func (c *Camera) forward() math.Vec3 {
	return math.Vec3{
		X: math.Sin32(c.Yaw) * math.Cos32(c.Pitch),
		Y: math.Sin32(c.Pitch),
		Z: -math.Cos32(c.Yaw) * math.Cos32(c.Pitch),
	}
}

func (c *Camera) right() math.Vec3 {
	return c.forward().Cross(math.NewVec3Up()).Normalized()
}

// Move applies free-look motion for one frame: held keys translate along the
// camera basis, the accumulated cursor delta turns it.
func (c *Camera) Move(dt float64, keys platform.KeyState, cursorDX, cursorDY float64) {
	c.Yaw += float32(cursorDX) * lookSensitivity
	c.Pitch -= float32(cursorDY) * lookSensitivity
	c.Pitch = math.Clamp(c.Pitch, -pitchLimit, pitchLimit)

	velocity := math.NewVec3Zero()
	if keys.Forward {
		velocity = velocity.Add(c.forward())
	}
	if keys.Backward {
		velocity = velocity.Sub(c.forward())
	}
	if keys.Right {
		velocity = velocity.Add(c.right())
	}
	if keys.Left {
		velocity = velocity.Sub(c.right())
	}
	if keys.Up {
		velocity = velocity.Add(math.NewVec3Up())
	}
	if keys.Down {
		velocity = velocity.Sub(math.NewVec3Up())
	}
	if velocity.LengthSquared() > 0 {
		step := velocity.Normalized().MulScalar(float32(dt) * moveSpeed)
		c.Position = c.Position.Add(step)
	}
}

func (c *Camera) ViewMatrix() math.Mat4 {
	target := c.Position.Add(c.forward())
	return math.NewMat4LookAt(c.Position, target, math.NewVec3Up())
}

func (c *Camera) ProjectionMatrix() math.Mat4 {
	return math.NewMat4Perspective(math.DegToRad(c.FovDegrees), c.aspect, c.Near, c.Far)
}

// ViewProjection composes projection*view once per frame; per-instance work
// multiplies only the model matrix on the GPU.
func (c *Camera) ViewProjection() math.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}
