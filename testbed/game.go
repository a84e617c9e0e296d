package testbed

import (
	"os"

	"github.com/spectralab/spectra/engine"
	"github.com/spectralab/spectra/engine/config"
	"github.com/spectralab/spectra/engine/core"
	"github.com/spectralab/spectra/engine/math"
	"github.com/spectralab/spectra/engine/resources"
	"github.com/spectralab/spectra/engine/scene"
)

const configPath = "spectra.toml"

// NewTestGame builds the demo: two windows sharing one device, a spinning
// grid of textured cubes and a ground quad, lit by a single directional light.
func NewTestGame() *engine.Game {
	cfg := config.Default()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := config.Load(configPath)
		if err != nil {
			core.LogFatal(err.Error())
		}
		cfg = loaded
	}
	if len(cfg.Windows) < 2 {
		cfg.Windows = append(cfg.Windows, config.WindowConfig{
			Title:  cfg.Name + " — second view",
			Width:  640,
			Height: 480,
		})
	}

	return &engine.Game{
		Config:  cfg,
		FnSetup: setup,
	}
}

func setup(app *engine.Application) error {
	checker, err := app.AddTexture(checkerImage(256, 32), "")
	if err != nil {
		return err
	}

	cube, err := app.AddMesh(cubeMesh(checker))
	if err != nil {
		return err
	}
	quad, err := app.AddMesh(quadMesh(checker))
	if err != nil {
		return err
	}

	// A GLTF scene is optional; the procedural geometry carries the demo
	// when no model file is shipped.
	if modelBase, err := app.LoadModel("models/scene.gltf"); err == nil {
		for _, id := range app.WindowIDs() {
			app.Scene(id).AddInstance(scene.Instance{
				MeshIndex: modelBase,
				Position:  math.NewVec3(0, 0, -4),
			})
		}
	} else {
		core.LogInfo("no gltf scene loaded: %s", err.Error())
	}

	for _, id := range app.WindowIDs() {
		sceneState := app.Scene(id)

		sceneState.AddInstance(scene.Instance{
			MeshIndex: quad,
			Position:  math.NewVec3(0, -1, 0),
			Scale:     math.NewVec3(12, 1, 12),
		})

		for x := -2; x <= 2; x++ {
			for z := -2; z <= 2; z++ {
				sceneState.AddInstance(scene.Instance{
					MeshIndex: cube,
					Position:  math.NewVec3(float32(x)*2, 0, float32(z)*2),
					Scale:     math.NewVec3(0.6, 0.6, 0.6),
					Spin:      math.NewVec3(0, 0.8+0.1*float32(x+z), 0),
				})
			}
		}
	}
	return nil
}

// checkerImage generates an RGBA checkerboard, the classic mip-chain
// debugging texture.
func checkerImage(size, cell uint32) *resources.ImageData {
	pixels := make([]byte, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			offset := (y*size + x) * 4
			if ((x/cell)+(y/cell))%2 == 0 {
				pixels[offset+0] = 230
				pixels[offset+1] = 230
				pixels[offset+2] = 230
			} else {
				pixels[offset+0] = 40
				pixels[offset+1] = 90
				pixels[offset+2] = 160
			}
			pixels[offset+3] = 255
		}
	}
	return &resources.ImageData{
		Name:         "checker",
		Width:        size,
		Height:       size,
		ChannelCount: 4,
		Pixels:       pixels,
	}
}

func quadMesh(materialIndex uint32) *resources.MeshData {
	white := math.NewVec4(1, 1, 1, 1)
	up := math.NewVec3(0, 1, 0)
	return &resources.MeshData{
		Name: "quad",
		Vertices: []math.Vertex3D{
			{Position: math.NewVec3(-0.5, 0, -0.5), Normal: up, Texcoord: math.Vec2{X: 0, Y: 0}, Colour: white},
			{Position: math.NewVec3(0.5, 0, -0.5), Normal: up, Texcoord: math.Vec2{X: 1, Y: 0}, Colour: white},
			{Position: math.NewVec3(0.5, 0, 0.5), Normal: up, Texcoord: math.Vec2{X: 1, Y: 1}, Colour: white},
			{Position: math.NewVec3(-0.5, 0, 0.5), Normal: up, Texcoord: math.Vec2{X: 0, Y: 1}, Colour: white},
		},
		Indices:       []uint32{0, 3, 2, 2, 1, 0},
		MaterialIndex: materialIndex,
	}
}

func cubeMesh(materialIndex uint32) *resources.MeshData {
	white := math.NewVec4(1, 1, 1, 1)

	type face struct {
		normal math.Vec3
		a      math.Vec3
		b      math.Vec3
		c      math.Vec3
		d      math.Vec3
	}
	faces := []face{
		{math.NewVec3(0, 0, 1), math.NewVec3(-0.5, -0.5, 0.5), math.NewVec3(0.5, -0.5, 0.5), math.NewVec3(0.5, 0.5, 0.5), math.NewVec3(-0.5, 0.5, 0.5)},
		{math.NewVec3(0, 0, -1), math.NewVec3(0.5, -0.5, -0.5), math.NewVec3(-0.5, -0.5, -0.5), math.NewVec3(-0.5, 0.5, -0.5), math.NewVec3(0.5, 0.5, -0.5)},
		{math.NewVec3(1, 0, 0), math.NewVec3(0.5, -0.5, 0.5), math.NewVec3(0.5, -0.5, -0.5), math.NewVec3(0.5, 0.5, -0.5), math.NewVec3(0.5, 0.5, 0.5)},
		{math.NewVec3(-1, 0, 0), math.NewVec3(-0.5, -0.5, -0.5), math.NewVec3(-0.5, -0.5, 0.5), math.NewVec3(-0.5, 0.5, 0.5), math.NewVec3(-0.5, 0.5, -0.5)},
		{math.NewVec3(0, 1, 0), math.NewVec3(-0.5, 0.5, 0.5), math.NewVec3(0.5, 0.5, 0.5), math.NewVec3(0.5, 0.5, -0.5), math.NewVec3(-0.5, 0.5, -0.5)},
		{math.NewVec3(0, -1, 0), math.NewVec3(-0.5, -0.5, -0.5), math.NewVec3(0.5, -0.5, -0.5), math.NewVec3(0.5, -0.5, 0.5), math.NewVec3(-0.5, -0.5, 0.5)},
	}

	data := &resources.MeshData{Name: "cube", MaterialIndex: materialIndex}
	for i, f := range faces {
		base := uint32(i * 4)
		data.Vertices = append(data.Vertices,
			math.Vertex3D{Position: f.a, Normal: f.normal, Texcoord: math.Vec2{X: 0, Y: 1}, Colour: white},
			math.Vertex3D{Position: f.b, Normal: f.normal, Texcoord: math.Vec2{X: 1, Y: 1}, Colour: white},
			math.Vertex3D{Position: f.c, Normal: f.normal, Texcoord: math.Vec2{X: 1, Y: 0}, Colour: white},
			math.Vertex3D{Position: f.d, Normal: f.normal, Texcoord: math.Vec2{X: 0, Y: 0}, Colour: white},
		)
		data.Indices = append(data.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return data
}
