package engine

import "github.com/spectralab/spectra/engine/config"

// Game is what an application supplies to the engine: its configuration and
// the hooks the engine calls during startup and every frame.
type Game struct {
	Config *config.Config
	State  interface{}

	// FnSetup loads GPU resources and populates the per-window scenes. Called
	// once, after the device and every window renderer exist.
	FnSetup Setup
	// FnUpdate runs every frame before the window renderers, with the frame
	// delta in seconds. Optional.
	FnUpdate Update
}

type Setup func(app *Application) error
type Update func(app *Application, deltaTime float64) error
