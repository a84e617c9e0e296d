package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// WindowConfig describes one window the application opens at startup.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// MSAA sample count. One of 1, 2, 4, 8; validated against the device at startup.
	Samples uint32 `toml:"samples"`
	// Number of frame slots per window. Bounds frames in flight.
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Prefer FIFO (vsync) over mailbox presentation.
	VSync bool `toml:"vsync"`
	// Enable validation layers and the debug report callback.
	Validation bool `toml:"validation"`
}

type CameraConfig struct {
	FovDegrees float32 `toml:"fov_degrees"`
	Near       float32 `toml:"near"`
	Far        float32 `toml:"far"`
}

type AssetsConfig struct {
	// Root directory watched for hot-reload and used to resolve asset paths.
	Root string `toml:"root"`
}

type Config struct {
	Name     string         `toml:"name"`
	LogLevel string         `toml:"log_level"`
	Renderer RendererConfig `toml:"renderer"`
	Camera   CameraConfig   `toml:"camera"`
	Assets   AssetsConfig   `toml:"assets"`
	Windows  []WindowConfig `toml:"windows"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Name:     "Spectra",
		LogLevel: "info",
		Renderer: RendererConfig{
			Samples:        4,
			FramesInFlight: 2,
			VSync:          true,
			Validation:     false,
		},
		Camera: CameraConfig{
			FovDegrees: 45.0,
			Near:       0.1,
			Far:        100.0,
		},
		Assets: AssetsConfig{
			Root: "assets",
		},
		Windows: []WindowConfig{
			{Title: "Spectra", Width: 800, Height: 600},
		},
	}
}

// Load reads and validates a TOML configuration file. Fields missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Renderer.Samples {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("renderer.samples must be one of 1, 2, 4, 8; got %d", c.Renderer.Samples)
	}
	if c.Renderer.FramesInFlight < 2 || c.Renderer.FramesInFlight > 3 {
		return fmt.Errorf("renderer.frames_in_flight must be 2 or 3; got %d", c.Renderer.FramesInFlight)
	}
	if len(c.Windows) == 0 {
		return fmt.Errorf("at least one window must be configured")
	}
	for i, w := range c.Windows {
		if w.Width == 0 || w.Height == 0 {
			return fmt.Errorf("window %d has zero extent %dx%d", i, w.Width, w.Height)
		}
	}
	if c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180 {
		return fmt.Errorf("camera.fov_degrees must be in (0, 180); got %f", c.Camera.FovDegrees)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("camera near/far planes invalid: near=%f far=%f", c.Camera.Near, c.Camera.Far)
	}
	return nil
}
