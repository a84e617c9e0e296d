package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(2), cfg.Renderer.FramesInFlight)
	assert.Len(t, cfg.Windows, 1)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectra.toml")
	content := `
name = "Custom"

[renderer]
samples = 8
frames_in_flight = 3
vsync = false

[[windows]]
title = "One"
width = 1280
height = 720

[[windows]]
title = "Two"
width = 640
height = 480
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Custom", cfg.Name)
	assert.Equal(t, uint32(8), cfg.Renderer.Samples)
	assert.Equal(t, uint32(3), cfg.Renderer.FramesInFlight)
	assert.False(t, cfg.Renderer.VSync)
	require.Len(t, cfg.Windows, 2)
	assert.Equal(t, uint32(1280), cfg.Windows[0].Width)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.InDelta(t, 45.0, cfg.Camera.FovDegrees, 1e-6)
	assert.Equal(t, "assets", cfg.Assets.Root)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nsamples = 3\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "renderer.samples")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"samples not power of two", func(c *Config) { c.Renderer.Samples = 3 }, "renderer.samples"},
		{"samples too high", func(c *Config) { c.Renderer.Samples = 16 }, "renderer.samples"},
		{"frames in flight too low", func(c *Config) { c.Renderer.FramesInFlight = 1 }, "frames_in_flight"},
		{"frames in flight too high", func(c *Config) { c.Renderer.FramesInFlight = 5 }, "frames_in_flight"},
		{"no windows", func(c *Config) { c.Windows = nil }, "at least one window"},
		{"zero extent window", func(c *Config) { c.Windows[0].Width = 0 }, "zero extent"},
		{"fov too small", func(c *Config) { c.Camera.FovDegrees = 0 }, "fov_degrees"},
		{"fov too large", func(c *Config) { c.Camera.FovDegrees = 180 }, "fov_degrees"},
		{"near plane at zero", func(c *Config) { c.Camera.Near = 0 }, "near/far"},
		{"far before near", func(c *Config) { c.Camera.Far = 0.05 }, "near/far"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), test.wantErr)
		})
	}
}
