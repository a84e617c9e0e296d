package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, path string, width, height int, fill color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, img))
}

func TestImageLoaderLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stone_wall.png")
	writeTestPNG(t, path, 8, 4, color.NRGBA{R: 255, G: 128, B: 0, A: 255})

	var loader ImageLoader
	data, err := loader.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "stone_wall", data.Name)
	assert.Equal(t, uint32(8), data.Width)
	assert.Equal(t, uint32(4), data.Height)
	assert.Equal(t, uint8(4), data.ChannelCount)
	require.Len(t, data.Pixels, 8*4*4)

	assert.Equal(t, uint8(255), data.Pixels[0])
	assert.Equal(t, uint8(128), data.Pixels[1])
	assert.Equal(t, uint8(0), data.Pixels[2])
	assert.Equal(t, uint8(255), data.Pixels[3])
}

func TestImageLoaderMissingFile(t *testing.T) {
	var loader ImageLoader
	_, err := loader.Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestImageLoaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	var loader ImageLoader
	_, err := loader.Load(path)
	assert.ErrorContains(t, err, "failed to decode")
}
