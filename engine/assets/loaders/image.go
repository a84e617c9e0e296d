package loaders

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"

	"github.com/spectralab/spectra/engine/resources"
)

// ImageLoader decodes texture files into tightly packed RGBA8 pixel data.
type ImageLoader struct{}

// Load decodes the image at path. Any registered format (png, jpeg, bmp) is
// accepted; everything is converted to 4-channel RGBA.
func (l *ImageLoader) Load(path string) (*resources.ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	decoded, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	bounds := decoded.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("image %s has zero extent (%s)", path, format)
	}

	rgba, ok := decoded.(*image.RGBA)
	if !ok || rgba.Stride != width*4 {
		converted := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(converted, converted.Bounds(), decoded, bounds.Min, draw.Src)
		rgba = converted
	}

	name := filepath.Base(path)
	return &resources.ImageData{
		Name:         name[:len(name)-len(filepath.Ext(name))],
		Width:        uint32(width),
		Height:       uint32(height),
		ChannelCount: 4,
		Pixels:       rgba.Pix,
	}, nil
}
