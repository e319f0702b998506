package yolokit

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestImage writes a width x height image to path, encoded by its extension.
func writeTestImage(t *testing.T, fs afero.Fs, path string, width, height int) {
	t.Helper()

	format, err := imaging.FormatFromFilename(path)
	require.NoError(t, err)

	img := imaging.New(width, height, color.NRGBA{R: 128, G: 64, B: 32, A: 255})
	f, err := fs.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, imaging.Encode(f, img, format))
}

func TestDecodeImageConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestImage(t, fs, "/img/a.jpg", 100, 200)
	writeTestImage(t, fs, "/img/b.png", 7, 3)

	cfg, format, err := decodeImageConfig(fs, "/img/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 200, cfg.Height)

	size, err := imageSizeFromFile(fs, "/img/b.png")
	require.NoError(t, err)
	assert.Equal(t, ImageSize{Width: 7, Height: 3}, size)
}

func TestImageSizeFromFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/img/broken.jpg", []byte("not an image"), 0o644))

	_, err := imageSizeFromFile(fs, "/img/missing.jpg")
	assert.Error(t, err)

	_, err = imageSizeFromFile(fs, "/img/broken.jpg")
	assert.Error(t, err)
}

func TestScaleImage(t *testing.T) {
	small := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	small.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})

	up := scaleImage(small, 40, 40)
	assert.Equal(t, image.Rect(0, 0, 40, 40), up.Bounds())
	// Nearest neighbour keeps the cell colour intact.
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, color.NRGBAModel.Convert(up.At(5, 5)))

	down := scaleImage(small, 2, 2)
	assert.Equal(t, image.Rect(0, 0, 2, 2), down.Bounds())

	assert.Same(t, small, scaleImage(small, 4, 4))
}

func TestSaveImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0o755))

	require.NoError(t, saveImage(fs, "/out/chart.png", image.NewNRGBA(image.Rect(0, 0, 30, 20))))

	cfg, format, err := decodeImageConfig(fs, "/out/chart.png")
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}
