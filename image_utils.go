package yolokit

import (
	"image"
	_ "image/jpeg" // Register the JPEG decoder for DecodeConfig.
	_ "image/png"  // Register the PNG decoder for DecodeConfig.
	"io"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig. Only
// the image header is read.
func decodeImageConfig(fs afero.Fs, path string) (config image.Config, format string, err error) {
	file, err := fs.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}

// imageSizeFromFile returns the pixel size of the image at path.
func imageSizeFromFile(fs afero.Fs, path string) (ImageSize, error) {
	cfg, _, err := decodeImageConfig(fs, path)
	if err != nil {
		return ImageSize{}, err
	}
	size := ImageSize{Width: float64(cfg.Width), Height: float64(cfg.Height)}
	if !size.Valid() {
		return ImageSize{}, ErrInvalidImageSize
	}
	return size, nil
}

// scaleImage resamples img to width x height. Nearest neighbour sampling keeps individual grid
// cells visible when a small heatmap is enlarged.
func scaleImage(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}

	filter := imaging.Box
	if width*height > b.Dx()*b.Dy() {
		filter = imaging.NearestNeighbor
	}
	return imaging.Resize(img, width, height, filter)
}

// saveImage encodes img as PNG and writes it to path.
func saveImage(fs afero.Fs, path string, img image.Image) error {
	return writeFile(fs, path, func(w io.Writer) error {
		return imaging.Encode(w, img, imaging.PNG)
	})
}
