package yolokit

// Bounding box conventions and the conversion between them.

import (
	"math"

	"github.com/sensorable/yolokit/internal/errors"
)

// ErrInvalidImageSize is returned when a box is normalized against a non-positive image size.
var ErrInvalidImageSize = errors.NewStd("image width and height must be positive")

// ImageSize is the pixel size of an image. It is only usable when both sides are positive.
type ImageSize struct {
	Width  float64
	Height float64
}

// Valid reports whether both sides are positive.
func (s ImageSize) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// CornerBox is a COCO bounding box: absolute top-left corner plus size, in pixels.
type CornerBox struct {
	X, Y          float64
	Width, Height float64
}

// YOLOBox is a YOLO bounding box: center plus size, normalized by the image size.
type YOLOBox struct {
	XCenter, YCenter float64
	Width, Height    float64
}

// Normalize converts b to the YOLO convention for an image of the given size.
//
// No clamping is done: a box reaching outside the image yields values outside [0,1].
func (b CornerBox) Normalize(size ImageSize) (YOLOBox, error) {
	if !size.Valid() {
		return YOLOBox{}, ErrInvalidImageSize
	}

	return YOLOBox{
		XCenter: (b.X + b.Width/2) / size.Width,
		YCenter: (b.Y + b.Height/2) / size.Height,
		Width:   b.Width / size.Width,
		Height:  b.Height / size.Height,
	}, nil
}

// Denormalize converts b back to absolute corner form for an image of the given size.
func (b YOLOBox) Denormalize(size ImageSize) CornerBox {
	w := b.Width * size.Width
	h := b.Height * size.Height
	return CornerBox{
		X:      b.XCenter*size.Width - w/2,
		Y:      b.YCenter*size.Height - h/2,
		Width:  w,
		Height: h,
	}
}

// Edges returns the normalized x1, y1, x2, y2 edges of b.
func (b YOLOBox) Edges() (x1, y1, x2, y2 float64) {
	return b.XCenter - b.Width/2, b.YCenter - b.Height/2,
		b.XCenter + b.Width/2, b.YCenter + b.Height/2
}

// InRange reports whether all edges of b lie within [0,1].
func (b YOLOBox) InRange() bool {
	x1, y1, x2, y2 := b.Edges()
	for _, v := range [4]float64{x1, y1, x2, y2} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Clamp clips the edges of b to [0,1] and recomputes center and size.
func (b YOLOBox) Clamp() YOLOBox {
	clip := func(v float64) float64 {
		return math.Min(1, math.Max(0, v))
	}

	x1, y1, x2, y2 := b.Edges()
	x1, y1, x2, y2 = clip(x1), clip(y1), clip(x2), clip(y2)

	return YOLOBox{
		XCenter: (x1 + x2) / 2,
		YCenter: (y1 + y2) / 2,
		Width:   x2 - x1,
		Height:  y2 - y1,
	}
}
