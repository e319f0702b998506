package yolokit

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHotColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{A: 255}, hotColor(0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, hotColor(1))

	mid := hotColor(0.5)
	assert.Equal(t, uint8(255), mid.R)
	assert.Equal(t, uint8(0), mid.B)
	assert.Greater(t, mid.G, uint8(0))

	assert.Equal(t, hotColor(0), hotColor(-1))
	assert.Equal(t, hotColor(1), hotColor(2))
}

func TestRenderClassDistribution(t *testing.T) {
	img := RenderClassDistribution(map[int]int{0: 10, 3: 5, 1: 0}, "Class distribution - train", 400)
	assert.Equal(t, image.Rect(0, 0, 400, 300), img.Bounds())

	// The tallest bar reaches the top of the plot area.
	found := false
	for x := marginLeft; x < 400-marginRight && !found; x++ {
		found = img.NRGBAAt(x, marginTop) == chartBar
	}
	assert.True(t, found)
}

func TestRenderClassDistributionEmpty(t *testing.T) {
	img := RenderClassDistribution(nil, "empty", 200)
	assert.Equal(t, image.Rect(0, 0, 200, 150), img.Bounds())
	for y := 0; y < 150; y++ {
		for x := 0; x < 200; x++ {
			require.NotEqual(t, chartBar, img.NRGBAAt(x, y))
		}
	}
}

func TestRenderHeatmap(t *testing.T) {
	h, err := NewHeatmap(10)
	require.NoError(t, err)
	h.Add(YOLOBox{0.5, 0.5, 0.2, 0.2})

	img := RenderHeatmap(h, "Annotation heatmap - val", 300)
	assert.Equal(t, image.Rect(0, 0, 300, 300), img.Bounds())

	raw := heatmapImage(h)
	assert.Equal(t, image.Rect(0, 0, 10, 10), raw.Bounds())
	assert.Equal(t, hotColor(1), raw.NRGBAAt(4, 4))
	assert.Equal(t, hotColor(0), raw.NRGBAAt(0, 0))
}

func TestRenderHeatmapEmpty(t *testing.T) {
	h, err := NewHeatmap(5)
	require.NoError(t, err)

	raw := heatmapImage(h)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			require.Equal(t, hotColor(0), raw.NRGBAAt(x, y))
		}
	}
	assert.NotNil(t, RenderHeatmap(h, "empty", 100))
}

func TestRenderClassDistributionTooSmall(t *testing.T) {
	for _, width := range []int{0, MinRenderSize, marginLeft + marginRight} {
		img := RenderClassDistribution(map[int]int{0: 3, 1000: 1}, "tiny", width)
		assert.Equal(t, image.Rect(0, 0, width, width*3/4), img.Bounds())
	}
}
