package yolokit

// Rendering of the health check charts.

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Chart layout in pixels.
const (
	marginLeft   = 64
	marginRight  = 24
	marginTop    = 40
	marginBottom = 48
	colorBarW    = 16
	colorBarGap  = 12
)

var (
	chartBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	chartForeground = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	chartBar        = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}
	chartFace       = basicfont.Face7x13
)

// hotColor maps v in [0,1] to the "hot" colour map: black, red, yellow, white.
func hotColor(v float64) color.NRGBA {
	channel := func(lo, hi float64) uint8 {
		t := (v - lo) / (hi - lo)
		t = math.Min(1, math.Max(0, t))
		return uint8(math.Round(t * 255))
	}
	return color.NRGBA{R: channel(0, 0.365), G: channel(0.365, 0.746), B: channel(0.746, 1), A: 255}
}

func fillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func textWidth(s string) int {
	return font.MeasureString(chartFace, s).Ceil()
}

// drawText draws s with its baseline starting at (x, y).
func drawText(img draw.Image, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(chartForeground),
		Face: chartFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCentered draws s horizontally centered on cx.
func drawCentered(img draw.Image, cx, y int, s string) {
	drawText(img, cx-textWidth(s)/2, y, s)
}

// drawAxes draws the x and y axis lines around the plot area.
func drawAxes(img draw.Image, plot image.Rectangle) {
	fillRect(img, image.Rect(plot.Min.X-1, plot.Min.Y, plot.Min.X, plot.Max.Y+1), chartForeground)
	fillRect(img, image.Rect(plot.Min.X-1, plot.Max.Y, plot.Max.X, plot.Max.Y+1), chartForeground)
}

// RenderClassDistribution draws a bar chart of class id against annotation count. Bars are
// ordered by class id. The chart is width pixels wide and 3/4 as high.
func RenderClassDistribution(counts map[int]int, title string, width int) *image.NRGBA {
	height := width * 3 / 4
	img := imaging.New(width, height, chartBackground)

	drawCentered(img, width/2, marginTop/2+5, title)
	if width-marginRight <= marginLeft || height-marginBottom <= marginTop {
		// Too small for a plot area.
		return img
	}
	plot := image.Rect(marginLeft, marginTop, width-marginRight, height-marginBottom)

	drawAxes(img, plot)
	drawCentered(img, plot.Min.X+plot.Dx()/2, height-10, "Class ID")
	drawText(img, 8, marginTop-8, "Count")

	ids := make([]int, 0, len(counts))
	maxCount := 0
	for id, n := range counts {
		ids = append(ids, id)
		if n > maxCount {
			maxCount = n
		}
	}
	sort.Ints(ids)

	if len(ids) == 0 || maxCount == 0 {
		drawCentered(img, plot.Min.X+plot.Dx()/2, plot.Min.Y+plot.Dy()/2, "no annotations")
		return img
	}

	// Y axis labels.
	maxLabel := strconv.Itoa(maxCount)
	drawText(img, plot.Min.X-6-textWidth(maxLabel), plot.Min.Y+5, maxLabel)
	drawText(img, plot.Min.X-6-textWidth("0"), plot.Max.Y+5, "0")

	// Skip id labels that would overlap.
	slot := float64(plot.Dx()) / float64(len(ids))
	labelEvery := 1
	if widest := textWidth(strconv.Itoa(ids[len(ids)-1])) + 4; slot < float64(widest) {
		labelEvery = int(math.Ceil(float64(widest) / slot))
	}

	for i, id := range ids {
		x0 := plot.Min.X + int(math.Round(float64(i)*slot+slot*0.1))
		x1 := plot.Min.X + int(math.Round(float64(i+1)*slot-slot*0.1))
		if x1 <= x0 {
			x1 = x0 + 1
		}
		barH := int(math.Round(float64(counts[id]) / float64(maxCount) * float64(plot.Dy())))
		fillRect(img, image.Rect(x0, plot.Max.Y-barH, x1, plot.Max.Y), chartBar)

		if i%labelEvery == 0 {
			drawCentered(img, (x0+x1)/2, plot.Max.Y+16, strconv.Itoa(id))
		}
	}

	return img
}

// heatmapImage renders each heatmap cell as one pixel, normalized by the maximum count.
func heatmapImage(h *Heatmap) *image.NRGBA {
	res := h.Resolution()
	img := image.NewNRGBA(image.Rect(0, 0, res, res))
	peak := float64(h.Max())
	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			v := 0.0
			if peak > 0 {
				v = float64(h.At(x, y)) / peak
			}
			img.SetNRGBA(x, y, hotColor(v))
		}
	}
	return img
}

// RenderHeatmap draws the heatmap with the "hot" colour map on a size x size canvas, with a
// title and a colour bar showing the maximum count.
func RenderHeatmap(h *Heatmap, title string, size int) *image.NRGBA {
	img := imaging.New(size, size, chartBackground)

	side := size - marginTop - marginBottom
	if w := size - marginLeft - marginRight - colorBarGap - colorBarW - 40; w < side {
		side = w
	}
	if side < 1 {
		side = 1
	}
	plot := image.Rect(marginLeft, marginTop, marginLeft+side, marginTop+side)

	drawCentered(img, size/2, marginTop/2+5, title)
	img = imaging.Paste(img, scaleImage(heatmapImage(h), side, side), plot.Min)
	drawAxes(img, plot)
	drawText(img, plot.Min.X-6-textWidth("0"), plot.Min.Y+5, "0")
	drawText(img, plot.Min.X-6-textWidth("1"), plot.Max.Y+5, "1")
	drawText(img, plot.Max.X-textWidth("1"), plot.Max.Y+16, "1")

	// Colour bar, hottest at the top.
	bar := image.Rect(plot.Max.X+colorBarGap, plot.Min.Y, plot.Max.X+colorBarGap+colorBarW, plot.Max.Y)
	for y := bar.Min.Y; y < bar.Max.Y; y++ {
		v := 1 - float64(y-bar.Min.Y)/float64(bar.Dy())
		fillRect(img, image.Rect(bar.Min.X, y, bar.Max.X, y+1), hotColor(v))
	}
	drawText(img, bar.Max.X+4, bar.Min.Y+5, strconv.FormatUint(uint64(h.Max()), 10))
	drawText(img, bar.Max.X+4, bar.Max.Y+5, "0")

	return img
}
