package yolokit

import (
	"fmt"
	"math"
)

// DefaultGridResolution is the default number of heatmap cells per side.
const DefaultGridResolution = 1000

// Heatmap is a square grid counting how many normalized box footprints cover each cell.
type Heatmap struct {
	res   int
	cells []uint32 // Row-major, res*res.
}

// NewHeatmap returns an all-zero heatmap with res cells per side.
func NewHeatmap(res int) (*Heatmap, error) {
	if res <= 0 {
		return nil, fmt.Errorf("invalid heatmap resolution %d", res)
	}
	return &Heatmap{res: res, cells: make([]uint32, res*res)}, nil
}

// Resolution returns the number of cells per side.
func (h *Heatmap) Resolution() int {
	return h.res
}

// Footprint returns the half-open cell range [x0,x1) x [y0,y1) covered by b, clipped to the grid.
// An edge at e maps to cell floor(e*res).
func (h *Heatmap) Footprint(b YOLOBox) (x0, y0, x1, y1 int) {
	ex1, ey1, ex2, ey2 := b.Edges()
	cell := func(e float64) int {
		v := math.Floor(e * float64(h.res))
		switch {
		case math.IsNaN(v) || v < 0:
			return 0
		case v > float64(h.res):
			return h.res
		}
		return int(v)
	}
	return cell(ex1), cell(ey1), cell(ex2), cell(ey2)
}

// Add increments every cell in the footprint of b by one.
func (h *Heatmap) Add(b YOLOBox) {
	x0, y0, x1, y1 := h.Footprint(b)
	for y := y0; y < y1; y++ {
		row := h.cells[y*h.res : (y+1)*h.res]
		for x := x0; x < x1; x++ {
			row[x]++
		}
	}
}

// At returns the count of cell (x, y).
func (h *Heatmap) At(x, y int) uint32 {
	return h.cells[y*h.res+x]
}

// Max returns the largest cell count.
func (h *Heatmap) Max() uint32 {
	var m uint32
	for _, v := range h.cells {
		if v > m {
			m = v
		}
	}
	return m
}

// IsZero reports whether no cell has been incremented.
func (h *Heatmap) IsZero() bool {
	return h.Max() == 0
}
