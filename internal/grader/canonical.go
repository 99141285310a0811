package grader

import (
	"omr-grader/internal/grid"
	"omr-grader/internal/router"
	"omr-grader/internal/sheet"
	"omr-grader/pkg/geometry"

	"gocv.io/x/gocv"
)

// Canonical is a rectified sheet cached between Grade and Nudge.
type Canonical struct {
	Gray       gocv.Mat
	Size       geometry.Size
	Items      int
	Corners    geometry.Quad // original image space
	Strategy   string
	HeaderText string

	calib  sheet.Calibration
	debug  bool
	bands  []bandState
	closed bool
}

// bandState is the per-band work reused by Nudge.
type bandState struct {
	Band router.Band
	Gray gocv.Mat // band crop of the canonical image
	Bin  gocv.Mat // binarized band
	Grid grid.Grid
}

// Bands returns the band layout.
func (c *Canonical) Bands() []router.Band {
	out := make([]router.Band, len(c.bands))
	for i, b := range c.bands {
		out[i] = b.Band
	}
	return out
}

// Grids returns the reconstructed grid of each band, in band order.
func (c *Canonical) Grids() []grid.Grid {
	out := make([]grid.Grid, len(c.bands))
	for i, b := range c.bands {
		out[i] = b.Grid
	}
	return out
}

// HeaderBounds is the strip above the first anchor row where the sheet
// prints its header.
func (c *Canonical) HeaderBounds() geometry.RectInt {
	return geometry.RectInt{X: 0, Y: 0, Width: c.Size.Width, Height: int(c.calib.MinY)}.
		Clamp(c.Size.Width, c.Size.Height)
}

// Close releases the cached Mats. It is safe to call more than once.
func (c *Canonical) Close() {
	if c == nil || c.closed {
		return
	}
	c.closed = true
	for _, b := range c.bands {
		b.Gray.Close()
		b.Bin.Close()
	}
	c.bands = nil
	c.Gray.Close()
}
