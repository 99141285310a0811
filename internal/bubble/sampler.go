// Package bubble converts reconstructed rows and the physical sheet template
// into per-option sampling rectangles.
package bubble

import (
	"omr-grader/internal/sheet"
	"omr-grader/pkg/geometry"
)

// Slot is one sampling rectangle for a (row, option) pair in band-local
// canonical pixels.
type Slot struct {
	Row    int // 0-based row within the band
	Option int // 0-based option index
	Center geometry.Point2D
	Rect   geometry.RectInt
}

// Sampler maps rows to slots using a scale recalibrated from the measured
// row pitch, so print or scan drift does not shift the sampling windows.
type Sampler struct {
	Template sheet.Template
	PxPerMM  float64
	AnchorX  float64
	Offset   geometry.PointInt
	Bounds   geometry.Size // band size used to clamp rectangles; zero disables clamping
}

// NewSampler builds a sampler for a band with the given anchor column and
// row pitch.
func NewSampler(tpl sheet.Template, anchorX, pitch float64) Sampler {
	return Sampler{
		Template: tpl,
		PxPerMM:  tpl.PxPerMM(pitch),
		AnchorX:  anchorX,
	}
}

// WithOffset returns a copy shifting every rectangle by (dx, dy).
func (s Sampler) WithOffset(dx, dy int) Sampler {
	s.Offset = geometry.PointInt{X: dx, Y: dy}
	return s
}

// WithBounds returns a copy clamping rectangles to a w x h band.
func (s Sampler) WithBounds(w, h int) Sampler {
	s.Bounds = geometry.Size{Width: w, Height: h}
	return s
}

// Radius returns the sampling half-size in pixels.
func (s Sampler) Radius() float64 {
	return s.Template.BubbleRadius * s.Template.Safety * s.PxPerMM
}

// OptionX returns the center X of option i.
func (s Sampler) OptionX(i int) float64 {
	t := s.Template
	return s.AnchorX + (t.AnchorToFirstOption+float64(i)*t.OptionPitch)*s.PxPerMM
}

// Slot returns the sampling rectangle for option i on a row at y.
func (s Sampler) Slot(row, option int, y float64) Slot {
	c := geometry.Point2D{X: s.OptionX(option) + float64(s.Offset.X), Y: y + float64(s.Offset.Y)}
	r := geometry.RectAround(c, s.Radius())
	if s.Bounds.Width > 0 && s.Bounds.Height > 0 {
		r = r.Clamp(s.Bounds.Width, s.Bounds.Height)
	}
	return Slot{Row: row, Option: option, Center: c, Rect: r}
}

// Row returns the slots for every option of one row.
func (s Sampler) Row(row int, y float64) []Slot {
	out := make([]Slot, len(s.Template.Options))
	for i := range out {
		out[i] = s.Slot(row, i, y)
	}
	return out
}

// Grid returns the slots for all rows, row-major.
func (s Sampler) Grid(rows []float64) []Slot {
	out := make([]Slot, 0, len(rows)*len(s.Template.Options))
	for r, y := range rows {
		out = append(out, s.Row(r, y)...)
	}
	return out
}
