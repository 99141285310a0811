package grid

import (
	"omr-grader/internal/logging"
	"omr-grader/internal/sheet"

	"gocv.io/x/gocv"
)

// Grid is the reconstructed row layout of one band, in band-local canonical
// coordinates.
type Grid struct {
	Rows     []float64 `json:"rows"` // strictly increasing row-center Ys
	Pitch    float64   `json:"pitch"`
	AnchorX  float64   `json:"anchor_x"`
	Anchors  []Anchor  `json:"anchors"`  // anchors on the chosen column
	Detected int       `json:"detected"` // anchor candidates before column selection
}

// Empty reports whether no rows could be reconstructed.
func (g Grid) Empty() bool {
	return len(g.Rows) == 0
}

// ProbeFactory builds a Prober once the column X and pitch are known.
type ProbeFactory func(anchorX, pitch float64) Prober

// Build runs anchor detection and row reconstruction on a binarized band
// that must hold n items. A band with no anchors yields an empty grid.
func Build(bin gocv.Mat, c sheet.Calibration, n int, probes ProbeFactory) Grid {
	return FromAnchors(FindAnchors(bin, c), c, n, probes)
}

// FromAnchors is Build without the image step.
func FromAnchors(candidates []Anchor, c sheet.Calibration, n int, probes ProbeFactory) Grid {
	g := Grid{Detected: len(candidates), Pitch: c.DefaultPitch}
	column, x := AnchorColumn(candidates)
	if len(column) == 0 {
		logging.Logger().Debug("no anchors in band", "items", n)
		return g
	}

	ys := make([]float64, len(column))
	for i, a := range column {
		ys[i] = a.Center.Y
	}
	g.Anchors = column
	g.AnchorX = x
	g.Pitch = EstimatePitch(ys, c.DefaultPitch)

	var probe Prober
	if probes != nil {
		probe = probes(x, g.Pitch)
	}
	g.Rows = Reconstruct(ys, g.Pitch, n, probe)

	logging.Logger().Debug("grid reconstructed",
		"candidates", len(candidates),
		"column", len(column),
		"anchor_x", x,
		"pitch", g.Pitch,
		"rows", len(g.Rows))
	return g
}
