package mark

import (
	"omr-grader/pkg/geometry"

	"gocv.io/x/gocv"
)

// Thresholds for the fusion rule.
type Thresholds struct {
	Probability float64 // classifier must exceed this to mark on its own
	Fill        float64 // fill ratio above this marks regardless of the classifier
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Probability: 0.60, Fill: 0.45}
}

// Bubble is one sampled option slot with its evidence and decision.
type Bubble struct {
	Rect        geometry.RectInt `json:"rect"` // canonical coordinates
	Option      string           `json:"option"`
	Item        int              `json:"item"` // 1-based, global
	Fill        float64          `json:"fill"`
	Label       string           `json:"label"`
	Probability float64          `json:"probability"`
	Marked      bool             `json:"marked"`
	BandOffset  int              `json:"band_offset"` // band X origin in canonical pixels
}

// Decide applies the fusion rule: a confident "marked" verdict, or strong
// pixel evidence on its own.
func Decide(fill float64, v Verdict, t Thresholds) bool {
	return (v.Label == LabelMarked && v.Probability > t.Probability) || fill > t.Fill
}

// ResolveRow picks the answer for one row. No marked bubble gives "", one
// gives its option, and several are settled by the highest marked
// probability with ties going to the first seen.
func ResolveRow(row []Bubble) string {
	best := -1
	bestP := -1.0
	for i, b := range row {
		if !b.Marked {
			continue
		}
		p := Verdict{Label: b.Label, Probability: b.Probability}.MarkedProbability()
		if p > bestP {
			best, bestP = i, p
		}
	}
	if best < 0 {
		return ""
	}
	return row[best].Option
}

// RowCertainty scores how sure the engine is about a resolved row, in [0,1].
func RowCertainty(row []Bubble, answer string) float64 {
	strongest := 0.0
	for _, b := range row {
		if answer != "" && b.Option != answer {
			continue
		}
		s := max(b.Fill, Verdict{Label: b.Label, Probability: b.Probability}.MarkedProbability())
		strongest = max(strongest, s)
	}
	if answer == "" {
		return min(1, max(0, 1-strongest))
	}
	return min(1, strongest)
}

// FillRatio is the fraction of foreground pixels of bin inside r.
func FillRatio(bin gocv.Mat, r geometry.RectInt) float64 {
	r = r.Clamp(bin.Cols(), bin.Rows())
	if r.Empty() {
		return 0
	}
	region := bin.Region(r.Image())
	defer region.Close()
	return float64(gocv.CountNonZero(region)) / float64(r.Area())
}
