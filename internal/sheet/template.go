// Package sheet describes the printed answer-sheet template and the
// per-item-count calibration profiles used to read it.
package sheet

// The answer sheet is a fixed printed template. Every bubble position is
// derived from these physical distances; nothing here is inferred from
// sample images.
//
// Physical characteristics:
// - One square row anchor printed left of each answer row
// - Four options (A-D) per row at a fixed horizontal pitch
// - Fiducials with a black/white/black nested pattern at the four corners
const (
	// AnchorToFirstOptionMM is the distance from the anchor center to option A's center.
	AnchorToFirstOptionMM = 13.0

	// OptionPitchMM is the center-to-center spacing between options.
	OptionPitchMM = 9.0

	// BubbleRadiusMM is the printed bubble radius.
	BubbleRadiusMM = 2.6

	// SampleSafety shrinks the sampling window inside the printed ring.
	SampleSafety = 0.9

	// RowPitchMM is the physical row height.
	RowPitchMM = 7.6

	// CanonicalWidth is the width in pixels of the rectified sheet.
	CanonicalWidth = 1000
)

// Options lists the option labels in print order.
var Options = []string{"A", "B", "C", "D"}

// Template is the physical layout contract in millimeters.
type Template struct {
	AnchorToFirstOption float64  `json:"anchor_to_first_option_mm"`
	OptionPitch         float64  `json:"option_pitch_mm"`
	BubbleRadius        float64  `json:"bubble_radius_mm"`
	Safety              float64  `json:"safety"`
	RowPitch            float64  `json:"row_pitch_mm"`
	Options             []string `json:"options"`
}

// Standard returns the template every printed sheet follows.
func Standard() Template {
	return Template{
		AnchorToFirstOption: AnchorToFirstOptionMM,
		OptionPitch:         OptionPitchMM,
		BubbleRadius:        BubbleRadiusMM,
		Safety:              SampleSafety,
		RowPitch:            RowPitchMM,
		Options:             Options,
	}
}

// PxPerMM converts a measured row pitch in pixels into a scale factor.
func (t Template) PxPerMM(pitchPx float64) float64 {
	if t.RowPitch <= 0 {
		return 0
	}
	return pitchPx / t.RowPitch
}
