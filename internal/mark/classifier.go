// Package mark decides which bubbles are shaded by fusing a pixel fill ratio
// with a learned classifier's verdict.
package mark

import (
	"context"
	"image"
)

// Labels returned by classifiers.
const (
	LabelMarked   = "marked"
	LabelUnmarked = "unmarked"
)

// Verdict is a classifier's judgment of one bubble crop.
type Verdict struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// MarkedProbability returns the probability that the bubble is marked,
// whichever label the verdict carries. A zero-probability verdict, which is
// what a failed call produces, carries no evidence either way.
func (v Verdict) MarkedProbability() float64 {
	if v.Probability <= 0 {
		return 0
	}
	switch v.Label {
	case LabelMarked:
		return v.Probability
	case LabelUnmarked:
		return 1 - v.Probability
	default:
		return 0
	}
}

// Classifier judges a grayscale bubble crop. Implementations may be remote
// or on-device and must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (Verdict, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, img image.Image) (Verdict, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, img image.Image) (Verdict, error) {
	return f(ctx, img)
}
