package grader

import (
	"time"

	"omr-grader/internal/mark"
	"omr-grader/internal/overlay"
	"omr-grader/internal/sheet"
)

// Options tunes an Engine.
type Options struct {
	Concurrency       int           // in-flight classifier calls per band
	ClassifierTimeout time.Duration // per classifier call
	Thresholds        mark.Thresholds
	Template          sheet.Template
	Width             int  // canonical width in pixels
	MaxItems          int  // upper bound on Input.Items; 0 disables the check
	Debug             bool // always build the debug payload
	Overlay           overlay.Options
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Concurrency:       8,
		ClassifierTimeout: 2 * time.Second,
		Thresholds:        mark.DefaultThresholds(),
		Template:          sheet.Standard(),
		Width:             sheet.CanonicalWidth,
		MaxItems:          200,
		Overlay:           overlay.DefaultOptions(),
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if len(o.Template.Options) == 0 {
		o.Template = d.Template
	}
	if o.Thresholds == (mark.Thresholds{}) {
		o.Thresholds = d.Thresholds
	}
	if o.Overlay == (overlay.Options{}) {
		o.Overlay = d.Overlay
	}
	return o
}
