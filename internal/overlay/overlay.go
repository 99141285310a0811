// Package overlay draws grading evidence onto the canonical sheet image.
package overlay

import (
	"fmt"
	"image"

	"omr-grader/internal/grid"
	"omr-grader/internal/mark"
	"omr-grader/internal/router"
	"omr-grader/pkg/colorutil"

	"gocv.io/x/gocv"
)

// Options configures how the overlay is drawn.
type Options struct {
	BandOutlineWidth   int
	BubbleOutlineWidth int
	AnchorRadius       int
	FillThreshold      float64 // used to shade unmarked bubbles
}

// DefaultOptions returns the standard overlay styling.
func DefaultOptions() Options {
	return Options{
		BandOutlineWidth:   1,
		BubbleOutlineWidth: 2,
		AnchorRadius:       6,
		FillThreshold:      mark.DefaultThresholds().Fill,
	}
}

// Render annotates a copy of the canonical grayscale image and returns it
// as PNG. Anchors and bubbles are in canonical coordinates.
func Render(gray gocv.Mat, bands []router.Band, anchors []grid.Anchor, bubbles []mark.Bubble, opts Options) ([]byte, error) {
	if gray.Empty() {
		return nil, fmt.Errorf("empty canonical image")
	}

	canvas := gocv.NewMat()
	defer canvas.Close()
	gocv.CvtColor(gray, &canvas, gocv.ColorGrayToBGR)

	// Bands first so bubbles draw on top.
	for _, b := range bands {
		gocv.Rectangle(&canvas, b.Rect.Image(), colorutil.Blue, opts.BandOutlineWidth)
	}

	for _, a := range anchors {
		gocv.Circle(&canvas, a.Center.Image(), opts.AnchorRadius, colorutil.Magenta, 2)
	}

	for _, b := range bubbles {
		c := colorutil.ForBubble(b.Marked, b.Fill, opts.FillThreshold)
		width := opts.BubbleOutlineWidth
		if b.Marked {
			width = -1
		}
		gocv.Rectangle(&canvas, b.Rect.Image(), c, width)
		if b.Option == "A" {
			gocv.PutText(&canvas, fmt.Sprint(b.Item), image.Pt(b.Rect.X-28, b.Rect.Y+b.Rect.Height),
				gocv.FontHersheyPlain, 0.9, colorutil.Red, 1)
		}
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, canvas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
