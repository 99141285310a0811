// Package colorutil provides the colors used to annotate graded sheets.
package colorutil

import "image/color"

// Overlay colors.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// Gray marks empty bubbles.
var Gray = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// ForBubble returns the outline color for a bubble. Marked bubbles are
// green; unmarked ones shade from gray toward yellow as fill approaches
// threshold.
func ForBubble(marked bool, fill, threshold float64) color.RGBA {
	if marked {
		return Green
	}
	if threshold <= 0 {
		return Gray
	}
	return Lerp(Gray, Yellow, fill/threshold)
}

// Lerp blends a toward b by t in [0,1].
func Lerp(a, b color.RGBA, t float64) color.RGBA {
	t = min(1, max(0, t))
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
