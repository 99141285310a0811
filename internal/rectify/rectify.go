// Package rectify warps the located sheet quadrilateral into the canonical
// top-down canvas.
package rectify

import (
	"fmt"
	"image"
	"math"

	"omr-grader/internal/logging"
	"omr-grader/pkg/geometry"

	"gocv.io/x/gocv"
)

// TargetSize returns the canonical size for quad at the given width. The
// height keeps the ratio of the longest vertical edge to the longest
// horizontal edge.
func TargetSize(q geometry.Quad, width int) (geometry.Size, bool) {
	top, bottom, left, right := q.EdgeLengths()
	w := math.Max(top, bottom)
	h := math.Max(left, right)
	if w < 1 || h < 1 {
		return geometry.Size{}, false
	}
	height := int(math.Round(float64(width) * h / w))
	return geometry.Size{Width: width, Height: max(1, height)}, true
}

// Warp rectifies src inside q onto a canvas of the given width. A degenerate
// quad is replaced by the full image rectangle. The returned Mat is owned by
// the caller.
func Warp(src gocv.Mat, q geometry.Quad, width int) (gocv.Mat, geometry.Size, error) {
	if src.Empty() {
		return gocv.Mat{}, geometry.Size{}, fmt.Errorf("rectify: empty source")
	}

	if !q.IsConvex() || !q.Distinct(1) {
		logging.Logger().Debug("degenerate quad, using image bounds")
		q = geometry.RectQuad(src.Cols(), src.Rows())
	}

	size, ok := TargetSize(q, width)
	if !ok {
		q = geometry.RectQuad(src.Cols(), src.Rows())
		size, _ = TargetSize(q, width)
	}

	dst := geometry.RectQuad(size.Width, size.Height)
	h, err := geometry.SolveHomography(q, dst)
	if err != nil {
		return gocv.Mat{}, geometry.Size{}, fmt.Errorf("rectify: %w", err)
	}

	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h[r*3+c])
		}
	}

	out := gocv.NewMat()
	gocv.WarpPerspective(src, &out, m, image.Point{X: size.Width, Y: size.Height})

	logging.Logger().Debug("rectified", "w", size.Width, "h", size.Height)
	return out, size, nil
}
