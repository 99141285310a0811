package grid

import (
	"image"

	"omr-grader/internal/sheet"

	"gocv.io/x/gocv"
)

// Binarize thresholds a grayscale band so ink is foreground, then closes
// small gaps so faint pencil strokes form solid blobs. The returned Mat is
// owned by the caller.
func Binarize(band gocv.Mat, c sheet.Calibration) gocv.Mat {
	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(band, &thresh, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, c.BlockSize, 10)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3})
	defer kernel.Close()

	closed := gocv.NewMat()
	gocv.MorphologyEx(thresh, &closed, gocv.MorphClose, kernel)
	return closed
}
