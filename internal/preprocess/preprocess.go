// Package preprocess normalizes raw sheet images into fixed-width grayscale
// bitmaps ready for corner detection.
package preprocess

import (
	"fmt"
	"image"

	"omr-grader/internal/logging"
	"omr-grader/internal/vision"

	"gocv.io/x/gocv"
)

// Source identifies where an image came from.
type Source int

const (
	SourceCamera Source = iota // Phone or webcam photo
	SourceUpload               // Flatbed scan or uploaded file
)

func (s Source) String() string {
	switch s {
	case SourceCamera:
		return "camera"
	case SourceUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// ParseSource maps a name to a Source.
func ParseSource(name string) (Source, error) {
	switch name {
	case "camera", "":
		return SourceCamera, nil
	case "upload", "scan":
		return SourceUpload, nil
	default:
		return SourceCamera, fmt.Errorf("unknown source %q", name)
	}
}

// Target widths per profile.
const (
	CameraWidth = 1000
	UploadWidth = 1200
)

// TargetWidth returns the profile's output width.
func (s Source) TargetWidth() int {
	if s == SourceUpload {
		return UploadWidth
	}
	return CameraWidth
}

// Prepared is a normalized grayscale bitmap plus what is needed to map
// coordinates back into the original image.
type Prepared struct {
	Gray       gocv.Mat
	Source     Source
	OrigWidth  int
	OrigHeight int
	Scale      float64 // prepared px per original px
}

// ToOriginal converts a prepared-space coordinate factor back to original space.
func (p *Prepared) ToOriginal() float64 {
	if p.Scale == 0 {
		return 1
	}
	return 1 / p.Scale
}

// Prepare runs the profile for source on a single-channel image. All
// intermediates, including the returned bitmap, are owned by arena.
func Prepare(arena *vision.Arena, gray gocv.Mat, source Source) (*Prepared, error) {
	if gray.Empty() {
		return nil, vision.ErrEmptyImage
	}

	w, h := gray.Cols(), gray.Rows()
	target := source.TargetWidth()
	scale := float64(target) / float64(w)
	th := max(1, int(float64(h)*scale+0.5))

	resized := arena.NewMat()
	interp := gocv.InterpolationArea
	if scale > 1 {
		interp = gocv.InterpolationCubic
	}
	gocv.Resize(gray, &resized, image.Point{X: target, Y: th}, 0, 0, interp)

	var out gocv.Mat
	switch source {
	case SourceUpload:
		out = uploadProfile(arena, resized)
	default:
		out = cameraProfile(arena, resized)
	}

	logging.Logger().Debug("preprocessed",
		"source", source.String(),
		"orig_w", w, "orig_h", h,
		"w", out.Cols(), "h", out.Rows())

	return &Prepared{
		Gray:       out,
		Source:     source,
		OrigWidth:  w,
		OrigHeight: h,
		Scale:      scale,
	}, nil
}

// cameraProfile favors noise suppression: bilateral smoothing keeps edges
// while flattening sensor noise, and min-max normalization stretches
// shadowed exposures.
func cameraProfile(arena *vision.Arena, src gocv.Mat) gocv.Mat {
	smooth := arena.NewMat()
	gocv.BilateralFilter(src, &smooth, 9, 75, 75)

	norm := arena.NewMat()
	gocv.Normalize(smooth, &norm, 0, 255, gocv.NormMinMax)
	return norm
}

// uploadProfile sharpens soft scans, then equalizes contrast per tile to
// remove scanner banding.
func uploadProfile(arena *vision.Arena, src gocv.Mat) gocv.Mat {
	kernel := arena.Track(gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F))
	sharpen := [3][3]float32{
		{0, -1, 0},
		{-1, 5, -1},
		{0, -1, 0},
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			kernel.SetFloatAt(r, c, sharpen[r][c])
		}
	}

	sharp := arena.NewMat()
	gocv.Filter2D(src, &sharp, -1, kernel, image.Point{X: -1, Y: -1}, 0, gocv.BorderDefault)

	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{X: 8, Y: 8})
	defer clahe.Close()

	eq := arena.NewMat()
	clahe.Apply(sharp, &eq)
	return eq
}
