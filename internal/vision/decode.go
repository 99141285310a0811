package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrDecode means the bytes are not a supported image.
	ErrDecode = errors.New("cannot decode image")
	// ErrEmptyImage means the image decoded but has no pixels.
	ErrEmptyImage = errors.New("empty image")
)

// Decode decodes an encoded bitmap, applying EXIF orientation so phone
// photos come out upright.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// Load reads and decodes an image file.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// ToGray converts an image into a single-channel 8-bit Mat owned by a.
func ToGray(a *Arena, img image.Image) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.Mat{}, ErrEmptyImage
	}

	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		m, err := gocv.ImageGrayToMatGray(g)
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return a.Track(m), nil
	}

	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	a.Track(bgr)

	gray := a.NewMat()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	return gray, nil
}

// Crop copies a region of a Mat into a Go image.
func Crop(src gocv.Mat, r image.Rectangle) (image.Image, error) {
	r = r.Intersect(image.Rect(0, 0, src.Cols(), src.Rows()))
	if r.Empty() {
		return nil, ErrEmptyImage
	}
	region := src.Region(r)
	defer region.Close()
	owned := region.Clone()
	defer owned.Close()
	return owned.ToImage()
}

// SupportedFormats returns the file extensions Decode understands.
func SupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
