// Package ocr reads printed header text (name, class, form code) from the
// top margin of a rectified answer sheet.
package ocr

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"omr-grader/pkg/geometry"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// HeaderReader runs Tesseract on the sheet header band. A single client is
// shared, so calls are serialized.
type HeaderReader struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewHeaderReader creates a reader for the given Tesseract language.
func NewHeaderReader(language string) (*HeaderReader, error) {
	if language == "" {
		language = "eng"
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	return &HeaderReader{client: client}, nil
}

// Close releases OCR resources.
func (r *HeaderReader) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ReadHeader recognizes the text inside bounds of a grayscale sheet.
func (r *HeaderReader) ReadHeader(gray gocv.Mat, bounds geometry.RectInt) (string, error) {
	if gray.Empty() {
		return "", fmt.Errorf("empty image")
	}
	bounds = bounds.Clamp(gray.Cols(), gray.Rows())
	if bounds.Empty() {
		return "", fmt.Errorf("invalid region bounds")
	}

	region := gray.Region(bounds.Image())
	defer region.Close()

	processed := Binarize(region)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return Clean(text), nil
}

// Clean collapses whitespace and drops empty lines.
func Clean(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Binarize prepares a grayscale region for Tesseract: small regions are
// upscaled, then Otsu thresholding yields dark text on a light background.
// The caller owns the result.
func Binarize(region gocv.Mat) gocv.Mat {
	scaled := gocv.NewMat()
	defer scaled.Close()
	if h := region.Rows(); h > 0 && h < 150 {
		s := 150.0 / float64(h)
		gocv.Resize(region, &scaled, image.Point{}, s, s, gocv.InterpolationCubic)
	} else {
		region.CopyTo(&scaled)
	}

	binary := gocv.NewMat()
	gocv.Threshold(scaled, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	if white := gocv.CountNonZero(binary); float64(white) < 0.5*float64(binary.Rows()*binary.Cols()) {
		gocv.BitwiseNot(binary, &binary)
	}
	return binary
}
