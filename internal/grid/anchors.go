// Package grid locates the row anchors of a band and reconstructs the full
// ordered sequence of row positions.
package grid

import (
	"image"
	"math"
	"sort"

	"omr-grader/internal/sheet"
	"omr-grader/pkg/geometry"

	"gocv.io/x/gocv"
)

// Anchor is a detected row marker in band-local canonical coordinates.
type Anchor struct {
	Center geometry.Point2D `json:"center"`
	Area   float64          `json:"area"`   // bounding-box area
	Radius float64          `json:"radius"` // half the mean side length
}

// Shape describes a contour for anchor filtering.
type Shape struct {
	Bounds      image.Rectangle
	ContourArea float64
}

// IsAnchor reports whether a contour shape looks like a printed row square
// under calibration c.
func IsAnchor(s Shape, c sheet.Calibration) bool {
	w, h := s.Bounds.Dx(), s.Bounds.Dy()
	if w == 0 || h == 0 {
		return false
	}
	area := float64(w * h)
	if area < c.MinAnchorArea || area > c.MaxAnchorArea {
		return false
	}
	aspect := float64(w) / float64(h)
	if aspect < c.AspectMin || aspect > c.AspectMax {
		return false
	}
	// A traced pixel boundary spans (w-1) x (h-1), so a solid square scores 1.
	inner := float64(max(1, w-1) * max(1, h-1))
	if s.ContourArea/inner < c.MinSolidity {
		return false
	}
	cy := float64(s.Bounds.Min.Y) + float64(h)/2
	return cy >= c.MinY
}

func anchorFromShape(s Shape) Anchor {
	w, h := float64(s.Bounds.Dx()), float64(s.Bounds.Dy())
	return Anchor{
		Center: geometry.Point2D{X: float64(s.Bounds.Min.X) + w/2, Y: float64(s.Bounds.Min.Y) + h/2},
		Area:   w * h,
		Radius: (w + h) / 4,
	}
}

// FindAnchors extracts anchor candidates from a binarized band.
func FindAnchors(bin gocv.Mat, c sheet.Calibration) []Anchor {
	if bin.Empty() {
		return nil
	}
	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var anchors []Anchor
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		s := Shape{Bounds: gocv.BoundingRect(contour), ContourArea: gocv.ContourArea(contour)}
		if IsAnchor(s, c) {
			anchors = append(anchors, anchorFromShape(s))
		}
	}
	return anchors
}

// Column histogram parameters.
const (
	ColumnBinWidth  = 10.0
	ColumnMinHits   = 3
	ColumnTolerance = 25.0
)

// AnchorColumn picks the vertical anchor line: the first 10px X bin holding
// at least three anchors (or, failing that, the fullest bin) sets the peak,
// and anchors within 25px of it are returned sorted by Y along with their
// mean X.
func AnchorColumn(anchors []Anchor) ([]Anchor, float64) {
	if len(anchors) == 0 {
		return nil, 0
	}

	hist := map[int]int{}
	for _, a := range anchors {
		hist[int(math.Floor(a.Center.X/ColumnBinWidth))]++
	}
	bins := make([]int, 0, len(hist))
	for b := range hist {
		bins = append(bins, b)
	}
	sort.Ints(bins)

	peakBin, found := 0, false
	for _, b := range bins {
		if hist[b] >= ColumnMinHits {
			peakBin, found = b, true
			break
		}
	}
	if !found {
		best := -1
		for _, b := range bins {
			if hist[b] > best {
				peakBin, best = b, hist[b]
			}
		}
	}
	peak := float64(peakBin)*ColumnBinWidth + ColumnBinWidth/2

	var kept []Anchor
	var sumX float64
	for _, a := range anchors {
		if math.Abs(a.Center.X-peak) <= ColumnTolerance {
			kept = append(kept, a)
			sumX += a.Center.X
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Center.Y < kept[j].Center.Y })
	return kept, sumX / float64(len(kept))
}
