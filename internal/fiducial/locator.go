// Package fiducial finds the four sheet corners from registration markers.
package fiducial

import (
	"image"

	"omr-grader/internal/logging"
	"omr-grader/internal/preprocess"
	"omr-grader/pkg/geometry"

	"gocv.io/x/gocv"
)

// Marker is a roughly square contour found during corner detection.
type Marker struct {
	Center   geometry.Point2D
	Area     float64
	Fiducial bool // contour encloses two further nested levels
}

// Candidates holds everything a strategy may choose from, in prepared space.
type Candidates struct {
	Markers []Marker
	Width   int
	Height  int
}

// Fiducials returns only the markers promoted to fiducials.
func (c Candidates) Fiducials() []Marker {
	var out []Marker
	for _, m := range c.Markers {
		if m.Fiducial {
			out = append(out, m)
		}
	}
	return out
}

// Strategy proposes corners from the candidates, or reports no result.
type Strategy struct {
	Name string
	Find func(c Candidates) (geometry.Quad, bool)
}

// Result is the located quad in original-image coordinates.
type Result struct {
	Corners  geometry.Quad
	Strategy string
}

// Locator runs the marker detector and then its strategies in order,
// stopping at the first that succeeds.
type Locator struct {
	Strategies []Strategy

	// Area band for marker candidates as fractions of the image area.
	MinAreaFrac float64
	MaxAreaFrac float64
}

// NewLocator returns a locator with the default strategy ladder.
func NewLocator() *Locator {
	return &Locator{
		Strategies:  DefaultStrategies(),
		MinAreaFrac: 0.0001,
		MaxAreaFrac: 0.01,
	}
}

// Locate finds the sheet corners. It never fails: when nothing else works
// the full image rectangle is returned.
func (l *Locator) Locate(p *preprocess.Prepared) Result {
	cands := l.detect(p.Gray)
	back := p.ToOriginal()

	for _, s := range l.Strategies {
		q, ok := s.Find(cands)
		if !ok {
			continue
		}
		logging.Logger().Debug("corners located",
			"strategy", s.Name,
			"markers", len(cands.Markers),
			"fiducials", len(cands.Fiducials()))
		return Result{Corners: q.Scale(back), Strategy: s.Name}
	}

	return Result{Corners: geometry.RectQuad(p.OrigWidth, p.OrigHeight), Strategy: StrategyImageBounds}
}

// detect extracts marker candidates with their nesting depth.
func (l *Locator) detect(gray gocv.Mat) Candidates {
	c := Candidates{Width: gray.Cols(), Height: gray.Rows()}
	if gray.Empty() {
		return c
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, 50, 150)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3})
	defer kernel.Close()
	gocv.Dilate(edges, &edges, kernel)

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	contours := gocv.FindContoursWithParams(edges, &hierarchy, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	n := contours.Size()
	if n == 0 || hierarchy.Empty() {
		return c
	}

	tree := make([]node, n)
	for i := 0; i < n; i++ {
		v := hierarchy.GetVeciAt(0, i)
		tree[i] = node{next: int(v[0]), child: int(v[2]), parent: int(v[3])}
	}

	imgArea := float64(c.Width * c.Height)
	for i := 0; i < n; i++ {
		contour := contours.At(i)
		rect := gocv.BoundingRect(contour)
		if rect.Dy() == 0 {
			continue
		}
		area := float64(rect.Dx() * rect.Dy())
		if area < imgArea*l.MinAreaFrac || area > imgArea*l.MaxAreaFrac {
			continue
		}
		aspect := float64(rect.Dx()) / float64(rect.Dy())
		if aspect < 0.7 || aspect > 1.4 {
			continue
		}
		// Skip contours nested inside another accepted square so a fiducial
		// yields one marker, not three.
		if tree[i].parent >= 0 && isSquareAncestor(contours, tree, tree[i].parent, area, imgArea*l.MaxAreaFrac) {
			continue
		}

		c.Markers = append(c.Markers, Marker{
			Center: geometry.Point2D{
				X: float64(rect.Min.X) + float64(rect.Dx())/2,
				Y: float64(rect.Min.Y) + float64(rect.Dy())/2,
			},
			Area:     area,
			Fiducial: nestingDepth(tree, i) >= 2,
		})
	}
	return c
}

// node mirrors one OpenCV hierarchy entry.
type node struct {
	next, child, parent int
}

// nestingDepth returns how many further contour levels sit under i.
func nestingDepth(tree []node, i int) int {
	best := 0
	for ch := tree[i].child; ch >= 0; ch = tree[ch].next {
		if d := 1 + nestingDepth(tree, ch); d > best {
			best = d
		}
	}
	return best
}

// isSquareAncestor reports whether some ancestor of i is itself a marker-sized
// square larger than area.
func isSquareAncestor(contours gocv.PointsVector, tree []node, i int, area, maxArea float64) bool {
	for ; i >= 0; i = tree[i].parent {
		r := gocv.BoundingRect(contours.At(i))
		if r.Dy() == 0 {
			continue
		}
		a := float64(r.Dx() * r.Dy())
		aspect := float64(r.Dx()) / float64(r.Dy())
		if a > area && a <= maxArea && aspect >= 0.7 && aspect <= 1.4 {
			return true
		}
	}
	return false
}
