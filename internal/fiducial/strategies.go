package fiducial

import "omr-grader/pkg/geometry"

// Strategy names reported in results and debug payloads.
const (
	StrategyFiducials   = "fiducials"
	StrategyMarkers     = "markers"
	StrategyImageBounds = "image-bounds"
)

// minCornerSeparation is the smallest allowed distance between two corners,
// in prepared pixels.
const minCornerSeparation = 20.0

// DefaultStrategies returns the ladder tried by NewLocator: nested
// fiducials first, then any square marker, then the image itself.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyFiducials, Find: fromFiducials},
		{Name: StrategyMarkers, Find: fromMarkers},
		{Name: StrategyImageBounds, Find: fromBounds},
	}
}

func fromFiducials(c Candidates) (geometry.Quad, bool) {
	return extremes(c.Fiducials())
}

func fromMarkers(c Candidates) (geometry.Quad, bool) {
	return extremes(c.Markers)
}

func fromBounds(c Candidates) (geometry.Quad, bool) {
	if c.Width <= 0 || c.Height <= 0 {
		return geometry.Quad{}, false
	}
	return geometry.RectQuad(c.Width, c.Height), true
}

func extremes(markers []Marker) (geometry.Quad, bool) {
	if len(markers) < 4 {
		return geometry.Quad{}, false
	}
	pts := make([]geometry.Point2D, len(markers))
	for i, m := range markers {
		pts[i] = m.Center
	}
	q, ok := geometry.ExtremeCorners(pts)
	if !ok || !q.Distinct(minCornerSeparation) || !q.IsConvex() {
		return geometry.Quad{}, false
	}
	return q, true
}
