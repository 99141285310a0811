package geometry

// Quad holds four sheet corners ordered top-left, top-right, bottom-right,
// bottom-left.
type Quad struct {
	TL Point2D `json:"tl"`
	TR Point2D `json:"tr"`
	BR Point2D `json:"br"`
	BL Point2D `json:"bl"`
}

// RectQuad returns the quad covering a w x h image.
func RectQuad(w, h int) Quad {
	fw, fh := float64(w), float64(h)
	return Quad{
		TL: Point2D{X: 0, Y: 0},
		TR: Point2D{X: fw, Y: 0},
		BR: Point2D{X: fw, Y: fh},
		BL: Point2D{X: 0, Y: fh},
	}
}

// Points returns the corners in TL, TR, BR, BL order.
func (q Quad) Points() []Point2D {
	return []Point2D{q.TL, q.TR, q.BR, q.BL}
}

// Scale returns the quad with every corner multiplied by factor.
func (q Quad) Scale(factor float64) Quad {
	return Quad{
		TL: q.TL.Scale(factor),
		TR: q.TR.Scale(factor),
		BR: q.BR.Scale(factor),
		BL: q.BL.Scale(factor),
	}
}

// Distinct reports whether no two corners are closer than eps.
func (q Quad) Distinct(eps float64) bool {
	pts := q.Points()
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			if pts[i].Distance(pts[j]) < eps {
				return false
			}
		}
	}
	return true
}

// IsConvex reports whether the corners form a strictly convex quadrilateral.
func (q Quad) IsConvex() bool {
	pts := q.Points()
	n := len(pts)
	var sign int
	for i := 0; i < n; i++ {
		cross := crossProduct(pts[i], pts[(i+1)%n], pts[(i+2)%n])
		if cross == 0 {
			return false
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

// EdgeLengths returns the top, bottom, left and right edge lengths.
func (q Quad) EdgeLengths() (top, bottom, left, right float64) {
	return q.TL.Distance(q.TR), q.BL.Distance(q.BR), q.TL.Distance(q.BL), q.TR.Distance(q.BR)
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ExtremeCorners assigns corners from a point cloud: top-left minimizes x+y,
// bottom-right maximizes x+y, top-right maximizes x-y and bottom-left
// minimizes x-y.
func ExtremeCorners(points []Point2D) (Quad, bool) {
	if len(points) < 4 {
		return Quad{}, false
	}
	q := Quad{TL: points[0], TR: points[0], BR: points[0], BL: points[0]}
	for _, p := range points[1:] {
		if p.X+p.Y < q.TL.X+q.TL.Y {
			q.TL = p
		}
		if p.X+p.Y > q.BR.X+q.BR.Y {
			q.BR = p
		}
		if p.X-p.Y > q.TR.X-q.TR.Y {
			q.TR = p
		}
		if p.X-p.Y < q.BL.X-q.BL.Y {
			q.BL = p
		}
	}
	return q, true
}
