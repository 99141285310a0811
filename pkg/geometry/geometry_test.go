package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtremeCorners(t *testing.T) {
	pts := []Point2D{
		{X: 52, Y: 40}, {X: 948, Y: 60}, {X: 930, Y: 1380}, {X: 70, Y: 1360},
		{X: 500, Y: 700},
	}
	q, ok := ExtremeCorners(pts)
	require.True(t, ok)
	assert.Equal(t, Point2D{X: 52, Y: 40}, q.TL)
	assert.Equal(t, Point2D{X: 948, Y: 60}, q.TR)
	assert.Equal(t, Point2D{X: 930, Y: 1380}, q.BR)
	assert.Equal(t, Point2D{X: 70, Y: 1360}, q.BL)
	assert.True(t, q.IsConvex())
	assert.True(t, q.Distinct(1))

	_, ok = ExtremeCorners(pts[:3])
	assert.False(t, ok)
}

func TestQuadConvexity(t *testing.T) {
	assert.True(t, RectQuad(100, 50).IsConvex())

	bowtie := Quad{
		TL: Point2D{X: 0, Y: 0},
		TR: Point2D{X: 100, Y: 100},
		BR: Point2D{X: 100, Y: 0},
		BL: Point2D{X: 0, Y: 100},
	}
	assert.False(t, bowtie.IsConvex())

	collapsed := Quad{TL: Point2D{X: 5, Y: 5}, TR: Point2D{X: 5, Y: 5}, BR: Point2D{X: 10, Y: 10}, BL: Point2D{X: 0, Y: 10}}
	assert.False(t, collapsed.Distinct(1))
}

func TestSolveHomographyMapsCorners(t *testing.T) {
	src := Quad{
		TL: Point2D{X: 12, Y: 30},
		TR: Point2D{X: 610, Y: 18},
		BR: Point2D{X: 640, Y: 880},
		BL: Point2D{X: 5, Y: 860},
	}
	dst := RectQuad(1000, 1414)

	h, err := SolveHomography(src, dst)
	require.NoError(t, err)

	for i, p := range src.Points() {
		got := h.Apply(p)
		want := dst.Points()[i]
		assert.InDelta(t, want.X, got.X, 1e-6)
		assert.InDelta(t, want.Y, got.Y, 1e-6)
	}
}

func TestRectIntClamp(t *testing.T) {
	r := RectInt{X: -5, Y: 90, Width: 20, Height: 20}
	c := r.Clamp(100, 100)
	assert.Equal(t, RectInt{X: 0, Y: 90, Width: 15, Height: 10}, c)

	outside := RectInt{X: 200, Y: 200, Width: 10, Height: 10}.Clamp(100, 100)
	assert.True(t, outside.Empty())

	assert.Equal(t, RectInt{X: 15, Y: 25, Width: 10, Height: 10}, RectAround(Point2D{X: 20, Y: 30}, 5))
}
