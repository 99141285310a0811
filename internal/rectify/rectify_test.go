package rectify

import (
	"testing"

	"omr-grader/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestTargetSizeKeepsAspect(t *testing.T) {
	q := geometry.Quad{
		TL: geometry.Point2D{X: 10, Y: 10},
		TR: geometry.Point2D{X: 510, Y: 20},
		BR: geometry.Point2D{X: 500, Y: 720},
		BL: geometry.Point2D{X: 0, Y: 710},
	}
	size, ok := TargetSize(q, 1000)
	require.True(t, ok)
	assert.Equal(t, 1000, size.Width)

	top, bottom, left, right := q.EdgeLengths()
	want := 1000 * max(left, right) / max(top, bottom)
	assert.InDelta(t, want, float64(size.Height), 1)

	_, ok = TargetSize(geometry.Quad{}, 1000)
	assert.False(t, ok)
}

func TestWarpOutputSize(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 1400, 1000, gocv.MatTypeCV8U)
	defer src.Close()

	q := geometry.Quad{
		TL: geometry.Point2D{X: 100, Y: 100},
		TR: geometry.Point2D{X: 600, Y: 100},
		BR: geometry.Point2D{X: 600, Y: 800},
		BL: geometry.Point2D{X: 100, Y: 800},
	}
	out, size, err := Warp(src, q, 1000)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, geometry.Size{Width: 1000, Height: 1400}, size)
	assert.Equal(t, 1000, out.Cols())
	assert.Equal(t, 1400, out.Rows())
}

func TestWarpDegenerateQuadUsesImage(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 300, 200, gocv.MatTypeCV8U)
	defer src.Close()

	out, size, err := Warp(src, geometry.Quad{}, 1000)
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, geometry.Size{Width: 1000, Height: 1500}, size)
}
