package grid

import (
	"image"
	"image/color"
	"math"
	"testing"

	"omr-grader/internal/sheet"
	"omr-grader/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func anchorsAt(x float64, ys ...float64) []Anchor {
	out := make([]Anchor, len(ys))
	for i, y := range ys {
		out[i] = Anchor{Center: geometry.Point2D{X: x, Y: y}, Area: 400, Radius: 10}
	}
	return out
}

func TestIsAnchor(t *testing.T) {
	c := sheet.CalibrationFor(50)
	square := Shape{Bounds: image.Rect(40, 300, 60, 320), ContourArea: 390}
	assert.True(t, IsAnchor(square, c))

	header := square
	header.Bounds = image.Rect(40, 20, 60, 40)
	assert.False(t, IsAnchor(header, c), "above MinY")

	bubble := Shape{Bounds: image.Rect(100, 300, 130, 330), ContourArea: math.Pi * 14.5 * 14.5}
	assert.False(t, IsAnchor(bubble, c), "filled circle fails solidity")

	bar := Shape{Bounds: image.Rect(40, 300, 90, 310), ContourArea: 500}
	assert.False(t, IsAnchor(bar, c), "aspect")

	speck := Shape{Bounds: image.Rect(40, 300, 45, 305), ContourArea: 25}
	assert.False(t, IsAnchor(speck, c), "area")
}

func TestAnchorColumn(t *testing.T) {
	anchors := append(anchorsAt(42, 300, 200, 250), anchorsAt(60, 350)...)
	// Filled bubbles further right must not win the column.
	anchors = append(anchors, anchorsAt(140, 200, 250, 300, 350)...)

	col, x := AnchorColumn(anchors)
	require.Len(t, col, 4)
	assert.Equal(t, []float64{200, 250, 300, 350}, []float64{col[0].Center.Y, col[1].Center.Y, col[2].Center.Y, col[3].Center.Y})
	assert.InDelta(t, (42*3+60)/4.0, x, 1e-9)
}

func TestAnchorColumnFallsBackToFullestBin(t *testing.T) {
	anchors := append(anchorsAt(42, 200, 250), anchorsAt(300, 220)...)
	col, _ := AnchorColumn(anchors)
	require.Len(t, col, 2)
	assert.Equal(t, 42.0, col[0].Center.X)
}

func TestEstimatePitch(t *testing.T) {
	assert.InDelta(t, 50, EstimatePitch([]float64{200, 250, 300, 400, 450}, 50), 1e-9)
	assert.InDelta(t, 38, EstimatePitch([]float64{100, 138, 176, 214}, 50), 1e-9)
	assert.Equal(t, 50.0, EstimatePitch([]float64{100, 110, 120, 130}, 50), "below range")
	assert.Equal(t, 50.0, EstimatePitch([]float64{100, 300, 500}, 50), "above range")
	assert.Equal(t, 50.0, EstimatePitch([]float64{100}, 50))
}

// renderBand draws a column of square anchors at the given scale with row
// 5 left blank.
func renderBand(scale int) gocv.Mat {
	band := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 850*scale, 250*scale, gocv.MatTypeCV8U)
	half := 7 * scale
	x := 40 * scale
	for i := 0; i < 12; i++ {
		if i == 5 {
			continue
		}
		y := (300 + i*40) * scale
		gocv.Rectangle(&band, image.Rect(x-half, y-half, x+half, y+half), color.RGBA{A: 255}, -1)
	}
	return band
}

func TestBuildIsScaleEquivariant(t *testing.T) {
	c := sheet.CalibrationFor(20)
	build := func(scale int) Grid {
		band := renderBand(scale)
		defer band.Close()
		bin := Binarize(band, c)
		defer bin.Close()
		return Build(bin, c, 12, nil)
	}

	g1 := build(1)
	g2 := build(2)
	require.Len(t, g1.Rows, 12)
	require.Len(t, g2.Rows, 12)
	assert.Len(t, g1.Anchors, 11)
	assert.Len(t, g2.Anchors, 11)

	assert.InDelta(t, 40, g1.Pitch, 1)
	assert.InDelta(t, 2*g1.Pitch, g2.Pitch, 2)
	assert.InDelta(t, 2*g1.AnchorX, g2.AnchorX, 2)
	for i := range g1.Rows {
		assert.InDelta(t, 2*g1.Rows[i], g2.Rows[i], 3, "row %d", i)
	}

	tpl := sheet.Standard()
	assert.InDelta(t, 2*tpl.PxPerMM(g1.Pitch), tpl.PxPerMM(g2.Pitch), 0.3)
}

func TestAnchorAreaBoundsAreCanonical(t *testing.T) {
	// Area limits are absolute canonical pixels: a square scaled past them
	// is no longer an anchor.
	c := sheet.CalibrationFor(20)
	side := 48
	big := Shape{Bounds: image.Rect(40, 300, 40+side, 300+side), ContourArea: float64((side - 1) * (side - 1))}
	assert.Greater(t, float64(side*side), c.MaxAnchorArea)
	assert.False(t, IsAnchor(big, c))
}

func TestInterpolate(t *testing.T) {
	rows := Interpolate([]float64{200, 250, 400, 452, 455}, 50)
	assert.Equal(t, []float64{200, 250, 300, 350, 400, 452}, rows)

	// An irregular gap is kept without interpolation.
	rows = Interpolate([]float64{200, 275}, 50)
	assert.Equal(t, []float64{200, 275}, rows)
}

func TestBackfill(t *testing.T) {
	rows := []float64{300, 350}

	none := Backfill(rows, 50, func(float64) bool { return false })
	assert.Equal(t, rows, none)

	one := Backfill(rows, 50, func(y float64) bool { return y == 250 })
	assert.Equal(t, []float64{250, 300, 350}, one)

	var checked []float64
	onlyTwoUp := Backfill(rows, 50, func(y float64) bool {
		checked = append(checked, y)
		return y == 200
	})
	assert.Equal(t, []float64{200, 250, 300, 350}, onlyTwoUp, "blank row between is kept")
	assert.Equal(t, []float64{250, 200}, checked, "one pitch up is checked first")

	both := Backfill(rows, 50, func(y float64) bool { return y == 200 || y == 250 })
	assert.Equal(t, []float64{200, 250, 300, 350}, both)

	nearTop := Backfill([]float64{80, 130}, 50, func(float64) bool { return true })
	assert.Equal(t, []float64{30, 80, 130}, nearTop, "two pitches up is above the image")

	top := Backfill([]float64{30}, 50, func(float64) bool { return true })
	assert.Equal(t, []float64{30}, top, "a row above the image is skipped")
}

func TestReconstructLengthAndOrder(t *testing.T) {
	for _, n := range []int{1, 5, 20, 35} {
		rows := Reconstruct([]float64{200, 250, 350}, 50, n, nil)
		require.Len(t, rows, n)
		for i := 1; i < len(rows); i++ {
			assert.Greater(t, rows[i], rows[i-1])
		}
	}
	assert.Empty(t, Reconstruct(nil, 50, 10, nil))
}

func TestFromAnchorsZeroAnchors(t *testing.T) {
	g := FromAnchors(nil, sheet.CalibrationFor(50), 25, nil)
	assert.True(t, g.Empty())
	assert.Equal(t, 50.0, g.Pitch)
}

func TestFromAnchorsBackfillsFilledRows(t *testing.T) {
	c := sheet.CalibrationFor(50)
	var gotX, gotPitch float64
	filled := func(x, pitch float64) Prober {
		gotX, gotPitch = x, pitch
		return func(y float64) bool { return y == 200 }
	}
	g := FromAnchors(anchorsAt(40, 250, 300, 350, 400), c, 6, filled)
	assert.Equal(t, 40.0, gotX)
	assert.Equal(t, 50.0, gotPitch)
	assert.Equal(t, []float64{200, 250, 300, 350, 400, 450}, g.Rows)
}

func TestBuildOnSyntheticBand(t *testing.T) {
	c := sheet.CalibrationFor(20)
	band := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 1400, 500, gocv.MatTypeCV8U)
	defer band.Close()

	black := color.RGBA{A: 255}
	for i := 0; i < 20; i++ {
		if i == 7 {
			continue
		}
		y := 300 + i*50
		gocv.Rectangle(&band, image.Rect(30, y-10, 50, y+10), black, -1)
	}

	bin := Binarize(band, c)
	defer bin.Close()

	g := Build(bin, c, 20, nil)
	require.Len(t, g.Rows, 20)
	assert.InDelta(t, 50, g.Pitch, 2)
	assert.InDelta(t, 40, g.AnchorX, 3)
	assert.InDelta(t, 300, g.Rows[0], 3)
	assert.InDelta(t, 650, g.Rows[7], 3)
}
