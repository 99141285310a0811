package overlay

import (
	"bytes"
	"image/png"
	"testing"

	"omr-grader/internal/grid"
	"omr-grader/internal/mark"
	"omr-grader/internal/router"
	"omr-grader/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestRenderProducesPNG(t *testing.T) {
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 300, 200, gocv.MatTypeCV8U)
	defer gray.Close()

	bands := router.Plan(10, geometry.Size{Width: 200, Height: 300})
	anchors := []grid.Anchor{{Center: geometry.Point2D{X: 20, Y: 100}, Area: 100, Radius: 5}}
	bubbles := []mark.Bubble{
		{Rect: geometry.RectInt{X: 60, Y: 90, Width: 20, Height: 20}, Option: "A", Item: 1, Fill: 0.8, Marked: true},
		{Rect: geometry.RectInt{X: 90, Y: 90, Width: 20, Height: 20}, Option: "B", Item: 1, Fill: 0.1},
	}

	data, err := Render(gray, bands, anchors, bubbles, DefaultOptions())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())

	// The marked bubble is filled green.
	r, g, b, _ := img.At(70, 100).RGBA()
	assert.Equal(t, uint32(0), r>>8)
	assert.Equal(t, uint32(255), g>>8)
	assert.Equal(t, uint32(0), b>>8)
}

func TestRenderEmpty(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	_, err := Render(empty, nil, nil, nil, DefaultOptions())
	assert.Error(t, err)
}
