package preprocess

import (
	"testing"

	"omr-grader/internal/vision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestPrepareProfiles(t *testing.T) {
	tests := []struct {
		source Source
		w, h   int
		scale  float64
	}{
		{SourceCamera, 1000, 1400, 2.0},
		{SourceUpload, 1200, 1680, 2.4},
	}

	for _, tt := range tests {
		t.Run(tt.source.String(), func(t *testing.T) {
			arena := vision.NewArena()
			defer arena.Close()

			src := arena.Track(gocv.NewMatWithSizeFromScalar(gocv.NewScalar(180, 0, 0, 0), 700, 500, gocv.MatTypeCV8U))
			p, err := Prepare(arena, src, tt.source)
			require.NoError(t, err)

			assert.Equal(t, tt.w, p.Gray.Cols())
			assert.Equal(t, tt.h, p.Gray.Rows())
			assert.Equal(t, 500, p.OrigWidth)
			assert.Equal(t, 700, p.OrigHeight)
			assert.InDelta(t, tt.scale, p.Scale, 1e-9)
			assert.InDelta(t, 1/tt.scale, p.ToOriginal(), 1e-9)
		})
	}
}

func TestPrepareEmpty(t *testing.T) {
	arena := vision.NewArena()
	defer arena.Close()

	_, err := Prepare(arena, arena.NewMat(), SourceCamera)
	assert.ErrorIs(t, err, vision.ErrEmptyImage)
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("upload")
	require.NoError(t, err)
	assert.Equal(t, SourceUpload, s)

	s, err = ParseSource("")
	require.NoError(t, err)
	assert.Equal(t, SourceCamera, s)

	_, err = ParseSource("fax")
	assert.Error(t, err)
}
