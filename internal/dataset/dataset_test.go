package dataset

import (
	"os"
	"testing"

	"omr-grader/internal/mark"
	"omr-grader/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestSetLifecycle(t *testing.T) {
	dir := t.TempDir()
	s := NewSet(dir)

	a := s.Add(Sample{Item: 1, Option: "A", Label: mark.LabelMarked})
	b := s.Add(Sample{Item: 1, Option: "B", Label: mark.LabelUnmarked})
	assert.Equal(t, "bs-00001", a.ID)
	assert.Equal(t, "bs-00002", b.ID)
	assert.False(t, a.Timestamp.IsZero())

	marked, unmarked := s.Counts()
	assert.Equal(t, 1, marked)
	assert.Equal(t, 1, unmarked)

	require.True(t, s.Relabel(b.ID, mark.LabelMarked))
	marked, _ = s.Counts()
	assert.Equal(t, 2, marked)
	assert.False(t, s.Relabel("bs-99999", mark.LabelMarked))

	require.NoError(t, s.Save())

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Count())
	assert.Equal(t, "manual", loaded.All()[1].Source)

	c := loaded.Add(Sample{Item: 2, Option: "C"})
	assert.Equal(t, "bs-00003", c.ID)

	assert.True(t, loaded.Remove(a.ID))
	assert.False(t, loaded.Remove(a.ID))
	assert.Equal(t, 2, loaded.Count())
}

func TestLoadMissingIsEmpty(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())
}

func TestSaveWithoutDir(t *testing.T) {
	assert.Error(t, NewSet("").Save())
}

func TestExportWritesCrops(t *testing.T) {
	canonical := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 0, 0, 0), 400, 300, gocv.MatTypeCV8U)
	defer canonical.Close()

	bubbles := []mark.Bubble{
		{Rect: geometry.RectInt{X: 100, Y: 100, Width: 20, Height: 20}, Option: "A", Item: 1, Fill: 0.8, Marked: true},
		{Rect: geometry.RectInt{X: 130, Y: 100, Width: 20, Height: 20}, Option: "B", Item: 1, Fill: 0.1},
		{Rect: geometry.RectInt{X: 900, Y: 900, Width: 20, Height: 20}, Option: "C", Item: 1},
	}

	s := NewSet(t.TempDir())
	n, err := Export(s, canonical, bubbles, "sheet01")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, mark.LabelMarked, all[0].Label)
	assert.Equal(t, mark.LabelUnmarked, all[1].Label)

	_, err = os.Stat(s.CropPath(all[0]))
	assert.NoError(t, err)
}

func TestPutReplacesSameBubble(t *testing.T) {
	s := NewSet(t.TempDir())

	first, added := s.Put(Sample{Sheet: "s1", Item: 3, Option: "B", Label: mark.LabelUnmarked, Fill: 0.1})
	require.True(t, added)

	again, added := s.Put(Sample{Sheet: "s1", Item: 3, Option: "B", Label: mark.LabelMarked, Fill: 0.7})
	assert.False(t, added)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 0.7, s.All()[0].Fill)

	_, added = s.Put(Sample{Sheet: "s2", Item: 3, Option: "B"})
	assert.True(t, added)
	_, added = s.Put(Sample{Item: 3, Option: "B"})
	assert.True(t, added)
	_, added = s.Put(Sample{Item: 3, Option: "B"})
	assert.True(t, added)
	assert.Equal(t, 4, s.Count())
}

func TestReExportKeepsOneSamplePerBubble(t *testing.T) {
	canonical := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 0, 0, 0), 400, 300, gocv.MatTypeCV8U)
	defer canonical.Close()

	bubbles := []mark.Bubble{
		{Rect: geometry.RectInt{X: 100, Y: 100, Width: 20, Height: 20}, Option: "A", Item: 1, Fill: 0.8, Marked: true},
		{Rect: geometry.RectInt{X: 130, Y: 100, Width: 20, Height: 20}, Option: "B", Item: 1, Fill: 0.1},
	}

	s := NewSet(t.TempDir())
	n, err := Export(s, canonical, bubbles, "sheet01")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	b := s.All()[1]
	require.True(t, s.Relabel(b.ID, mark.LabelMarked))

	n, err = Export(s, canonical, bubbles, "sheet01")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, s.Count())

	all := s.All()
	assert.Equal(t, b.ID, all[1].ID)
	assert.Equal(t, mark.LabelMarked, all[1].Label)
	assert.Equal(t, "manual", all[1].Source)
	assert.Equal(t, "engine", all[0].Source)
}
