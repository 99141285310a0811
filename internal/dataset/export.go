package dataset

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"omr-grader/internal/mark"

	"gocv.io/x/gocv"
)

// CropDir is the subdirectory holding crop PNGs.
const CropDir = "crops"

// Export writes a PNG crop of every bubble from the canonical grayscale
// image and records a sample labeled with the engine's decision. Bubbles
// already recorded for the same sheet are overwritten in place. It returns
// the number of samples added; the index is not saved.
func Export(set *Set, canonical gocv.Mat, bubbles []mark.Bubble, sheet string) (int, error) {
	if canonical.Empty() {
		return 0, fmt.Errorf("empty canonical image")
	}
	dir := filepath.Join(set.Dir, CropDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create crop directory: %w", err)
	}

	added := 0
	for _, b := range bubbles {
		r := b.Rect.Clamp(canonical.Cols(), canonical.Rows())
		if r.Empty() {
			continue
		}
		name := fmt.Sprintf("%s-%03d-%s.png", sheet, b.Item, b.Option)
		if err := writeCrop(canonical, r.Image(), filepath.Join(dir, name)); err != nil {
			return added, err
		}

		label := mark.LabelUnmarked
		if b.Marked {
			label = mark.LabelMarked
		}
		_, isNew := set.Put(Sample{
			Crop:        filepath.Join(CropDir, name),
			Sheet:       sheet,
			Item:        b.Item,
			Option:      b.Option,
			Rect:        r,
			Fill:        b.Fill,
			Label:       label,
			Source:      "engine",
			Probability: b.Probability,
		})
		if isNew {
			added++
		}
	}
	return added, nil
}

func writeCrop(src gocv.Mat, r image.Rectangle, path string) error {
	region := src.Region(r)
	defer region.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, region)
	if err != nil {
		return fmt.Errorf("failed to encode crop: %w", err)
	}
	defer buf.Close()

	if err := os.WriteFile(path, buf.GetBytes(), 0644); err != nil {
		return fmt.Errorf("failed to write crop: %w", err)
	}
	return nil
}
