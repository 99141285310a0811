// Package router splits the canonical sheet into vertical bands by item
// count and merges per-band answers back into item order.
package router

import "omr-grader/pkg/geometry"

// Seam overlaps in canonical pixels.
const (
	TwoBandOverlap   = 50
	ThreeBandOverlap = 40

	// FirstBandItems is the size of each leading band in the three-band layout.
	FirstBandItems = 20
)

// Band is one vertical slice of the canonical image.
type Band struct {
	Index     int              `json:"index"`
	FirstItem int              `json:"first_item"` // 1-based global item number of the band's first row
	Items     int              `json:"items"`
	Rect      geometry.RectInt `json:"rect"`
}

// Counts returns how many items each band holds for n items.
func Counts(n int) []int {
	switch {
	case n <= 0:
		return nil
	case n <= 20:
		return []int{n}
	case n <= 50:
		first := (n + 1) / 2
		return []int{first, n - first}
	default:
		return []int{FirstBandItems, FirstBandItems, n - 2*FirstBandItems}
	}
}

// Plan lays out the bands for n items over a canonical image of the given
// size. Columns are equal-width slices; each seam is widened by the overlap,
// centered on the seam, and clamped to the image.
func Plan(n int, size geometry.Size) []Band {
	counts := Counts(n)
	if len(counts) == 0 || size.Width <= 0 || size.Height <= 0 {
		return nil
	}

	overlap := 0
	switch len(counts) {
	case 2:
		overlap = TwoBandOverlap
	case 3:
		overlap = ThreeBandOverlap
	}

	k := len(counts)
	bands := make([]Band, k)
	first := 1
	for i, items := range counts {
		x0 := size.Width * i / k
		x1 := size.Width * (i + 1) / k
		if i > 0 {
			x0 -= overlap / 2
		}
		if i < k-1 {
			x1 += overlap - overlap/2
		}
		r := geometry.RectInt{X: x0, Y: 0, Width: x1 - x0, Height: size.Height}.Clamp(size.Width, size.Height)
		bands[i] = Band{Index: i, FirstItem: first, Items: items, Rect: r}
		first += items
	}
	return bands
}

// Merge concatenates band answers in band order and pads or truncates the
// result to exactly n entries.
func Merge(parts [][]string, n int) []string {
	if n < 0 {
		n = 0
	}
	out := make([]string, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	if len(out) > n {
		return out[:n]
	}
	for len(out) < n {
		out = append(out, "")
	}
	return out
}
