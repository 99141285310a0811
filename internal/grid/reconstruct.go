package grid

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Pitch bounds in canonical pixels.
const (
	MinPitch = 25.0
	MaxPitch = 120.0
)

// gapTolerance is how far, as a fraction of the pitch, a gap may stray from
// an integer multiple and still be filled by interpolation.
const gapTolerance = 0.25

// EstimatePitch returns the median gap between consecutive Y positions, or
// fallback when there are too few positions or the median is out of range.
func EstimatePitch(ys []float64, fallback float64) float64 {
	if len(ys) < 2 {
		return fallback
	}
	gaps := make([]float64, 0, len(ys)-1)
	for i := 1; i < len(ys); i++ {
		gaps = append(gaps, ys[i]-ys[i-1])
	}
	sort.Float64s(gaps)
	median := stat.Quantile(0.5, stat.Empirical, gaps, nil)
	if median < MinPitch || median > MaxPitch {
		return fallback
	}
	return median
}

// Interpolate walks sorted anchor Ys and fills gaps that are near-integer
// multiples of pitch with evenly spaced rows. Positions closer than half a
// pitch to the previous row are treated as duplicates.
func Interpolate(ys []float64, pitch float64) []float64 {
	if len(ys) == 0 || pitch <= 0 {
		return nil
	}
	rows := []float64{ys[0]}
	for _, y := range ys[1:] {
		prev := rows[len(rows)-1]
		gap := y - prev
		if gap < pitch/2 {
			continue
		}
		k := math.Round(gap / pitch)
		if k >= 2 && math.Abs(gap-k*pitch) <= gapTolerance*pitch {
			step := gap / k
			for j := 1; j < int(k); j++ {
				rows = append(rows, prev+float64(j)*step)
			}
		}
		rows = append(rows, y)
	}
	return rows
}

// Prober reports whether a row at canonical Y has a substantially filled
// option slot.
type Prober func(y float64) bool

// Backfill probes one, then two, pitches above the first row and prepends
// the rows that turn out to be real. A filled probe two pitches up implies
// the row between is real as well, even when that row was left blank.
func Backfill(rows []float64, pitch float64, probe Prober) []float64 {
	if len(rows) == 0 || probe == nil {
		return rows
	}
	first := rows[0]
	up1 := first - pitch
	up2 := first - 2*pitch
	if up1 < 0 {
		return rows
	}

	filled1 := probe(up1)
	filled2 := up2 >= 0 && probe(up2)
	switch {
	case filled2:
		return append([]float64{up2, up1}, rows...)
	case filled1:
		return append([]float64{up1}, rows...)
	}
	return rows
}

// Pad extrapolates trailing rows until there are exactly n, truncating any
// excess.
func Pad(rows []float64, pitch float64, n int) []float64 {
	if len(rows) == 0 || n <= 0 {
		return nil
	}
	out := append([]float64(nil), rows...)
	for len(out) < n {
		out = append(out, out[len(out)-1]+pitch)
	}
	return out[:n]
}

// Reconstruct builds the full row grid for a band holding n items from
// column anchors sorted by Y. With no anchors it returns nil.
func Reconstruct(ys []float64, pitch float64, n int, probe Prober) []float64 {
	if len(ys) == 0 {
		return nil
	}
	rows := Interpolate(ys, pitch)
	if len(rows) < n {
		rows = Backfill(rows, pitch, probe)
	}
	return Pad(rows, pitch, n)
}
