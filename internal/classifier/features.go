// Package classifier provides learned bubble classifiers: a feature
// statistics model trained from exported samples, and an ONNX model runner.
package classifier

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"
)

// PatchSize is the side length crops are resampled to before feature
// extraction, so features do not depend on scan resolution.
const PatchSize = 32

// FeatureVector holds the features extracted from one bubble crop.
type FeatureVector struct {
	Darkness       float64 `json:"darkness"`        // 1 - mean intensity
	Contrast       float64 `json:"contrast"`        // intensity standard deviation
	InkFraction    float64 `json:"ink_fraction"`    // share of pixels darker than mid-gray
	CenterDarkness float64 `json:"center_darkness"` // darkness of the central half
	EdgeDensity    float64 `json:"edge_density"`    // share of strong gradient pixels
}

// Slice returns the features in a fixed order.
func (f FeatureVector) Slice() []float64 {
	return []float64{f.Darkness, f.Contrast, f.InkFraction, f.CenterDarkness, f.EdgeDensity}
}

// featureWeights scales each feature's contribution to the distance. Center
// darkness is what separates a filled bubble from a printed ring.
var featureWeights = []float64{1.0, 0.5, 1.0, 2.0, 0.5}

// Grayscale resamples img to PatchSize and returns intensities in [0,1].
func Grayscale(img image.Image) [][]float64 {
	return grayscaleAt(img, PatchSize)
}

func grayscaleAt(img image.Image, size int) [][]float64 {
	patch := imaging.Resize(img, size, size, imaging.Linear)
	out := make([][]float64, size)
	for y := 0; y < size; y++ {
		out[y] = make([]float64, size)
		for x := 0; x < size; x++ {
			g := color.GrayModel.Convert(patch.NRGBAAt(x, y)).(color.Gray)
			out[y][x] = float64(g.Y) / 255
		}
	}
	return out
}

// Extract computes the feature vector of a crop.
func Extract(img image.Image) FeatureVector {
	px := Grayscale(img)
	n := len(px)

	all := make([]float64, 0, n*n)
	var center []float64
	ink := 0
	for y, row := range px {
		for x, v := range row {
			all = append(all, v)
			if v < 0.5 {
				ink++
			}
			if x >= n/4 && x < 3*n/4 && y >= n/4 && y < 3*n/4 {
				center = append(center, v)
			}
		}
	}

	mean, std := stat.MeanStdDev(all, nil)
	if math.IsNaN(std) {
		std = 0
	}

	edges := 0
	for y := 1; y < n-1; y++ {
		for x := 1; x < n-1; x++ {
			gx := px[y-1][x+1] + 2*px[y][x+1] + px[y+1][x+1] - px[y-1][x-1] - 2*px[y][x-1] - px[y+1][x-1]
			gy := px[y+1][x-1] + 2*px[y+1][x] + px[y+1][x+1] - px[y-1][x-1] - 2*px[y-1][x] - px[y-1][x+1]
			if math.Hypot(gx, gy) > 0.6 {
				edges++
			}
		}
	}

	return FeatureVector{
		Darkness:       1 - mean,
		Contrast:       std,
		InkFraction:    float64(ink) / float64(len(all)),
		CenterDarkness: 1 - stat.Mean(center, nil),
		EdgeDensity:    float64(edges) / float64((n-2)*(n-2)),
	}
}
