package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"time"

	"omr-grader/internal/mark"

	"gonum.org/v1/gonum/stat"
)

// ClassStats is the per-feature distribution of one label.
type ClassStats struct {
	Count int       `json:"count"`
	Mean  []float64 `json:"mean"`
	Std   []float64 `json:"std"`
}

// StatsModel is the persisted form of a Stats classifier.
type StatsModel struct {
	Marked    ClassStats `json:"marked"`
	Unmarked  ClassStats `json:"unmarked"`
	TrainedAt time.Time  `json:"trained_at"`
}

// Stats scores crops by their normalized distance to the marked and
// unmarked feature distributions. It is read-only after construction.
type Stats struct {
	model StatsModel
}

// Train builds a classifier from labeled feature vectors. Both classes need
// at least one sample.
func Train(marked, unmarked []FeatureVector) (*Stats, error) {
	if len(marked) == 0 || len(unmarked) == 0 {
		return nil, fmt.Errorf("need samples of both classes, got %d marked and %d unmarked", len(marked), len(unmarked))
	}
	return &Stats{model: StatsModel{
		Marked:    computeStats(marked),
		Unmarked:  computeStats(unmarked),
		TrainedAt: time.Now().UTC(),
	}}, nil
}

func computeStats(features []FeatureVector) ClassStats {
	dims := len(FeatureVector{}.Slice())
	cs := ClassStats{Count: len(features), Mean: make([]float64, dims), Std: make([]float64, dims)}
	col := make([]float64, len(features))
	for d := 0; d < dims; d++ {
		for i, fv := range features {
			col[i] = fv.Slice()[d]
		}
		cs.Mean[d] = stat.Mean(col, nil)
		cs.Std[d] = stat.PopStdDev(col, nil)
	}
	return cs
}

// Model returns the trained statistics.
func (s *Stats) Model() StatsModel {
	return s.model
}

// Classify implements mark.Classifier.
func (s *Stats) Classify(ctx context.Context, img image.Image) (mark.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return mark.Verdict{}, err
	}
	if img == nil || img.Bounds().Empty() {
		return mark.Verdict{}, fmt.Errorf("empty crop")
	}
	return s.Score(Extract(img)), nil
}

// Score turns a feature vector into a verdict. Inverse distances to each
// class act as weights; the larger share wins.
func (s *Stats) Score(fv FeatureVector) mark.Verdict {
	pos := distance(fv.Slice(), s.model.Marked)
	neg := distance(fv.Slice(), s.model.Unmarked)

	posWeight := 1.0 / (pos + 0.001)
	negWeight := 1.0 / (neg + 0.001)
	p := posWeight / (posWeight + negWeight)

	if p >= 0.5 {
		return mark.Verdict{Label: mark.LabelMarked, Probability: p}
	}
	return mark.Verdict{Label: mark.LabelUnmarked, Probability: 1 - p}
}

func distance(fv []float64, cs ClassStats) float64 {
	score := 0.0
	for i, v := range fv {
		if i >= len(cs.Mean) {
			break
		}
		score += sqDiff(v, cs.Mean[i], cs.Std[i]+0.01) * featureWeights[i]
	}
	return math.Sqrt(score)
}

// sqDiff computes (a-b)^2 / s^2 with safeguards.
func sqDiff(a, b, s float64) float64 {
	if s < 0.001 {
		s = 0.001
	}
	d := (a - b) / s
	return d * d
}

// Save writes the model as JSON.
func (s *Stats) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(s.model, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize model: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return nil
}

// LoadStats reads a model written by Save.
func LoadStats(path string) (*Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	var m StatsModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	dims := len(FeatureVector{}.Slice())
	if len(m.Marked.Mean) != dims || len(m.Unmarked.Mean) != dims ||
		len(m.Marked.Std) != dims || len(m.Unmarked.Std) != dims {
		return nil, fmt.Errorf("model has wrong feature dimension")
	}
	return &Stats{model: m}, nil
}
