// Command bubbletrain builds a feature-statistics bubble classifier from a
// dataset exported by omr-grader --export.
//
// Usage: bubbletrain -d <dataset-dir> [-o model.json] [-eval]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"omr-grader/internal/classifier"
	"omr-grader/internal/dataset"
	"omr-grader/internal/mark"
	"omr-grader/internal/vision"
)

func main() {
	dir := flag.String("d", "", "Dataset directory (contains samples.json)")
	out := flag.String("o", "", "Output model path (default: <dataset>/bubble_stats.json)")
	eval := flag.Bool("eval", false, "Report training-set accuracy after fitting")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -d <dataset-dir> [-o model.json] [-eval]\n", os.Args[0])
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(*dir, "bubble_stats.json")
	}

	set, err := dataset.Load(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading dataset: %v\n", err)
		os.Exit(1)
	}
	if set.Count() == 0 {
		fmt.Println("Dataset is empty.")
		os.Exit(0)
	}
	marked, unmarked := set.Counts()
	fmt.Printf("Loaded %d samples (%d marked, %d unmarked)\n", set.Count(), marked, unmarked)

	type labeled struct {
		fv     classifier.FeatureVector
		marked bool
	}
	var samples []labeled
	var pos, neg []classifier.FeatureVector
	skipped := 0
	for _, smp := range set.All() {
		img, err := vision.Load(set.CropPath(smp))
		if err != nil {
			skipped++
			continue
		}
		fv := classifier.Extract(img)
		samples = append(samples, labeled{fv, smp.Marked()})
		if smp.Marked() {
			pos = append(pos, fv)
		} else {
			neg = append(neg, fv)
		}
	}
	if skipped > 0 {
		fmt.Printf("Skipped %d samples with unreadable crops\n", skipped)
	}

	model, err := classifier.Train(pos, neg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error training: %v\n", err)
		os.Exit(1)
	}

	m := model.Model()
	fmt.Printf("\n%-16s %10s %10s\n", "feature", "marked", "unmarked")
	names := []string{"darkness", "contrast", "ink", "center", "edges"}
	for i, name := range names {
		fmt.Printf("%-16s %10.3f %10.3f\n", name, m.Marked.Mean[i], m.Unmarked.Mean[i])
	}

	if *eval {
		correct := 0
		for _, s := range samples {
			v := model.Score(s.fv)
			if (v.Label == mark.LabelMarked) == s.marked {
				correct++
			}
		}
		fmt.Printf("\nTraining accuracy: %d/%d (%.1f%%)\n", correct, len(samples),
			100*float64(correct)/float64(len(samples)))
	}

	if err := model.Save(*out); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving model: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nWrote %s\n", *out)

	// Sanity check that the saved model reloads and classifies.
	reloaded, err := classifier.LoadStats(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reloading model: %v\n", err)
		os.Exit(1)
	}
	img, err := vision.Load(set.CropPath(set.All()[0]))
	if err == nil {
		v, _ := reloaded.Classify(context.Background(), img)
		fmt.Printf("Reload check: %s (p=%.2f)\n", v.Label, v.Probability)
	}
}
