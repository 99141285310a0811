// Package dataset stores labeled bubble crops exported from graded sheets
// for classifier training.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"omr-grader/internal/mark"
	"omr-grader/pkg/geometry"
)

// IndexFile is the sample index written inside an export directory.
const IndexFile = "samples.json"

// Sample is one labeled bubble crop.
type Sample struct {
	ID          string           `json:"id"`
	Crop        string           `json:"crop"` // file name relative to the set directory
	Sheet       string           `json:"sheet,omitempty"`
	Item        int              `json:"item"`
	Option      string           `json:"option"`
	Rect        geometry.RectInt `json:"rect"`
	Fill        float64          `json:"fill"`
	Label       string           `json:"label"`  // mark.LabelMarked or mark.LabelUnmarked
	Source      string           `json:"source"` // "engine" or "manual"
	Probability float64          `json:"probability"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Marked reports whether the sample is labeled marked.
func (s Sample) Marked() bool {
	return s.Label == mark.LabelMarked
}

// Set is a collection of samples persisted as JSON next to their crops.
type Set struct {
	mu      sync.RWMutex
	Samples []Sample `json:"samples"`
	Dir     string   `json:"-"`

	nextID int
}

// NewSet creates an empty set rooted at dir.
func NewSet(dir string) *Set {
	return &Set{Samples: make([]Sample, 0), Dir: dir, nextID: 1}
}

// Load reads the set in dir. A missing index yields an empty set.
func Load(dir string) (*Set, error) {
	s := NewSet(dir)
	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	for _, smp := range s.Samples {
		var id int
		if _, err := fmt.Sscanf(smp.ID, "bs-%d", &id); err == nil && id >= s.nextID {
			s.nextID = id + 1
		}
	}
	return s, nil
}

// Save writes the index file.
func (s *Set) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Dir == "" {
		return fmt.Errorf("no dataset directory set")
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize dataset: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, IndexFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}

// Add assigns an ID to smp, stores it and returns the stored copy.
func (s *Set) Add(smp Sample) Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	smp.ID = fmt.Sprintf("bs-%05d", s.nextID)
	if smp.Timestamp.IsZero() {
		smp.Timestamp = time.Now()
	}
	s.nextID++
	s.Samples = append(s.Samples, smp)
	return smp
}

// Put stores smp, replacing the sample already recorded for the same sheet,
// item and option. The replaced sample keeps its ID, and a manual label
// wins over the incoming one. Samples without a sheet are always added.
// It reports whether a new sample was added.
func (s *Set) Put(smp Sample) (Sample, bool) {
	if smp.Sheet == "" {
		return s.Add(smp), true
	}

	s.mu.Lock()
	for i, old := range s.Samples {
		if old.Sheet != smp.Sheet || old.Item != smp.Item || old.Option != smp.Option {
			continue
		}
		smp.ID = old.ID
		if old.Source == "manual" {
			smp.Label = old.Label
			smp.Source = old.Source
		}
		if smp.Timestamp.IsZero() {
			smp.Timestamp = time.Now()
		}
		s.Samples[i] = smp
		s.mu.Unlock()
		return smp, false
	}
	s.mu.Unlock()
	return s.Add(smp), true
}

// Relabel changes the label of a sample and marks it as manually reviewed.
func (s *Set) Relabel(id, label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Samples {
		if s.Samples[i].ID == id {
			s.Samples[i].Label = label
			s.Samples[i].Source = "manual"
			return true
		}
	}
	return false
}

// Remove deletes a sample by ID.
func (s *Set) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, smp := range s.Samples {
		if smp.ID == id {
			s.Samples = append(s.Samples[:i], s.Samples[i+1:]...)
			return true
		}
	}
	return false
}

// Counts returns the number of marked and unmarked samples.
func (s *Set) Counts() (marked, unmarked int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, smp := range s.Samples {
		if smp.Marked() {
			marked++
		} else {
			unmarked++
		}
	}
	return marked, unmarked
}

// Count returns the total number of samples.
func (s *Set) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Samples)
}

// All returns a copy of the samples.
func (s *Set) All() []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Sample(nil), s.Samples...)
}

// CropPath returns the absolute path of a sample's crop.
func (s *Set) CropPath(smp Sample) string {
	return filepath.Join(s.Dir, smp.Crop)
}
