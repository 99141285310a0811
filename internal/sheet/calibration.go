package sheet

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// DefaultProfile is the item count whose calibration is used when no
// profile matches exactly.
const DefaultProfile = 50

// Calibration holds the detection parameters tuned for one item count.
// Pixel values are in canonical space.
type Calibration struct {
	Items         int     `json:"items"`
	MinY          float64 `json:"min_y"`          // Detections above this line are header text
	FillThreshold float64 `json:"fill_threshold"` // Backfill probe threshold
	AspectMin     float64 `json:"aspect_min"`     // Anchor bounding-box width/height
	AspectMax     float64 `json:"aspect_max"`
	BlockSize     int     `json:"block_size"` // Adaptive threshold window, odd
	DefaultPitch  float64 `json:"default_pitch"`
	MinAnchorArea float64 `json:"min_anchor_area"`
	MaxAnchorArea float64 `json:"max_anchor_area"`
	MinSolidity   float64 `json:"min_solidity"`
}

// Validate checks that the calibration is usable.
func (c Calibration) Validate() error {
	if c.Items <= 0 {
		return fmt.Errorf("calibration items must be positive")
	}
	if c.BlockSize < 3 || c.BlockSize%2 == 0 {
		return fmt.Errorf("block size must be odd and >= 3, got %d", c.BlockSize)
	}
	if c.AspectMin <= 0 || c.AspectMax < c.AspectMin {
		return fmt.Errorf("invalid aspect bounds [%g, %g]", c.AspectMin, c.AspectMax)
	}
	if c.DefaultPitch <= 0 {
		return fmt.Errorf("default pitch must be positive")
	}
	if c.MaxAnchorArea <= c.MinAnchorArea {
		return fmt.Errorf("invalid anchor area bounds [%g, %g]", c.MinAnchorArea, c.MaxAnchorArea)
	}
	return nil
}

func base(items int, minY float64, blockSize int) Calibration {
	return Calibration{
		Items:         items,
		MinY:          minY,
		FillThreshold: 0.45,
		AspectMin:     0.7,
		AspectMax:     1.4,
		BlockSize:     blockSize,
		DefaultPitch:  50,
		MinAnchorArea: 60,
		MaxAnchorArea: 1600,
		MinSolidity:   0.85,
	}
}

// Registry of calibration profiles keyed by item count. Grading reads it
// on every call, so writes take the lock.
var (
	registryMu sync.RWMutex
	registry   = map[int]Calibration{}
)

// Register adds or replaces a calibration profile.
func Register(c Calibration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Items] = c
}

// CalibrationFor returns the profile for items, falling back to the
// 50-item profile.
func CalibrationFor(items int) Calibration {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if c, ok := registry[items]; ok {
		return c
	}
	return registry[DefaultProfile]
}

// Profiles returns the registered item counts in ascending order.
func Profiles() []int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	counts := make([]int, 0, len(registry))
	for n := range registry {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	return counts
}

// LoadCalibrations reads a JSON array of profiles and registers each one.
func LoadCalibrations(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var list []Calibration
	if err := json.Unmarshal(data, &list); err != nil {
		return 0, fmt.Errorf("parse calibrations: %w", err)
	}
	for _, c := range list {
		if err := c.Validate(); err != nil {
			return 0, fmt.Errorf("invalid calibration for %d items: %w", c.Items, err)
		}
	}
	for _, c := range list {
		Register(c)
	}
	return len(list), nil
}

func init() {
	Register(base(10, 260, 31))
	Register(base(20, 240, 31))
	Register(base(30, 200, 25))
	Register(base(40, 180, 25))
	Register(base(50, 160, 21))
	Register(base(60, 150, 21))
	Register(base(100, 120, 15))
}
