package sheet

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationFallback(t *testing.T) {
	assert.Equal(t, 20, CalibrationFor(20).Items)
	assert.Equal(t, DefaultProfile, CalibrationFor(37).Items)
	assert.Equal(t, DefaultProfile, CalibrationFor(0).Items)
}

func TestBuiltinProfilesValid(t *testing.T) {
	for _, n := range Profiles() {
		assert.NoError(t, CalibrationFor(n).Validate(), "profile %d", n)
	}
}

func TestPxPerMM(t *testing.T) {
	tpl := Standard()
	assert.InDelta(t, 50/7.6, tpl.PxPerMM(50), 1e-9)
	assert.InDelta(t, 2*tpl.PxPerMM(30), tpl.PxPerMM(60), 1e-9)
	assert.Len(t, tpl.Options, 4)
}

func TestLoadCalibrations(t *testing.T) {
	defer unregister(77)

	dir := t.TempDir()
	path := filepath.Join(dir, "cal.json")
	data := `[{"items":77,"min_y":140,"fill_threshold":0.4,"aspect_min":0.8,"aspect_max":1.2,
"block_size":19,"default_pitch":45,"min_anchor_area":50,"max_anchor_area":1500,"min_solidity":0.8}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	n, err := LoadCalibrations(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 19, CalibrationFor(77).BlockSize)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"items":78,"block_size":4}]`), 0o644))
	_, err = LoadCalibrations(bad)
	assert.Error(t, err)
	assert.Equal(t, DefaultProfile, CalibrationFor(78).Items)
}

func unregister(items int) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, items)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	defer func() {
		for n := 200; n < 210; n++ {
			unregister(n)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			Register(base(n, 150, 21))
		}(200 + i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, 20, CalibrationFor(20).Items)
				_ = Profiles()
			}
		}()
	}
	wg.Wait()

	for n := 200; n < 210; n++ {
		assert.Equal(t, n, CalibrationFor(n).Items)
	}
}
