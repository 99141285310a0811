package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "omr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
classifier:
  kind: stats
  model_path: /tmp/bubbles.json
  timeout: 500ms
  concurrency: 4
thresholds:
  fill: 0.5
ocr:
  enabled: true
debug: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ClassifierStats, cfg.Classifier.Kind)
	assert.Equal(t, "/tmp/bubbles.json", cfg.Classifier.ModelPath)
	assert.Equal(t, 500*time.Millisecond, cfg.Classifier.Timeout)
	assert.Equal(t, 0.60, cfg.Thresholds.Probability)
	assert.Equal(t, 0.5, cfg.Thresholds.Fill)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Empty(t, cfg.Classifier.InputName, "tensor names come from the model unless set")
	assert.Empty(t, cfg.Classifier.OutputName)

	opts := cfg.EngineOptions()
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, 500*time.Millisecond, opts.ClassifierTimeout)
	assert.Equal(t, 0.5, opts.Thresholds.Fill)
	assert.True(t, opts.Debug)
	assert.Equal(t, 200, opts.MaxItems)
}

func TestExplicitTensorNames(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
classifier:
  kind: onnx
  model_path: /tmp/bubble.onnx
  input_name: pixels
  output_name: scores
`))
	require.NoError(t, err)
	assert.Equal(t, "pixels", cfg.Classifier.InputName)
	assert.Equal(t, "scores", cfg.Classifier.OutputName)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("OMR_THRESHOLDS_FILL", "0.3")
	cfg, err := Load(writeConfig(t, "debug: false\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Thresholds.Fill)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "classifier:\n  kind: magic\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "classifier:\n  kind: onnx\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "thresholds:\n  probability: 1.5\n"))
	assert.Error(t, err)
}
