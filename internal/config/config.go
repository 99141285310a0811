// Package config loads grading settings from an optional YAML file and
// OMR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"omr-grader/internal/grader"
	"omr-grader/internal/mark"

	"github.com/spf13/viper"
)

// Classifier kinds.
const (
	ClassifierNone  = "none"
	ClassifierStats = "stats"
	ClassifierONNX  = "onnx"
)

// ClassifierConfig selects and configures the learned bubble classifier.
type ClassifierConfig struct {
	Kind        string        `mapstructure:"kind"`
	ModelPath   string        `mapstructure:"model_path"`
	ONNXLibrary string        `mapstructure:"onnx_library"`
	InputName   string        `mapstructure:"input_name"`  // empty: first model input
	OutputName  string        `mapstructure:"output_name"` // empty: first model output
	InputSize   int           `mapstructure:"input_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// ThresholdConfig holds the fusion thresholds.
type ThresholdConfig struct {
	Probability float64 `mapstructure:"probability"`
	Fill        float64 `mapstructure:"fill"`
}

// OCRConfig controls header OCR.
type OCRConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Language string `mapstructure:"language"`
}

// Config is the full settings tree.
type Config struct {
	Classifier   ClassifierConfig `mapstructure:"classifier"`
	Thresholds   ThresholdConfig  `mapstructure:"thresholds"`
	OCR          OCRConfig        `mapstructure:"ocr"`
	Calibrations string           `mapstructure:"calibrations"` // optional JSON file of extra profiles
	MaxItems     int              `mapstructure:"max_items"`
	Debug        bool             `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("classifier.kind", ClassifierNone)
	v.SetDefault("classifier.model_path", "")
	v.SetDefault("classifier.onnx_library", "")
	v.SetDefault("classifier.input_name", "")
	v.SetDefault("classifier.output_name", "")
	v.SetDefault("classifier.input_size", 32)
	v.SetDefault("classifier.timeout", 2*time.Second)
	v.SetDefault("classifier.concurrency", 8)
	v.SetDefault("thresholds.probability", 0.60)
	v.SetDefault("thresholds.fill", 0.45)
	v.SetDefault("ocr.enabled", false)
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("calibrations", "")
	v.SetDefault("max_items", 200)
	v.SetDefault("debug", false)
}

// DefaultPath returns <UserConfigDir>/omr-grader/omr.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "omr-grader", "omr.yaml")
}

// Load reads path, or DefaultPath when path is empty. A missing default
// file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("OMR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Classifier.Kind {
	case ClassifierNone:
	case ClassifierStats, ClassifierONNX:
		if c.Classifier.ModelPath == "" {
			return fmt.Errorf("classifier %q requires model_path", c.Classifier.Kind)
		}
	default:
		return fmt.Errorf("unknown classifier kind %q", c.Classifier.Kind)
	}
	if p := c.Thresholds.Probability; p < 0 || p > 1 {
		return fmt.Errorf("thresholds.probability out of range: %v", p)
	}
	if f := c.Thresholds.Fill; f < 0 || f > 1 {
		return fmt.Errorf("thresholds.fill out of range: %v", f)
	}
	return nil
}

// EngineOptions maps the settings onto grader options.
func (c Config) EngineOptions() grader.Options {
	o := grader.DefaultOptions()
	o.Concurrency = c.Classifier.Concurrency
	o.ClassifierTimeout = c.Classifier.Timeout
	o.Thresholds = mark.Thresholds{Probability: c.Thresholds.Probability, Fill: c.Thresholds.Fill}
	o.MaxItems = c.MaxItems
	o.Debug = c.Debug
	return o
}
