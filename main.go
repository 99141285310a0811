// Package main provides the omr-grader command: grade a bubble-sheet image
// and print the answers as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"omr-grader/internal/classifier"
	"omr-grader/internal/config"
	"omr-grader/internal/dataset"
	"omr-grader/internal/grader"
	"omr-grader/internal/logging"
	"omr-grader/internal/mark"
	"omr-grader/internal/ocr"
	"omr-grader/internal/preprocess"
	"omr-grader/internal/sheet"
	"omr-grader/internal/version"
	"omr-grader/internal/vision"

	"github.com/alexflint/go-arg"
)

type cliArgs struct {
	Image   string `arg:"positional,required" help:"answer sheet image"`
	Items   int    `arg:"-n,required" help:"number of items on the sheet"`
	Source  string `arg:"-s" default:"camera" help:"camera or upload"`
	Config  string `arg:"-c" help:"config file (default: user config dir)"`
	Overlay string `arg:"-o" help:"write the annotated canonical image to this PNG"`
	Nudge   string `help:"re-grade with sampling shifted by dx,dy"`
	Export  string `help:"append bubble crops to the dataset in this directory"`
	Verbose bool   `arg:"-v" help:"debug logging"`
}

func (cliArgs) Version() string { return version.String() }

func (cliArgs) Description() string {
	return "Grades a bubble-sheet answer form and prints one answer per item as JSON."
}

var args cliArgs

// output is what gets printed.
type output struct {
	Answers    []string `json:"answers"`
	Confidence float64  `json:"confidence"`
	Strategy   string   `json:"strategy,omitempty"`
	Header     string   `json:"header,omitempty"`
	Nudge      []int    `json:"nudge,omitempty"`
}

func main() {
	p := arg.MustParse(&args)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	logging.Setup(os.Stderr, args.Verbose)

	if err := checkImagePath(args.Image); err != nil {
		p.Fail(err.Error())
	}
	source, err := preprocess.ParseSource(args.Source)
	if err != nil {
		p.Fail(err.Error())
	}
	var dx, dy int
	if args.Nudge != "" {
		if dx, dy, err = parseOffset(args.Nudge); err != nil {
			p.Fail(err.Error())
		}
	}

	cfg, err := config.Load(args.Config)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Calibrations != "" {
		n, err := sheet.LoadCalibrations(cfg.Calibrations)
		if err != nil {
			log.Fatalf("calibrations: %v", err)
		}
		logging.Logger().Debug("loaded calibrations", "count", n)
	}

	clf, closeClf, err := buildClassifier(cfg.Classifier)
	if err != nil {
		log.Fatalf("classifier: %v", err)
	}
	defer closeClf()

	var extra []grader.Option
	if cfg.OCR.Enabled {
		hr, err := ocr.NewHeaderReader(cfg.OCR.Language)
		if err != nil {
			log.Fatalf("ocr: %v", err)
		}
		defer hr.Close()
		extra = append(extra, grader.WithHeaderReader(hr))
	}

	rt := vision.NewRuntime()
	logging.Logger().Debug("starting", "version", version.String())
	engine := grader.New(rt, clf, cfg.EngineOptions(), extra...)

	data, err := os.ReadFile(args.Image)
	if err != nil {
		log.Fatalf("read image: %v", err)
	}

	wantDebug := args.Overlay != "" || args.Export != ""
	ctx := context.Background()
	res, canonical, err := engine.Grade(ctx, grader.Input{
		Encoded: data,
		Source:  source,
		Items:   args.Items,
		Debug:   wantDebug,
	})
	if err != nil {
		log.Fatalf("grade: %v", err)
	}
	defer canonical.Close()

	if args.Nudge != "" {
		if res, err = engine.Nudge(ctx, canonical, dx, dy); err != nil {
			log.Fatalf("nudge: %v", err)
		}
	}

	if args.Overlay != "" && res.Debug != nil {
		if err := os.WriteFile(args.Overlay, res.Debug.Snapshot, 0644); err != nil {
			log.Fatalf("write overlay: %v", err)
		}
	}

	if args.Export != "" && res.Debug != nil {
		if err := export(args.Export, canonical, res.Debug.Bubbles); err != nil {
			log.Fatalf("export: %v", err)
		}
	}

	out := output{
		Answers:    res.Answers,
		Confidence: res.Confidence,
		Strategy:   canonical.Strategy,
		Header:     canonical.HeaderText,
	}
	if args.Nudge != "" {
		out.Nudge = []int{dx, dy}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

// checkImagePath rejects files whose extension no registered decoder handles.
func checkImagePath(path string) error {
	if !vision.IsSupportedFormat(path) {
		return fmt.Errorf("unsupported image format %q (supported: %s)",
			filepath.Ext(path), strings.Join(vision.SupportedFormats(), ", "))
	}
	return nil
}

func parseOffset(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("nudge must be dx,dy, got %q", s)
	}
	dx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid dx: %w", err)
	}
	dy, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid dy: %w", err)
	}
	return dx, dy, nil
}

// buildClassifier opens the configured classifier. The returned func
// releases it.
func buildClassifier(cc config.ClassifierConfig) (mark.Classifier, func(), error) {
	switch cc.Kind {
	case config.ClassifierStats:
		s, err := classifier.LoadStats(cc.ModelPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case config.ClassifierONNX:
		env := classifier.NewEnvironment(cc.ONNXLibrary)
		o, err := classifier.NewONNX(env, classifier.ONNXConfig{
			ModelPath:  cc.ModelPath,
			InputName:  cc.InputName,
			OutputName: cc.OutputName,
			InputSize:  cc.InputSize,
		})
		if err != nil {
			return nil, nil, err
		}
		return o, func() {
			o.Close()
			if err := env.Close(); err != nil {
				log.Printf("onnxruntime shutdown: %v", err)
			}
		}, nil

	default:
		return nil, func() {}, nil
	}
}

func export(dir string, c *grader.Canonical, bubbles []mark.Bubble) error {
	set, err := dataset.Load(dir)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(args.Image), filepath.Ext(args.Image))
	n, err := dataset.Export(set, c.Gray, bubbles, name)
	if err != nil {
		return err
	}
	if err := set.Save(); err != nil {
		return err
	}
	marked, unmarked := set.Counts()
	log.Printf("exported %d new samples to %s (%d marked, %d unmarked total)", n, dir, marked, unmarked)
	return nil
}
