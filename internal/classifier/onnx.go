package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"omr-grader/internal/logging"
	"omr-grader/internal/mark"

	onnxrt "github.com/yalue/onnxruntime_go"
)

// Environment is an initialize-once handle to the ONNX runtime shared
// library. Create one per process and pass it to NewONNX.
type Environment struct {
	once    sync.Once
	libPath string
	err     error
}

// NewEnvironment returns a handle that loads the library at libPath, or the
// platform default when libPath is empty.
func NewEnvironment(libPath string) *Environment {
	return &Environment{libPath: libPath}
}

// Init loads the runtime. Repeated calls return the first result.
func (e *Environment) Init() error {
	e.once.Do(func() {
		if e.libPath != "" {
			onnxrt.SetSharedLibraryPath(e.libPath)
		}
		if err := onnxrt.InitializeEnvironment(); err != nil {
			e.err = fmt.Errorf("initialize onnxruntime: %w", err)
			return
		}
		logging.Logger().Debug("onnxruntime ready", "lib", e.libPath)
	})
	return e.err
}

// Close tears the runtime down. Sessions must be destroyed first.
func (e *Environment) Close() error {
	if e.err != nil || !onnxrt.IsInitialized() {
		return nil
	}
	return onnxrt.DestroyEnvironment()
}

// ONNXConfig describes a bubble model: a single-channel HxW float input in
// [0,1] and an output of two scores ordered unmarked, marked.
type ONNXConfig struct {
	ModelPath  string
	InputName  string
	OutputName string
	InputSize  int
}

// ONNX runs a learned bubble classifier through onnxruntime.
type ONNX struct {
	cfg     ONNXConfig
	session *onnxrt.DynamicAdvancedSession
}

// NewONNX opens a session for cfg.ModelPath on an initialized environment.
func NewONNX(env *Environment, cfg ONNXConfig) (*ONNX, error) {
	if env == nil {
		return nil, errors.New("nil onnx environment")
	}
	if err := env.Init(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("bubble model not found: %s", cfg.ModelPath)
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = PatchSize
	}
	if cfg.InputName == "" || cfg.OutputName == "" {
		in, out, err := onnxrt.GetInputOutputInfo(cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("inspect model: %w", err)
		}
		if len(in) == 0 || len(out) == 0 {
			return nil, errors.New("model has no inputs or outputs")
		}
		if cfg.InputName == "" {
			cfg.InputName = in[0].Name
		}
		if cfg.OutputName == "" {
			cfg.OutputName = out[0].Name
		}
	}

	session, err := onnxrt.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &ONNX{cfg: cfg, session: session}, nil
}

// Close releases the session.
func (o *ONNX) Close() {
	if o == nil || o.session == nil {
		return
	}
	_ = o.session.Destroy()
	o.session = nil
}

// Classify implements mark.Classifier.
func (o *ONNX) Classify(ctx context.Context, img image.Image) (mark.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return mark.Verdict{}, err
	}
	if o == nil || o.session == nil {
		return mark.Verdict{}, errors.New("onnx session closed")
	}
	if img == nil || img.Bounds().Empty() {
		return mark.Verdict{}, errors.New("empty crop")
	}

	size := o.cfg.InputSize
	data := tensorData(img, size)
	input, err := onnxrt.NewTensor(onnxrt.NewShape(1, 1, int64(size), int64(size)), data)
	if err != nil {
		return mark.Verdict{}, fmt.Errorf("input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	output, err := onnxrt.NewEmptyTensor[float32](onnxrt.NewShape(1, 2))
	if err != nil {
		return mark.Verdict{}, fmt.Errorf("output tensor: %w", err)
	}
	defer func() { _ = output.Destroy() }()

	if err := o.session.Run([]onnxrt.Value{input}, []onnxrt.Value{output}); err != nil {
		return mark.Verdict{}, fmt.Errorf("run model: %w", err)
	}
	return verdictFromScores(output.GetData())
}

// tensorData resamples img to size x size and flattens intensities.
func tensorData(img image.Image, size int) []float32 {
	px := grayscaleAt(img, size)
	data := make([]float32, 0, size*size)
	for _, row := range px {
		for _, v := range row {
			data = append(data, float32(v))
		}
	}
	return data
}

// verdictFromScores maps [unmarked, marked] scores to a verdict. Scores that
// do not already sum to one are treated as logits.
func verdictFromScores(scores []float32) (mark.Verdict, error) {
	if len(scores) < 2 {
		return mark.Verdict{}, fmt.Errorf("expected 2 scores, got %d", len(scores))
	}
	u, m := float64(scores[0]), float64(scores[1])
	if math.Abs(u+m-1) > 1e-3 || u < 0 || m < 0 {
		mx := math.Max(u, m)
		eu, em := math.Exp(u-mx), math.Exp(m-mx)
		u, m = eu/(eu+em), em/(eu+em)
	}
	if m >= u {
		return mark.Verdict{Label: mark.LabelMarked, Probability: m}, nil
	}
	return mark.Verdict{Label: mark.LabelUnmarked, Probability: u}, nil
}
