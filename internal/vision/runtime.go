// Package vision owns the native OpenCV runtime handle, per-call Mat
// lifetimes and image decoding.
package vision

import (
	"errors"
	"fmt"
	"sync"

	"omr-grader/internal/logging"

	"gocv.io/x/gocv"
)

// ErrRuntime is returned when the native vision runtime is unusable.
var ErrRuntime = errors.New("vision runtime unavailable")

// Runtime is an initialize-once handle to the native vision library.
// It is created by the caller and passed to the engine explicitly; after Init
// succeeds it is read-only and safe to share between goroutines.
type Runtime struct {
	once    sync.Once
	probe   func() (string, error)
	version string
	err     error
}

// NewRuntime returns a handle that probes OpenCV on first Init.
func NewRuntime() *Runtime {
	return &Runtime{probe: probeOpenCV}
}

// NewRuntimeFunc returns a handle whose initialization is performed by probe.
func NewRuntimeFunc(probe func() (string, error)) *Runtime {
	return &Runtime{probe: probe}
}

// Init initializes the runtime. Repeated calls return the first result.
func (r *Runtime) Init() error {
	r.once.Do(func() {
		r.version, r.err = r.probe()
		if r.err != nil {
			r.err = fmt.Errorf("%w: %v", ErrRuntime, r.err)
			return
		}
		logging.Logger().Debug("vision runtime ready", "opencv", r.version)
	})
	return r.err
}

// Version returns the OpenCV version reported during Init.
func (r *Runtime) Version() string {
	return r.version
}

func probeOpenCV() (v string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("opencv probe panicked: %v", rec)
		}
	}()

	m := gocv.NewMatWithSize(1, 1, gocv.MatTypeCV8U)
	defer m.Close()
	if m.Empty() {
		return "", errors.New("cannot allocate probe matrix")
	}
	return gocv.Version(), nil
}
