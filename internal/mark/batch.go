package mark

import (
	"context"
	"image"
	"time"

	"omr-grader/internal/logging"

	"golang.org/x/sync/errgroup"
)

// Failed is the verdict recorded when a classifier call errors or times out.
var Failed = Verdict{Label: LabelUnmarked, Probability: 0}

// BatchOptions bounds a classifier fan-out.
type BatchOptions struct {
	Concurrency int           // max in-flight calls; <= 0 means unlimited
	Timeout     time.Duration // per call; <= 0 means no timeout
}

// ClassifyBatch submits every crop concurrently and waits for all of them.
// Results are index-aligned with crops. A failed or timed-out call yields
// Failed for that crop and never aborts the batch. A nil classifier or nil
// crop yields Failed without a call.
func ClassifyBatch(ctx context.Context, clf Classifier, crops []image.Image, opts BatchOptions) []Verdict {
	out := make([]Verdict, len(crops))
	if clf == nil {
		for i := range out {
			out[i] = Failed
		}
		return out
	}

	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, img := range crops {
		if img == nil {
			out[i] = Failed
			continue
		}
		g.Go(func() error {
			v, err := classifyOne(ctx, clf, img, opts.Timeout)
			if err != nil {
				logging.Logger().Debug("classifier call failed", "index", i, "error", err)
				v = Failed
			}
			out[i] = v
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// classifyOne bounds a single call. The select keeps the deadline even when
// a classifier ignores its context.
func classifyOne(ctx context.Context, clf Classifier, img image.Image, timeout time.Duration) (Verdict, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   Verdict
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: &panicError{r}}
			}
		}()
		v, err := clf.Classify(ctx, img)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && (r.v.Probability < 0 || r.v.Probability > 1) {
			return Failed, errProbabilityRange
		}
		return r.v, r.err
	case <-ctx.Done():
		return Failed, ctx.Err()
	}
}
