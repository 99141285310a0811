// Package grader is the entry point of the grading pipeline: it turns a
// photographed or scanned answer sheet into one answer per item.
package grader

import (
	"context"
	"errors"
	"fmt"
	"image"

	"omr-grader/internal/bubble"
	"omr-grader/internal/fiducial"
	"omr-grader/internal/grid"
	"omr-grader/internal/logging"
	"omr-grader/internal/mark"
	"omr-grader/internal/overlay"
	"omr-grader/internal/preprocess"
	"omr-grader/internal/rectify"
	"omr-grader/internal/router"
	"omr-grader/internal/sheet"
	"omr-grader/internal/vision"
	"omr-grader/pkg/geometry"

	"gocv.io/x/gocv"
)

// CornerLocator finds the sheet quadrilateral in original image space.
type CornerLocator interface {
	Locate(p *preprocess.Prepared) fiducial.Result
}

// HeaderReader reads printed text from a region of the canonical image.
type HeaderReader interface {
	ReadHeader(gray gocv.Mat, bounds geometry.RectInt) (string, error)
}

// Input is one grading request. Either Encoded or Image must be set.
type Input struct {
	Encoded []byte
	Image   image.Image
	Source  preprocess.Source
	Items   int
	Offset  geometry.PointInt // applied to every sampling rectangle
	Debug   bool
}

// ColumnResult is the outcome of one band.
type ColumnResult struct {
	Band    router.Band   `json:"band"`
	Answers []string      `json:"answers"`
	Bubbles []mark.Bubble `json:"bubbles"`
	Anchors []grid.Anchor `json:"anchors"` // canonical coordinates
	Grid    grid.Grid     `json:"grid"`    // band-local coordinates
}

// Debug is the optional visualization and export payload.
type Debug struct {
	Corners    geometry.Quad  `json:"corners"` // original image space
	Strategy   string         `json:"strategy"`
	Bands      []router.Band  `json:"bands"`
	Columns    []ColumnResult `json:"columns"`
	Anchors    []grid.Anchor  `json:"anchors"`
	Bubbles    []mark.Bubble  `json:"bubbles"`
	Snapshot   []byte         `json:"snapshot,omitempty"` // PNG of the annotated canonical image
	HeaderText string         `json:"header_text,omitempty"`
}

// Result holds exactly one answer per requested item.
type Result struct {
	Answers    []string `json:"answers"`
	Confidence float64  `json:"confidence"`
	Debug      *Debug   `json:"debug,omitempty"`
}

// Engine grades sheets. It is safe for concurrent use if its classifier is.
type Engine struct {
	rt         *vision.Runtime
	classifier mark.Classifier
	locator    CornerLocator
	header     HeaderReader
	opts       Options
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLocator replaces the default fiducial locator.
func WithLocator(l CornerLocator) Option {
	return func(e *Engine) { e.locator = l }
}

// WithHeaderReader enables header OCR.
func WithHeaderReader(h HeaderReader) Option {
	return func(e *Engine) { e.header = h }
}

// New creates an engine. A nil classifier grades on fill ratio alone.
func New(rt *vision.Runtime, clf mark.Classifier, opts Options, extra ...Option) *Engine {
	e := &Engine{
		rt:         rt,
		classifier: clf,
		locator:    fiducial.NewLocator(),
		opts:       opts.normalized(),
	}
	for _, o := range extra {
		o(e)
	}
	return e
}

// Grade runs the full pipeline. The returned Canonical caches the
// rectified sheet for Nudge and must be closed by the caller.
func (e *Engine) Grade(ctx context.Context, in Input) (*Result, *Canonical, error) {
	const op = "grade"

	if in.Items < 1 {
		return nil, nil, processing(op, fmt.Errorf("item count must be positive, got %d", in.Items))
	}
	if e.opts.MaxItems > 0 && in.Items > e.opts.MaxItems {
		return nil, nil, processing(op, fmt.Errorf("item count %d exceeds limit %d", in.Items, e.opts.MaxItems))
	}
	if e.rt == nil {
		return nil, nil, processing(op, vision.ErrRuntime)
	}
	if err := e.rt.Init(); err != nil {
		return nil, nil, processing(op, err)
	}

	img := in.Image
	if img == nil {
		var err error
		if img, err = vision.Decode(in.Encoded); err != nil {
			return nil, nil, unreadable(op, err)
		}
	}

	arena := vision.NewArena()
	defer arena.Close()

	gray, err := vision.ToGray(arena, img)
	if err != nil {
		return nil, nil, unreadable(op, err)
	}

	prepared, err := preprocess.Prepare(arena, gray, in.Source)
	if err != nil {
		return nil, nil, processing(op, err)
	}

	corners := e.locator.Locate(prepared)
	logging.Logger().Debug("corners located",
		"strategy", corners.Strategy,
		"tl", corners.Corners.TL, "br", corners.Corners.BR)

	warped, size, err := rectify.Warp(gray, corners.Corners, e.opts.Width)
	if err != nil {
		return nil, nil, processing(op, err)
	}

	c := &Canonical{
		Gray:     warped,
		Size:     size,
		Items:    in.Items,
		Corners:  corners.Corners,
		Strategy: corners.Strategy,
		calib:    sheet.CalibrationFor(in.Items),
		debug:    in.Debug || e.opts.Debug,
	}
	c.bands = e.buildBands(c)

	if e.header != nil {
		if text, err := e.header.ReadHeader(c.Gray, c.HeaderBounds()); err != nil {
			logging.Logger().Debug("header OCR failed", "error", err)
		} else {
			c.HeaderText = text
		}
	}

	res, err := e.evaluate(ctx, c, in.Offset.X, in.Offset.Y)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	return res, c, nil
}

// buildBands binarizes each band and reconstructs its row grid.
func (e *Engine) buildBands(c *Canonical) []bandState {
	plan := router.Plan(c.Items, c.Size)
	states := make([]bandState, 0, len(plan))
	for _, b := range plan {
		region := c.Gray.Region(b.Rect.Image())
		gray := region.Clone()
		region.Close()

		bin := grid.Binarize(gray, c.calib)
		g := grid.Build(bin, c.calib, b.Items, e.rowProbe(bin, c.calib))
		logging.Logger().Debug("band grid",
			"band", b.Index,
			"items", b.Items,
			"anchors", len(g.Anchors),
			"pitch", g.Pitch,
			"rows", len(g.Rows))

		states = append(states, bandState{Band: b, Gray: gray, Bin: bin, Grid: g})
	}
	return states
}

// rowProbe reports a row at y as filled when any of its options exceeds the
// calibration fill threshold.
func (e *Engine) rowProbe(bin gocv.Mat, calib sheet.Calibration) grid.ProbeFactory {
	return func(anchorX, pitch float64) grid.Prober {
		s := bubble.NewSampler(e.opts.Template, anchorX, pitch).WithBounds(bin.Cols(), bin.Rows())
		return func(y float64) bool {
			for _, slot := range s.Row(0, y) {
				if mark.FillRatio(bin, slot.Rect) >= calib.FillThreshold {
					return true
				}
			}
			return false
		}
	}
}

// evaluate samples and classifies every band of c with the given offset.
// It only reads c.
func (e *Engine) evaluate(ctx context.Context, c *Canonical, dx, dy int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, processing("evaluate", err)
	}

	parts := make([][]string, len(c.bands))
	certainty := make([]float64, 0, c.Items)
	columns := make([]ColumnResult, len(c.bands))
	for i := range c.bands {
		col, cert := e.column(ctx, &c.bands[i], dx, dy)
		parts[i] = col.Answers
		certainty = append(certainty, cert...)
		columns[i] = col
	}

	res := &Result{
		Answers:    router.Merge(parts, c.Items),
		Confidence: confidence(certainty, c.Items),
	}
	if c.debug {
		res.Debug = e.debugPayload(c, columns)
	}
	return res, nil
}

// column grades one band. It returns the band result and one certainty per
// answer.
func (e *Engine) column(ctx context.Context, b *bandState, dx, dy int) (ColumnResult, []float64) {
	col := ColumnResult{Band: b.Band, Grid: b.Grid}
	for _, a := range b.Grid.Anchors {
		a.Center = a.Center.Add(geometry.Point2D{X: float64(b.Band.Rect.X), Y: float64(b.Band.Rect.Y)})
		col.Anchors = append(col.Anchors, a)
	}

	if b.Grid.Empty() {
		col.Answers = make([]string, b.Band.Items)
		return col, make([]float64, b.Band.Items)
	}

	tpl := e.opts.Template
	s := bubble.NewSampler(tpl, b.Grid.AnchorX, b.Grid.Pitch).
		WithOffset(dx, dy).
		WithBounds(b.Gray.Cols(), b.Gray.Rows())
	slots := s.Grid(b.Grid.Rows)

	crops := make([]image.Image, len(slots))
	for i, slot := range slots {
		crop, err := vision.Crop(b.Gray, slot.Rect.Image())
		if err != nil {
			continue
		}
		crops[i] = crop
	}
	verdicts := mark.ClassifyBatch(ctx, e.classifier, crops, mark.BatchOptions{
		Concurrency: e.opts.Concurrency,
		Timeout:     e.opts.ClassifierTimeout,
	})

	col.Bubbles = make([]mark.Bubble, len(slots))
	for i, slot := range slots {
		fill := mark.FillRatio(b.Bin, slot.Rect)
		v := verdicts[i]
		col.Bubbles[i] = mark.Bubble{
			Rect:        slot.Rect.Translate(b.Band.Rect.X, b.Band.Rect.Y),
			Option:      tpl.Options[slot.Option],
			Item:        b.Band.FirstItem + slot.Row,
			Fill:        fill,
			Label:       v.Label,
			Probability: v.Probability,
			Marked:      mark.Decide(fill, v, e.opts.Thresholds),
			BandOffset:  b.Band.Rect.X,
		}
	}

	k := len(tpl.Options)
	certainty := make([]float64, 0, len(b.Grid.Rows))
	for r := range b.Grid.Rows {
		row := col.Bubbles[r*k : (r+1)*k]
		answer := mark.ResolveRow(row)
		col.Answers = append(col.Answers, answer)
		certainty = append(certainty, mark.RowCertainty(row, answer))
	}
	return col, certainty
}

// confidence averages per-item certainty over n items; missing items count
// as zero.
func confidence(certainty []float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	sum := 0.0
	for i, c := range certainty {
		if i >= n {
			break
		}
		sum += c
	}
	return sum / float64(n)
}

func (e *Engine) debugPayload(c *Canonical, columns []ColumnResult) *Debug {
	d := &Debug{
		Corners:    c.Corners,
		Strategy:   c.Strategy,
		Columns:    columns,
		HeaderText: c.HeaderText,
	}
	for _, col := range columns {
		d.Bands = append(d.Bands, col.Band)
		d.Anchors = append(d.Anchors, col.Anchors...)
		d.Bubbles = append(d.Bubbles, col.Bubbles...)
	}

	snap, err := overlay.Render(c.Gray, d.Bands, d.Anchors, d.Bubbles, e.opts.Overlay)
	if err != nil {
		logging.Logger().Debug("overlay failed", "error", err)
	} else {
		d.Snapshot = snap
	}
	return d
}

// Nudge re-samples and re-classifies a cached canonical sheet with every
// sampling rectangle shifted by (dx, dy). It never repeats preprocessing,
// corner location or rectification, and does not modify c. Offsets are
// absolute, not cumulative.
func (e *Engine) Nudge(ctx context.Context, c *Canonical, dx, dy int) (*Result, error) {
	if c == nil || c.closed || c.Gray.Empty() {
		return nil, processing("nudge", errors.New("no cached canonical image"))
	}
	return e.evaluate(ctx, c, dx, dy)
}
