// Command sheettest runs the grading pipeline on one image and prints the
// intermediate geometry: corner strategy, band layout, anchors, pitch and
// reconstructed rows.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"omr-grader/internal/grader"
	"omr-grader/internal/logging"
	"omr-grader/internal/preprocess"
	"omr-grader/internal/vision"
)

func main() {
	path := flag.String("i", "", "Path to answer sheet image")
	items := flag.Int("n", 50, "Number of items")
	source := flag.String("s", "camera", "Source type: camera or upload")
	overlay := flag.String("overlay", "", "Write annotated canonical image to this PNG")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if *path == "" {
		fmt.Println("Usage: sheettest -i <image> [-n items] [-s camera|upload] [-overlay out.png] [-v]")
		os.Exit(1)
	}
	logging.Setup(os.Stderr, *verbose)

	if !vision.IsSupportedFormat(*path) {
		fmt.Fprintf(os.Stderr, "Unsupported image format %q (supported: %s)\n",
			filepath.Ext(*path), strings.Join(vision.SupportedFormats(), ", "))
		os.Exit(1)
	}

	src, err := preprocess.ParseSource(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	img, err := vision.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	b := img.Bounds()
	fmt.Printf("=== Image: %s (%dx%d) ===\n", *path, b.Dx(), b.Dy())

	rt := vision.NewRuntime()
	if err := rt.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OpenCV %s\n", rt.Version())

	engine := grader.New(rt, nil, grader.DefaultOptions())
	res, c, err := engine.Grade(context.Background(), grader.Input{
		Image:  img,
		Source: src,
		Items:  *items,
		Debug:  true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Grading failed: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	q := c.Corners
	fmt.Printf("\n=== Corners (%s) ===\n", c.Strategy)
	fmt.Printf("  TL (%.1f, %.1f)  TR (%.1f, %.1f)\n", q.TL.X, q.TL.Y, q.TR.X, q.TR.Y)
	fmt.Printf("  BL (%.1f, %.1f)  BR (%.1f, %.1f)\n", q.BL.X, q.BL.Y, q.BR.X, q.BR.Y)
	fmt.Printf("  Canonical: %dx%d\n", c.Size.Width, c.Size.Height)

	grids := c.Grids()
	for i, band := range c.Bands() {
		g := grids[i]
		fmt.Printf("\n=== Band %d: items %d-%d, x=%d w=%d ===\n",
			band.Index, band.FirstItem, band.FirstItem+band.Items-1, band.Rect.X, band.Rect.Width)
		fmt.Printf("  Anchor candidates: %d, on column: %d\n", g.Detected, len(g.Anchors))
		if g.Empty() {
			fmt.Println("  No anchors: band left blank")
			continue
		}
		fmt.Printf("  Column X: %.1f  Pitch: %.1f px\n", g.AnchorX, g.Pitch)
		rows := make([]string, len(g.Rows))
		for j, y := range g.Rows {
			rows[j] = fmt.Sprintf("%.0f", y)
		}
		fmt.Printf("  Rows: %s\n", strings.Join(rows, " "))
	}

	fmt.Printf("\n=== Answers (fill only, confidence %.2f) ===\n", res.Confidence)
	for i, a := range res.Answers {
		if a == "" {
			a = "-"
		}
		fmt.Printf("%3d:%s ", i+1, a)
		if (i+1)%10 == 0 {
			fmt.Println()
		}
	}
	fmt.Println()

	if *overlay != "" && res.Debug != nil {
		if err := os.WriteFile(*overlay, res.Debug.Snapshot, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write overlay: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Overlay written to %s\n", *overlay)
	}
}
