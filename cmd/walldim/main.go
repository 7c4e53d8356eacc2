// Command walldim suppresses elephant's-foot over-cure in a layer
// stack by dimming pixels near the printed-region boundaries,
// optionally with a smooth gradient.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ExpertResinPrints/UVToolsScripts/internal/ops"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/pipeline"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/plate"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/stack"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Print the version and exit")
	input := flag.String("input", "", "Directory of per-layer mask images (PNG, TIFF, or JPEG)")
	output := flag.String("output", "", "Directory to write the processed layer PNGs")
	thickness := flag.Int("thickness", 20, "Wall band depth in pixels (1-500)")
	wallExp := flag.Float64("wall-exposure", 2.0, "Target wall exposure in seconds (1-1000)")
	gradient := flag.Bool("gradient", false, "Fade the dimming over a gradient instead of one flat level")
	gradientSize := flag.Int("gradient-size", 8, "Gradient depth in pixels (1-100)")
	dynamicKernel := flag.Bool("dynamic-kernel", false, "Pick the erosion kernel from each layer's geometry")
	ignoreSmaller := flag.Float64("ignore-smaller", 0, "Leave printed regions with contour area below this undimmed (0 = off)")
	allLayers := flag.Bool("all-layers", false, "Process every selected layer, not just bottom and transition layers")
	start := flag.Int("start", 0, "First layer index to process")
	end := flag.Int("end", -1, "Last layer index to process (-1 = last layer)")
	bottomCount := flag.Int("bottom-count", 6, "Number of bottom layers in the stack")
	transitionCount := flag.Int("transition-count", 4, "Number of transition layers after the bottom layers")
	expTime := flag.Float64("exposure", 2.5, "Job-level normal exposure in seconds")
	bottomExp := flag.Float64("bottom-exposure", 30, "Job-level bottom exposure in seconds")
	layerHeight := flag.Float64("layer-height", 0.05, "Layer height in mm")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *showVersion {
		fmt.Printf("walldim %s\n", version.String())
		return
	}
	if *input == "" || *output == "" {
		fmt.Println("Usage: walldim -input <dir> -output <dir> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	job, err := stack.LoadDir(*input, *layerHeight)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load layers: %v\n", err)
		os.Exit(1)
	}
	job.SetExposureTime(*expTime)
	job.SetBottomExposureTime(*bottomExp)
	job.SetBottomLayerCount(*bottomCount)
	job.SetTransitionLayerCount(*transitionCount)

	// Loaded layers carry no per-layer exposure; derive it from the
	// job-level settings so the dimming ratio is meaningful.
	for i := 0; i < job.LayerCount(); i++ {
		layer := job.Layer(i)
		if layer.IsBottom {
			layer.ExposureTime = *bottomExp
		} else {
			layer.ExposureTime = *expTime
		}
	}

	fmt.Printf("Loaded %d layers, plate %dx%d\n", job.LayerCount(), job.Size.Width, job.Size.Height)

	sel := plate.FullSelection(job)
	sel.Start = *start
	if *end >= 0 {
		sel.End = *end
	}

	opt := ops.DefaultWallDimmingOptions()
	opt.Wall.WallThickness = *thickness
	opt.Wall.WallExposure = *wallExp
	opt.Wall.Gradient = *gradient
	opt.Wall.GradientSize = *gradientSize
	opt.Wall.DynamicKernel = *dynamicKernel
	opt.Wall.IgnoreSmallerThan = *ignoreSmaller
	opt.BottomAndTransitionOnly = !*allLayers

	fmt.Printf("Wall thickness %dpx, wall exposure %.2fs, gradient: %v, layers [%d,%d]\n",
		opt.Wall.WallThickness, opt.Wall.WallExposure, opt.Wall.Gradient, sel.Start, sel.End)

	sink := pipeline.NewConsoleSink()
	if err := ops.RunWallDimming(context.Background(), job, sel, opt, sink); err != nil {
		fmt.Fprintf(os.Stderr, "Wall dimming failed: %v\n", err)
		os.Exit(1)
	}

	if err := stack.SaveDir(job, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save layers: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d layers to %s\n", job.LayerCount(), *output)
}
