// Command exposurefind applies a multi-exposure test grid to a layer
// stack: the plate is split into cells and each cell receives its own
// effective exposure, either by pixel dimming or by duplicating
// layers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ExpertResinPrints/UVToolsScripts/internal/exposure"
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
	gridX := flag.Int("grid-x", 2, "Grid divisions across the plate (1-32)")
	gridY := flag.Int("grid-y", 1, "Grid divisions down the plate (1-32)")
	exposures := flag.String("exposures", "", "Comma-separated exposure durations in seconds, one per cell")
	strict := flag.Bool("strict", false, "Reject the run on malformed exposure entries instead of dropping them")
	duplicate := flag.Bool("duplicate", false, "Insert duplicated layers per cell instead of dimming pixels")
	start := flag.Int("start", 0, "First layer index to process")
	end := flag.Int("end", -1, "Last layer index to process (-1 = last layer)")
	bottomCount := flag.Int("bottom-count", 0, "Number of bottom layers in the stack")
	expTime := flag.Float64("exposure", 2.5, "Job-level normal exposure in seconds")
	bottomExp := flag.Float64("bottom-exposure", 30, "Job-level bottom exposure in seconds")
	layerHeight := flag.Float64("layer-height", 0.05, "Layer height in mm")
	overrides := flag.Bool("per-layer-overrides", true, "Printer format honors per-layer lift and wait values")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *showVersion {
		fmt.Printf("exposurefind %s\n", version.String())
		return
	}
	if *input == "" || *output == "" || *exposures == "" {
		fmt.Println("Usage: exposurefind -input <dir> -output <dir> -exposures 2.0,2.5,3.0 [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	job, err := stack.LoadDir(*input, *layerHeight)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load layers: %v\n", err)
		os.Exit(1)
	}
	job.PerLayerOverrides = *overrides
	job.SetExposureTime(*expTime)
	job.SetBottomExposureTime(*bottomExp)
	job.SetBottomLayerCount(*bottomCount)

	fmt.Printf("Loaded %d layers, plate %dx%d\n", job.LayerCount(), job.Size.Width, job.Size.Height)

	sel := plate.FullSelection(job)
	sel.Start = *start
	if *end >= 0 {
		sel.End = *end
	}

	opt := ops.DefaultExposureFinderOptions()
	opt.GridX = *gridX
	opt.GridY = *gridY
	opt.ExposureList = *exposures
	opt.Duplicate = *duplicate
	if *strict {
		opt.ParseMode = exposure.Strict
	}

	mode := "pixel dimming"
	if *duplicate {
		mode = "layer duplication"
	}
	fmt.Printf("Grid %dx%d, exposures %q, mode: %s, layers [%d,%d]\n",
		opt.GridX, opt.GridY, opt.ExposureList, mode, sel.Start, sel.End)

	sink := pipeline.NewConsoleSink()
	if err := ops.RunExposureFinder(context.Background(), job, sel, opt, sink); err != nil {
		fmt.Fprintf(os.Stderr, "Exposure finder failed: %v\n", err)
		os.Exit(1)
	}

	if err := stack.SaveDir(job, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save layers: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d layers to %s\n", job.LayerCount(), *output)
}
