// Package ops wires the mask builders, the exposure encoder and the
// replicator into the two user-facing operations: the multi-exposure
// finder and wall dimming. Each operation validates its options up
// front, fans out over the selected layers through the pipeline
// processor and commits structural changes single-threaded at the end.
package ops

import (
	"context"
	"fmt"

	"github.com/ExpertResinPrints/UVToolsScripts/internal/exposure"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/gridmask"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/pipeline"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/plate"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/replicate"
)

// ExposureFinderOptions configure a multi-exposure run.
type ExposureFinderOptions struct {
	// GridX, GridY are the plate grid divisions, each in [1,32].
	GridX, GridY int

	// ExposureList is the comma-separated list of requested exposure
	// durations in seconds, one per grid cell in row-major order.
	ExposureList string

	// ParseMode selects lenient or strict handling of malformed list
	// entries.
	ParseMode exposure.ParseMode

	// Duplicate switches from pixel-dimming mode (one attenuated
	// buffer per layer) to duplication mode (one inserted physical
	// layer per grid cell).
	Duplicate bool

	// Workers caps the worker pool; 0 uses every CPU.
	Workers int

	// IsolateFailures keeps the run going when single layers fail.
	IsolateFailures bool
}

// DefaultExposureFinderOptions returns the standard settings: a 1x2
// grid in dimming mode.
func DefaultExposureFinderOptions() ExposureFinderOptions {
	return ExposureFinderOptions{GridX: 2, GridY: 1}
}

// RunExposureFinder applies several effective exposures across grid
// cells of the plate, over the selected layer range.
//
// In dimming mode each selected layer is attenuated through the grid
// brightness mask and the batch exposure is raised to the largest
// requested value, so light dose per cell is controlled by gray level
// alone. In duplication mode each selected layer is replaced by one
// masked copy per cell at that cell's exposure; the grown sequence and
// the updated bottom layer count are committed together after every
// worker has finished.
func RunExposureFinder(ctx context.Context, job *plate.Job, sel plate.Selection, opts ExposureFinderOptions, sink pipeline.ProgressSink) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := sel.Validate(job); err != nil {
		return err
	}

	exposures, err := exposure.ParseList(opts.ExposureList, opts.ParseMode)
	if err != nil {
		return err
	}

	masks, err := gridmask.Build(job.Size.Width, job.Size.Height, opts.GridX, opts.GridY, exposures)
	if err != nil {
		return err
	}

	proc := &pipeline.Processor{Workers: opts.Workers, IsolateFailures: opts.IsolateFailures}
	if opts.Duplicate {
		return runDuplication(ctx, job, sel, masks, proc, sink)
	}
	return runDimming(ctx, job, sel, masks, proc, sink)
}

func runDimming(ctx context.Context, job *plate.Job, sel plate.Selection, masks *gridmask.Masks, proc *pipeline.Processor, sink pipeline.ProgressSink) error {
	err := proc.Run(ctx, sink, sel.Start, sel.End, func(idx int) error {
		layer := job.Layer(idx)
		if err := exposure.Apply(layer.Pixels, masks.Brightness); err != nil {
			return err
		}
		layer.ExposureTime = masks.ExpMax
		return nil
	})
	if err != nil {
		return err
	}

	// Dose is in the gray levels now; the batch runs at the longest
	// requested exposure.
	job.SetExposureTime(masks.ExpMax)
	return nil
}

func runDuplication(ctx context.Context, job *plate.Job, sel plate.Selection, masks *gridmask.Masks, proc *pipeline.Processor, sink pipeline.ProgressSink) error {
	rep := replicate.NewReplicator(masks, sel.Start, sel.End)
	if err := rep.Allocate(job.Layers()); err != nil {
		return err
	}

	perLayer := job.PerLayerOverrides
	err := proc.Run(ctx, sink, sel.Start, sel.End, func(idx int) error {
		rep.FillLayer(*job.Layer(idx), idx, perLayer)
		return nil
	})
	if err != nil {
		return fmt.Errorf("duplication aborted, sequence unchanged: %w", err)
	}

	rep.Commit(job)
	return nil
}
