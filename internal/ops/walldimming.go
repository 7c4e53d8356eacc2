package ops

import (
	"context"

	"github.com/ExpertResinPrints/UVToolsScripts/internal/pipeline"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/plate"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/wall"
)

// WallDimmingOptions configure an elephant's-foot suppression run.
type WallDimmingOptions struct {
	Wall wall.Options

	// BottomAndTransitionOnly restricts the run to the bottom and
	// transition layers, where basal over-cure happens. When false
	// the whole selected range is processed.
	BottomAndTransitionOnly bool

	// Workers caps the worker pool; 0 uses every CPU.
	Workers int

	// IsolateFailures keeps the run going when single layers fail.
	IsolateFailures bool
}

// DefaultWallDimmingOptions returns the standard settings, applying to
// bottom and transition layers only.
func DefaultWallDimmingOptions() WallDimmingOptions {
	return WallDimmingOptions{
		Wall:                    wall.DefaultOptions(),
		BottomAndTransitionOnly: true,
	}
}

// RunWallDimming dims the boundary band of the printed regions on each
// selected layer, suppressing elephant's-foot over-cure. Each layer is
// an independent in-place transform; the sequence length never
// changes, so there is no commit step beyond the workers joining.
func RunWallDimming(ctx context.Context, job *plate.Job, sel plate.Selection, opts WallDimmingOptions, sink pipeline.ProgressSink) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := sel.Validate(job); err != nil {
		return err
	}
	if err := opts.Wall.Validate(); err != nil {
		return err
	}

	roi := sel.Region(job)
	proc := &pipeline.Processor{Workers: opts.Workers, IsolateFailures: opts.IsolateFailures}
	return proc.Run(ctx, sink, sel.Start, sel.End, func(idx int) error {
		layer := job.Layer(idx)
		if opts.BottomAndTransitionOnly && !layer.IsBottom && !job.IsTransition(idx) {
			return nil
		}
		if !layer.Printed() {
			return nil
		}
		exp := layer.ExposureTime
		if exp <= 0 {
			if layer.IsBottom {
				exp = job.BottomExposureTime()
			} else {
				exp = job.ExposureTime()
			}
		}
		return wall.DimWalls(layer.Pixels, job.Size, roi, exp, opts.Wall)
	})
}
