package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
)

// ErrCancelled is returned when a run stops because the sink or the
// context was cancelled. Layers already transformed stay transformed;
// there is no rollback.
var ErrCancelled = errors.New("operation cancelled")

// LayerError records a failure on one layer of an isolated run.
type LayerError struct {
	Index int
	Err   error
}

// BatchError collects per-layer failures from a run with failure
// isolation enabled.
type BatchError struct {
	Failed []LayerError
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d layer(s) failed, first: layer %d: %v",
		len(e.Failed), e.Failed[0].Index, e.Failed[0].Err)
}

// Processor fans a per-layer function out over a layer-index range
// using a fixed-size worker pool. Each task owns its layer's buffer
// (and, in duplication mode, its pre-reserved destination slots), so
// the only shared mutable state is the progress counter and whatever
// atomic counters the task function itself maintains.
type Processor struct {
	// Workers is the pool size; 0 means runtime.NumCPU().
	Workers int

	// IsolateFailures keeps the batch running when a single layer
	// fails and reports the failed indices at the end. When false the
	// first failure stops dispatch and aborts the batch.
	IsolateFailures bool
}

// Run processes layer indices [start,end] with fn. Before each unit a
// worker blocks at the sink's pause check; after each unit it bumps
// the progress counter. Cancellation is sampled between dispatches:
// in-flight layers always run to completion so no buffer is left half
// transformed. Run returns nil on success, ErrCancelled on a cancelled
// run, a *BatchError when isolation is on and layers failed, or the
// first failure otherwise.
func (p *Processor) Run(ctx context.Context, sink ProgressSink, start, end int, fn func(idx int) error) error {
	count := end - start + 1
	if count <= 0 {
		return fmt.Errorf("empty layer range [%d,%d]", start, end)
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > count {
		workers = count
	}

	sink.Reset("Processing layers", count)

	indices := make(chan int)
	var (
		wg        sync.WaitGroup
		abort     atomic.Bool
		failMu    sync.Mutex
		failures  []LayerError
		firstFail error
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indices {
				sink.PauseIfRequested()
				if sink.Cancelled() {
					continue
				}
				if err := fn(idx); err != nil {
					failMu.Lock()
					if firstFail == nil {
						firstFail = fmt.Errorf("layer %d: %w", idx, err)
					}
					failures = append(failures, LayerError{Index: idx, Err: err})
					failMu.Unlock()
					if !p.IsolateFailures {
						abort.Store(true)
					}
					continue
				}
				sink.LockAndIncrement()
			}
		}()
	}

	// Dispatch loop: cancellation and abort are only sampled here,
	// between units, never mid-layer.
	cancelled := false
dispatch:
	for idx := start; idx <= end; idx++ {
		if sink.Cancelled() || abort.Load() {
			break
		}
		select {
		case <-ctx.Done():
			cancelled = true
			break dispatch
		case indices <- idx:
		}
	}
	close(indices)
	wg.Wait()

	if cancelled || sink.Cancelled() {
		return ErrCancelled
	}
	if len(failures) > 0 {
		if p.IsolateFailures {
			sort.Slice(failures, func(a, b int) bool { return failures[a].Index < failures[b].Index })
			return &BatchError{Failed: failures}
		}
		return firstFail
	}
	return nil
}
