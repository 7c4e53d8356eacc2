// Package replicate expands a layer sequence for
// multi-exposure-by-duplication: each source layer in the selected
// range is replaced by one masked variant per grid cell, every variant
// carrying that cell's requested exposure, all sitting at the source
// layer's physical height.
package replicate

import (
	"fmt"
	"sync/atomic"

	"github.com/ExpertResinPrints/UVToolsScripts/internal/gridmask"
	"github.com/ExpertResinPrints/UVToolsScripts/internal/plate"
)

// InsertedLiftHeight is the lift forced onto inserted variants, in mm.
// The plate barely moves between variants of the same slice, keeping
// the added print time low.
const InsertedLiftHeight = 0.5

// Replicator plans and fills the grown layer sequence. The destination
// slice is allocated once up front, every task writes only the slots
// of its own source layer, and the swap into the job happens after all
// tasks join.
type Replicator struct {
	Masks      *gridmask.Masks
	Start, End int

	dst         []plate.Layer
	addedBottom atomic.Int64
}

// NewReplicator plans the expansion for the given range and grid
// masks.
func NewReplicator(m *gridmask.Masks, start, end int) *Replicator {
	return &Replicator{Masks: m, Start: start, End: end}
}

// NewLength returns the grown sequence length:
// oldLength + rangeCount*(nmax-1).
func (r *Replicator) NewLength(oldLength int) int {
	return oldLength + (r.End-r.Start+1)*(r.Masks.NMax-1)
}

// DestIndex returns the destination slot of variant k of the source
// layer at idx.
func (r *Replicator) DestIndex(idx, k int) int {
	return r.Start + (idx-r.Start)*r.Masks.NMax + k
}

// Allocate sizes the destination sequence and copies the layers
// outside the selected range into place: layers before the range keep
// their index, layers after it shift by rangeCount*(nmax-1). Must be
// called before any FillLayer.
func (r *Replicator) Allocate(src []plate.Layer) error {
	if r.Start < 0 || r.End >= len(src) || r.Start > r.End {
		return fmt.Errorf("layer range [%d,%d] outside sequence of %d layers",
			r.Start, r.End, len(src))
	}
	shift := (r.End - r.Start + 1) * (r.Masks.NMax - 1)
	r.dst = make([]plate.Layer, r.NewLength(len(src)))
	for i := 0; i < r.Start; i++ {
		r.dst[i] = src[i].Clone()
	}
	for i := r.End + 1; i < len(src); i++ {
		r.dst[i+shift] = src[i].Clone()
	}
	return nil
}

// FillLayer writes the nmax masked variants of one source layer into
// their pre-reserved destination slots. Variant k is the source buffer
// restricted to grid cell k, at that cell's exposure. Variant 0 takes
// the source layer's slot; later variants sit at the same physical
// height with a minimal lift and, when the printer format honors
// per-layer overrides, no pre-cure wait. Safe to call concurrently for
// distinct source layers.
func (r *Replicator) FillLayer(src plate.Layer, idx int, perLayerOverrides bool) {
	nmax := r.Masks.NMax
	for k := 0; k < nmax; k++ {
		variant := src.Clone()
		cell := r.Masks.Cells[k]
		// Cell masks are 0 or 255, so a bitwise AND keeps the
		// source gray level inside the cell and clears the rest.
		for i := range variant.Pixels {
			variant.Pixels[i] &= cell[i]
		}
		variant.ExposureTime = r.Masks.Exposures[k]
		if k > 0 {
			variant.LiftHeight = InsertedLiftHeight
			if perLayerOverrides {
				variant.WaitBefore = 0
			}
		}
		r.dst[r.DestIndex(idx, k)] = variant
	}
	if src.IsBottom {
		r.addedBottom.Add(int64(nmax - 1))
	}
}

// AddedBottomLayers returns how many extra bottom layers the inserted
// variants contribute. Valid once all FillLayer calls have finished.
func (r *Replicator) AddedBottomLayers() int {
	return int(r.addedBottom.Load())
}

// Commit swaps the grown sequence into the job together with the
// updated bottom layer count, as one batch. Call only after every
// FillLayer has returned.
func (r *Replicator) Commit(job *plate.Job) {
	added := r.AddedBottomLayers()
	job.Batch(func() {
		job.ReplaceLayers(r.dst)
		job.SetBottomLayerCount(job.BottomLayerCount() + added)
	})
	r.dst = nil
}
