package plate

import (
	"fmt"

	"github.com/ExpertResinPrints/UVToolsScripts/pkg/geometry"
)

// Job is the explicit processing context for one build job: the plate
// resolution, the ordered layer sequence and the job-level exposure
// settings. Operations receive a *Job instead of reaching into shared
// globals, so every mutation is visible at the call site.
//
// Layer buffers may be mutated concurrently (each worker owns one
// layer), but the sequence length and the job-level counts only change
// inside a Batch call, which is single-threaded by contract.
type Job struct {
	Size geometry.Size

	// PerLayerOverrides reports whether the target printer format
	// honors per-layer lift and wait values. When false, inserted
	// layers inherit the job-level motion settings.
	PerLayerOverrides bool

	layers []Layer

	exposureTime       float64 // normal layer exposure, seconds
	bottomExposureTime float64 // bottom layer exposure, seconds
	bottomLayers       int
	transitionLayers   int

	suppressRecompute bool
}

// NewJob creates a job for the given plate resolution with an empty
// layer sequence.
func NewJob(width, height int) *Job {
	return &Job{Size: geometry.Size{Width: width, Height: height}}
}

// LayerCount returns the number of layers in the sequence.
func (j *Job) LayerCount() int { return len(j.layers) }

// Layer returns a pointer to the layer at index i. The pointer stays
// valid until the sequence is replaced.
func (j *Job) Layer(i int) *Layer { return &j.layers[i] }

// Layers returns the backing layer slice. Callers must not change its
// length; use ReplaceLayers for structural changes.
func (j *Job) Layers() []Layer { return j.layers }

// ReplaceLayers swaps in a new layer sequence. Indices are renumbered
// to stay contiguous from 0.
func (j *Job) ReplaceLayers(layers []Layer) {
	for i := range layers {
		layers[i].Index = i
	}
	j.layers = layers
	j.recompute()
}

// NewMaskBuffer returns a zeroed plate-sized grayscale buffer.
func (j *Job) NewMaskBuffer() []uint8 {
	return make([]uint8, j.Size.Area())
}

// ExposureTime returns the job-level normal layer exposure in seconds.
func (j *Job) ExposureTime() float64 { return j.exposureTime }

// SetExposureTime sets the job-level normal layer exposure in seconds.
func (j *Job) SetExposureTime(seconds float64) {
	j.exposureTime = seconds
	j.recompute()
}

// BottomExposureTime returns the bottom layer exposure in seconds.
func (j *Job) BottomExposureTime() float64 { return j.bottomExposureTime }

// SetBottomExposureTime sets the bottom layer exposure in seconds.
func (j *Job) SetBottomExposureTime(seconds float64) {
	j.bottomExposureTime = seconds
	j.recompute()
}

// BottomLayerCount returns the number of bottom layers.
func (j *Job) BottomLayerCount() int { return j.bottomLayers }

// SetBottomLayerCount sets the number of bottom layers.
func (j *Job) SetBottomLayerCount(n int) {
	j.bottomLayers = n
	j.recompute()
}

// TransitionLayerCount returns the number of transition layers that
// ramp exposure down from the bottom value to the normal value.
func (j *Job) TransitionLayerCount() int { return j.transitionLayers }

// SetTransitionLayerCount sets the number of transition layers.
func (j *Job) SetTransitionLayerCount(n int) {
	j.transitionLayers = n
	j.recompute()
}

// IsTransition returns true if layer index i falls in the transition
// band that ramps exposure down after the bottom layers.
func (j *Job) IsTransition(i int) bool {
	return i >= j.bottomLayers && i < j.bottomLayers+j.transitionLayers
}

// Batch runs fn with derived-state recomputation suppressed, then
// recomputes once. Use it to commit a group of structural changes
// (sequence replace plus count updates) without the per-mutation
// recompute firing between them.
func (j *Job) Batch(fn func()) {
	j.suppressRecompute = true
	defer func() {
		j.suppressRecompute = false
		j.recompute()
	}()
	fn()
}

// recompute refreshes per-layer derived state: contiguous indices and
// bottom flags from the bottom layer count.
func (j *Job) recompute() {
	if j.suppressRecompute {
		return
	}
	for i := range j.layers {
		j.layers[i].Index = i
		j.layers[i].IsBottom = i < j.bottomLayers
	}
}

// Validate checks the job is usable for processing.
func (j *Job) Validate() error {
	if j.Size.Width <= 0 || j.Size.Height <= 0 {
		return fmt.Errorf("invalid plate resolution %dx%d", j.Size.Width, j.Size.Height)
	}
	for i := range j.layers {
		if len(j.layers[i].Pixels) != j.Size.Area() {
			return fmt.Errorf("layer %d: buffer is %d bytes, want %d",
				i, len(j.layers[i].Pixels), j.Size.Area())
		}
	}
	return nil
}
