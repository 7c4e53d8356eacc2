package plate

import (
	"fmt"

	"github.com/ExpertResinPrints/UVToolsScripts/pkg/geometry"
)

// Selection names the slice of the job an operation works on: an
// inclusive layer-index range plus an optional region of interest
// narrower than the full plate. A zero ROI means the whole plate.
type Selection struct {
	Start, End int
	ROI        geometry.Rect
}

// FullSelection selects every layer and the full plate.
func FullSelection(j *Job) Selection {
	return Selection{Start: 0, End: j.LayerCount() - 1}
}

// Count returns the number of selected layers.
func (s Selection) Count() int {
	return s.End - s.Start + 1
}

// Region returns the effective ROI clipped to the plate. A zero ROI
// expands to the full plate bounds.
func (s Selection) Region(j *Job) geometry.Rect {
	bounds := j.Size.Bounds()
	if s.ROI.Empty() {
		return bounds
	}
	return s.ROI.Intersect(bounds)
}

// Validate checks the range against the job.
func (s Selection) Validate(j *Job) error {
	if s.Start < 0 || s.End >= j.LayerCount() || s.Start > s.End {
		return fmt.Errorf("layer range [%d,%d] outside job of %d layers",
			s.Start, s.End, j.LayerCount())
	}
	if !s.ROI.Empty() && s.Region(j).Empty() {
		return fmt.Errorf("region of interest %+v outside plate %dx%d",
			s.ROI, j.Size.Width, j.Size.Height)
	}
	return nil
}
