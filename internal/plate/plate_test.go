package plate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExpertResinPrints/UVToolsScripts/pkg/geometry"
)

func testJob(t *testing.T, layerCount int) *Job {
	t.Helper()
	job := NewJob(8, 4)
	layers := make([]Layer, layerCount)
	for i := range layers {
		layers[i] = Layer{
			Pixels:       job.NewMaskBuffer(),
			HeightMM:     float64(i+1) * 0.05,
			ExposureTime: 2.5,
		}
	}
	job.ReplaceLayers(layers)
	return job
}

func TestJobRecomputeBottomFlags(t *testing.T) {
	job := testJob(t, 5)
	job.SetBottomLayerCount(2)

	for i := 0; i < 5; i++ {
		assert.Equal(t, i < 2, job.Layer(i).IsBottom, "layer %d", i)
		assert.Equal(t, i, job.Layer(i).Index)
	}
}

func TestJobTransitionBand(t *testing.T) {
	job := testJob(t, 10)
	job.SetBottomLayerCount(3)
	job.SetTransitionLayerCount(2)

	assert.False(t, job.IsTransition(2), "bottom layer is not transition")
	assert.True(t, job.IsTransition(3))
	assert.True(t, job.IsTransition(4))
	assert.False(t, job.IsTransition(5))
}

func TestJobBatchRecomputesOnce(t *testing.T) {
	job := testJob(t, 4)

	replacement := make([]Layer, 6)
	for i := range replacement {
		replacement[i] = Layer{Pixels: job.NewMaskBuffer()}
	}
	job.Batch(func() {
		job.ReplaceLayers(replacement)
		job.SetBottomLayerCount(3)
		// Inside the batch, derived flags are stale on purpose.
		assert.False(t, job.Layer(0).IsBottom)
	})

	assert.Equal(t, 6, job.LayerCount())
	assert.True(t, job.Layer(2).IsBottom)
	assert.False(t, job.Layer(3).IsBottom)
}

func TestLayerClone(t *testing.T) {
	l := Layer{Pixels: []uint8{1, 2, 3}, ExposureTime: 2, HeightMM: 0.1}
	c := l.Clone()
	c.Pixels[0] = 99
	assert.Equal(t, uint8(1), l.Pixels[0], "clone must not alias the source buffer")
	assert.Equal(t, l.HeightMM, c.HeightMM)
}

func TestSelectionRegion(t *testing.T) {
	job := testJob(t, 3)

	sel := FullSelection(job)
	assert.Equal(t, 0, sel.Start)
	assert.Equal(t, 2, sel.End)
	assert.Equal(t, 3, sel.Count())
	assert.Equal(t, geometry.NewRect(0, 0, 8, 4), sel.Region(job), "zero ROI means the full plate")

	sel.ROI = geometry.NewRect(6, 2, 10, 10)
	assert.Equal(t, geometry.NewRect(6, 2, 2, 2), sel.Region(job), "ROI clips to the plate")
}

func TestSelectionValidate(t *testing.T) {
	job := testJob(t, 3)

	require.NoError(t, FullSelection(job).Validate(job))
	assert.Error(t, Selection{Start: -1, End: 1}.Validate(job))
	assert.Error(t, Selection{Start: 0, End: 3}.Validate(job))
	assert.Error(t, Selection{Start: 2, End: 1}.Validate(job))
	assert.Error(t, Selection{Start: 0, End: 2, ROI: geometry.NewRect(100, 100, 5, 5)}.Validate(job))
}

func TestJobValidate(t *testing.T) {
	job := testJob(t, 2)
	require.NoError(t, job.Validate())

	job.Layer(1).Pixels = make([]uint8, 3)
	assert.Error(t, job.Validate())
}
