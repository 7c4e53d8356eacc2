// Package plate models the build plate: the per-layer grayscale rasters
// and the job-level context the processing operations mutate.
package plate

// Layer represents a single z-slice of the print job: a plate-sized
// 8-bit grayscale raster plus its exposure and motion settings.
type Layer struct {
	Index        int     // position in the sequence
	Pixels       []uint8 // row-major grayscale buffer, Width*Height
	HeightMM     float64 // absolute z height of the slice top
	ExposureTime float64 // seconds of illumination
	LiftHeight   float64 // mm the plate lifts after curing
	WaitBefore   float64 // seconds of resin settle time before curing
	IsBottom     bool    // elevated-exposure adhesion layer
}

// Clone returns a deep copy of the layer, including its pixel buffer.
func (l Layer) Clone() Layer {
	out := l
	out.Pixels = make([]uint8, len(l.Pixels))
	copy(out.Pixels, l.Pixels)
	return out
}

// Printed returns true if any pixel of the layer is lit.
func (l Layer) Printed() bool {
	for _, p := range l.Pixels {
		if p != 0 {
			return true
		}
	}
	return false
}
