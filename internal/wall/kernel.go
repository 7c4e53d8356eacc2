// Package wall implements elephant's-foot suppression: it finds the
// boundary band ("wall ring") of each layer's printed regions through
// repeated erosion and dims it toward a target effective exposure,
// optionally fading the dimming through nested gradient bands.
package wall

import (
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// Kernel chooses the structuring element for an erosion pass. Element
// returns the element and the iteration count needed to erode inward
// by approximately px pixels with it. The caller owns closing the
// returned Mat.
type Kernel interface {
	Element(px int) (gocv.Mat, int)
}

// FixedKernel erodes with one fixed shape and size.
type FixedKernel struct {
	Shape gocv.MorphShape
	Size  int
}

// DefaultKernel returns the standard 3x3 rectangular kernel.
func DefaultKernel() FixedKernel {
	return FixedKernel{Shape: gocv.MorphRect, Size: 3}
}

func (k FixedKernel) Element(px int) (gocv.Mat, int) {
	size := k.Size
	if size < 3 {
		size = 3
	}
	// One pass with a size s kernel erodes (s-1)/2 pixels inward.
	radius := (size - 1) / 2
	iters := (px + radius - 1) / radius
	if iters < 1 {
		iters = 1
	}
	return gocv.GetStructuringElement(k.Shape, image.Pt(size, size)), iters
}

// DynamicKernel picks the element from the silhouette's geometry:
// large, uniformly sized regions erode with a wider ellipse in fewer
// passes, while small or highly varied regions keep a fine cross so
// thin features are not erased outright.
type DynamicKernel struct {
	inner FixedKernel
}

// NewDynamicKernel inspects the printed silhouette and fixes the
// element policy for all erosion passes on that layer.
func NewDynamicKernel(silhouette gocv.Mat) DynamicKernel {
	contours := gocv.FindContours(silhouette, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	areas := make([]float64, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		areas = append(areas, gocv.ContourArea(contours.At(i)))
	}
	if len(areas) == 0 {
		return DynamicKernel{inner: DefaultKernel()}
	}

	mean, std := stat.MeanStdDev(areas, nil)
	if len(areas) == 1 {
		std = 0
	}

	// Typical feature width, assuming roughly convex regions.
	width := math.Sqrt(mean)
	varied := std > mean // dispersion on par with the mean itself

	switch {
	case width >= 100 && !varied:
		return DynamicKernel{inner: FixedKernel{Shape: gocv.MorphEllipse, Size: 7}}
	case width >= 40 && !varied:
		return DynamicKernel{inner: FixedKernel{Shape: gocv.MorphEllipse, Size: 5}}
	default:
		return DynamicKernel{inner: FixedKernel{Shape: gocv.MorphCross, Size: 3}}
	}
}

func (k DynamicKernel) Element(px int) (gocv.Mat, int) {
	return k.inner.Element(px)
}
