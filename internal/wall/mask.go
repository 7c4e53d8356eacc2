package wall

import (
	"fmt"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ExpertResinPrints/UVToolsScripts/pkg/geometry"
)

// Options configure wall dimming.
type Options struct {
	// WallThickness is the inward depth of the dimmed band, in pixels.
	WallThickness int
	// WallExposure is the target effective exposure for the band, in
	// seconds. The band is dimmed by the ratio of this to the layer's
	// own exposure.
	WallExposure float64
	// Gradient fades the dimming from the band's inner edge toward
	// the boundary instead of applying one flat level.
	Gradient bool
	// GradientSize is the fade depth in pixels. Capped at half the
	// wall thickness.
	GradientSize int
	// DynamicKernel selects the erosion element from each layer's
	// geometry instead of the fixed 3x3 rectangle.
	DynamicKernel bool
	// IgnoreSmallerThan restores printed regions whose contour area
	// in pixels is below this value, leaving them undimmed. Zero
	// keeps every region.
	IgnoreSmallerThan float64
}

// DefaultOptions returns the standard wall dimming settings.
func DefaultOptions() Options {
	return Options{
		WallThickness: 20,
		WallExposure:  2.0,
		GradientSize:  8,
	}
}

// Validate checks the options against their allowed ranges.
func (o Options) Validate() error {
	if o.WallThickness < 1 || o.WallThickness > 500 {
		return fmt.Errorf("wall thickness %d outside [1,500]", o.WallThickness)
	}
	if o.WallExposure < 1 || o.WallExposure > 1000 {
		return fmt.Errorf("wall exposure %.2fs outside [1,1000]", o.WallExposure)
	}
	if o.Gradient && (o.GradientSize < 1 || o.GradientSize > 100) {
		return fmt.Errorf("gradient size %d outside [1,100]", o.GradientSize)
	}
	if o.IgnoreSmallerThan < 0 {
		return fmt.Errorf("negative ignore threshold %.1f", o.IgnoreSmallerThan)
	}
	return nil
}

// BaseBrightness returns the wall band gray level for a layer cured at
// layerExposure seconds: round(255*clamp(wallExposure/layerExposure,
// 0.1, 1.0)). The clamp keeps the band above 10% brightness so the
// dimming never erases geometry, and at most full brightness.
func BaseBrightness(wallExposure, layerExposure float64) uint8 {
	ratio := wallExposure / layerExposure
	if ratio < 0.1 {
		ratio = 0.1
	}
	if ratio > 1.0 {
		ratio = 1.0
	}
	return uint8(math.Round(255 * ratio))
}

// GradientBands returns the number of interpolated bands for the given
// settings: min(gradientSize, wallThickness/2).
func GradientBands(gradientSize, wallThickness int) int {
	num := wallThickness / 2
	if gradientSize < num {
		num = gradientSize
	}
	return num
}

// BandBrightness returns the gray level of gradient band i of num,
// interpolating from just under full brightness at i=0 down toward the
// base wall level as i grows: round(step*(num-i)*(255-base) + base)
// with step = 1/(num+1).
func BandBrightness(i, num int, base uint8) uint8 {
	step := 1.0 / float64(num+1)
	return uint8(math.Round(step*float64(num-i)*float64(255-int(base)) + float64(base)))
}

// DimWalls dims the boundary band of the printed regions on one layer
// buffer, in place. Only pixels within the selected region of interest
// are touched; interior pixels deeper than the wall thickness keep
// their value.
//
// The band is found by eroding the printed silhouette by the wall
// thickness: the ring between the silhouette and its eroded interior
// is painted at the base brightness. With Gradient set, wider nested
// rings are painted first at higher brightness, so the dimming fades
// in over the gradient depth; narrower rings are painted later and win
// where rings overlap, ending with the full-strength ring nearest the
// boundary.
func DimWalls(pixels []uint8, size geometry.Size, roi geometry.Rect, layerExposure float64, opt Options) error {
	if err := opt.Validate(); err != nil {
		return err
	}
	if len(pixels) != size.Area() {
		return fmt.Errorf("buffer is %d bytes, want %d", len(pixels), size.Area())
	}
	if layerExposure <= 0 {
		return fmt.Errorf("layer exposure %.2fs is not positive", layerExposure)
	}
	roi = roi.Intersect(size.Bounds())
	if roi.Empty() {
		roi = size.Bounds()
	}

	brightness := BaseBrightness(opt.WallExposure, layerExposure)
	if brightness == 255 {
		return nil // wall exposure at or above the layer's own
	}

	region := make([]uint8, roi.Area())
	for y := 0; y < roi.Height; y++ {
		src := (roi.Y+y)*size.Width + roi.X
		copy(region[y*roi.Width:(y+1)*roi.Width], pixels[src:src+roi.Width])
	}

	src, err := gocv.NewMatFromBytes(roi.Height, roi.Width, gocv.MatTypeCV8UC1, region)
	if err != nil {
		return fmt.Errorf("failed to wrap region buffer: %w", err)
	}
	defer src.Close()

	// Printed silhouette: every lit pixel, whatever its gray level.
	sil := gocv.NewMat()
	defer sil.Close()
	gocv.Threshold(src, &sil, 0, 255, gocv.ThresholdBinary)

	if gocv.CountNonZero(sil) == 0 {
		return nil
	}

	var kern Kernel = DefaultKernel()
	if opt.DynamicKernel {
		kern = NewDynamicKernel(sil)
	}

	work := src.Clone()
	defer work.Close()

	num := 0
	if opt.Gradient {
		num = GradientBands(opt.GradientSize, opt.WallThickness)
	}

	for i := 0; i < num; i++ {
		paintRing(&work, sil, kern, opt.WallThickness-i, BandBrightness(i, num, brightness))
	}
	// The full-strength ring goes last so it wins over every band.
	paintRing(&work, sil, kern, opt.WallThickness-num, brightness)

	if opt.IgnoreSmallerThan > 0 {
		restoreSmallRegions(&work, src, sil, opt.IgnoreSmallerThan)
	}

	out := work.ToBytes()
	for y := 0; y < roi.Height; y++ {
		dst := (roi.Y+y)*size.Width + roi.X
		copy(pixels[dst:dst+roi.Width], out[y*roi.Width:(y+1)*roi.Width])
	}
	return nil
}

// paintRing erodes the silhouette by depth pixels and sets every pixel
// of the resulting boundary ring to value.
func paintRing(work *gocv.Mat, sil gocv.Mat, kern Kernel, depth int, value uint8) {
	if depth < 1 {
		return
	}
	elem, iters := kern.Element(depth)
	defer elem.Close()

	eroded := sil.Clone()
	defer eroded.Close()
	tmp := gocv.NewMat()
	defer tmp.Close()
	for i := 0; i < iters; i++ {
		gocv.Erode(eroded, &tmp, elem)
		tmp.CopyTo(&eroded)
	}

	ring := gocv.NewMat()
	defer ring.Close()
	gocv.Subtract(sil, eroded, &ring)

	solid := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(value), 0, 0, 0),
		work.Rows(), work.Cols(), gocv.MatTypeCV8UC1)
	defer solid.Close()
	solid.CopyToWithMask(work, ring)
}

// restoreSmallRegions copies the original pixels back over printed
// regions whose contour area falls below the threshold, exempting them
// from the dimming.
func restoreSmallRegions(work *gocv.Mat, src, sil gocv.Mat, threshold float64) {
	contours := gocv.FindContours(sil, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	small := gocv.NewMatWithSize(sil.Rows(), sil.Cols(), gocv.MatTypeCV8UC1)
	defer small.Close()

	found := false
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for i := 0; i < contours.Size(); i++ {
		if gocv.ContourArea(contours.At(i)) < threshold {
			gocv.DrawContours(&small, contours, i, white, -1)
			found = true
		}
	}
	if found {
		src.CopyToWithMask(work, small)
	}
}
