package exposure

import "fmt"

// Brightness maps an exposure duration to a grayscale dimming value
// relative to the strongest exposure in the batch:
// round(255 * seconds / maxSeconds). A pixel printed at this gray level
// under maxSeconds of light receives the same dose it would have under
// seconds of full-brightness light.
func Brightness(seconds, maxSeconds float64) uint8 {
	if maxSeconds <= 0 {
		return 255
	}
	v := 255.0*seconds/maxSeconds + 0.5
	if v >= 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}

// Apply dims a layer buffer in place through a brightness mask of the
// same dimensions: out = round(pixel * mask / 255). Unprinted (zero)
// pixels stay zero and no pixel ever gets brighter.
func Apply(pixels, mask []uint8) error {
	if len(pixels) != len(mask) {
		return fmt.Errorf("buffer is %d bytes, mask is %d", len(pixels), len(mask))
	}
	for i, p := range pixels {
		if p == 0 {
			continue
		}
		// Exact round of p*m/255: the remainder can never be
		// exactly half, so +127 rounds to nearest.
		pixels[i] = uint8((int(p)*int(mask[i]) + 127) / 255)
	}
	return nil
}
