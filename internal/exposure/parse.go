// Package exposure handles exposure duration lists and grayscale
// exposure encoding (pixel dimming).
package exposure

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseMode selects how malformed exposure entries are treated.
type ParseMode int

const (
	// Lenient drops unparsable and sentinel (non-positive or
	// non-finite) entries silently.
	Lenient ParseMode = iota
	// Strict rejects the whole list if any entry is unusable.
	Strict
)

// ParseList parses a comma-separated list of exposure durations in
// seconds, e.g. "1.5, 2, 2.5". In Lenient mode entries that fail to
// parse, or that parse to a non-positive or non-finite value, are
// skipped; in Strict mode any such entry is an error naming the bad
// entries. An empty result is reported as an error in both modes,
// since no operation can run without at least one exposure.
func ParseList(text string, mode ParseMode) ([]float64, error) {
	var out []float64
	var bad []string

	for _, field := range strings.Split(text, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			bad = append(bad, field)
			continue
		}
		out = append(out, v)
	}

	if mode == Strict && len(bad) > 0 {
		return nil, fmt.Errorf("invalid exposure entries: %s", strings.Join(bad, ", "))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable exposure values in %q", text)
	}
	return out, nil
}

// Max returns the largest exposure in the list.
func Max(exposures []float64) float64 {
	m := 0.0
	for _, e := range exposures {
		if e > m {
			m = e
		}
	}
	return m
}
