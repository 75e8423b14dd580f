package utils

import (
	"math"

	"github.com/pkg/errors"
)

// ErrDegenerateRange is returned by FmapBounded when the input range has zero width.
var ErrDegenerateRange = errors.New("input range has zero width")

// FmapBounded linearly maps x from [inMin, inMax] onto [outMin, outMax]. Inputs outside the
// input range are clamped to the matching output bound.
func FmapBounded(x, inMin, inMax, outMin, outMax float64) (float64, error) {
	if inMax == inMin {
		return outMin, errors.Wrapf(ErrDegenerateRange, "cannot map %f from [%f, %f]", x, inMin, inMax)
	}
	if x > inMax {
		return outMax, nil
	}
	if x < inMin {
		return outMin, nil
	}
	return ((x-inMin)*(outMax-outMin))/(inMax-inMin) + outMin, nil
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}
