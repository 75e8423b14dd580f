package control

import (
	"math"
	"time"
)

// InterpolationMode selects how a commanded setpoint is approached.
type InterpolationMode int

const (
	// InterpolationImmediate jumps straight to the new setpoint.
	InterpolationImmediate InterpolationMode = iota
	// InterpolationLinear moves toward the setpoint at a constant rate.
	InterpolationLinear
	// InterpolationSinusoidal eases in and out of the move along a half cosine.
	InterpolationSinusoidal
)

// MinInterpolationDuration is the shortest move that is interpolated. Shorter moves are
// applied immediately.
const MinInterpolationDuration = time.Millisecond

func (m InterpolationMode) String() string {
	switch m {
	case InterpolationImmediate:
		return "immediate"
	case InterpolationLinear:
		return "linear"
	case InterpolationSinusoidal:
		return "sinusoidal"
	default:
		return "unknown"
	}
}

// Progress returns how far through a move started at start and lasting duration the time now
// is, as a fraction in [0, 1].
func Progress(now, start time.Time, duration time.Duration, mode InterpolationMode) float64 {
	elapsed := now.Sub(start)
	if duration <= 0 || elapsed >= duration || mode == InterpolationImmediate {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	unit := float64(elapsed) / float64(duration)
	if mode == InterpolationSinusoidal {
		unit = 1 - (math.Cos(-math.Pi*unit)/2 + 0.5)
	}
	return unit
}

// Blend returns the point unit of the way from start to end. A unit of 1 or more yields end
// exactly.
func Blend(start, end, unit float64) float64 {
	if unit >= 1 {
		return end
	}
	return start + (end-start)*unit
}
