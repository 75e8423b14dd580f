// Package motor defines a position controlled DC motor.
package motor

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rbe1001/motorcontrol/control"
)

// InterpolationMode selects how a motor moves to a new setpoint.
type InterpolationMode = control.InterpolationMode

// The supported interpolation modes.
const (
	InterpolationImmediate  = control.InterpolationImmediate
	InterpolationLinear     = control.InterpolationLinear
	InterpolationSinusoidal = control.InterpolationSinusoidal
)

// A Motor drives a joint to a commanded angle with a closed position loop, or at a fixed effort
// with the loop open.
type Motor interface {
	// Name returns the name the motor was attached under.
	Name() string

	// SetSetpointWithTime moves to targetDegrees over d, shaped by mode. Moves shorter than a
	// millisecond are applied at once. Repeating the active command does not restart it.
	SetSetpointWithTime(ctx context.Context, targetDegrees float64, d time.Duration, mode InterpolationMode) error

	// SetEffort opens the loop and drives at effort, clamped to [-1, 1].
	SetEffort(ctx context.Context, effort float64) error

	// SetGains replaces the position loop gains and clears the integral.
	SetGains(ctx context.Context, gains control.PIDConfig) error

	// Gains returns the position loop gains.
	Gains(ctx context.Context) (control.PIDConfig, error)

	// DegreesPerSecond returns the last velocity estimate.
	DegreesPerSecond(ctx context.Context) (float64, error)

	// CurrentDegrees returns the position read on the last loop tick.
	CurrentDegrees(ctx context.Context) (float64, error)

	// Stop drives at zero effort with the loop open.
	Stop(ctx context.Context) error

	// Close detaches the motor from its loop and releases its hardware.
	Close(ctx context.Context) error
}

// ClampPower clamps a percentage power to 1.0 or -1.0.
func ClampPower(pwr float64) float64 {
	pwr = math.Min(pwr, 1.0)
	pwr = math.Max(pwr, -1.0)
	return pwr
}

// ParseInterpolationMode converts a mode name as printed by InterpolationMode.String.
func ParseInterpolationMode(name string) (InterpolationMode, error) {
	for _, mode := range []InterpolationMode{InterpolationImmediate, InterpolationLinear, InterpolationSinusoidal} {
		if strings.EqualFold(name, mode.String()) {
			return mode, nil
		}
	}
	return InterpolationImmediate, errors.Errorf("unknown interpolation mode %q", name)
}
