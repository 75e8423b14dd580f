// Package encoder defines the position feedback consumed by motors.
package encoder

import (
	"context"

	"github.com/pkg/errors"
)

// ErrPaused is returned by encoders asked to count after Pause.
var ErrPaused = errors.New("encoder is paused")

// A Encoder reports a signed tick count since it was last zeroed.
type Encoder interface {
	// Position returns the number of ticks since the last reset.
	Position(ctx context.Context) (int64, error)

	// ResetPosition makes the current position the new zero.
	ResetPosition(ctx context.Context) error

	// Pause stops counting. The last position stays readable.
	Pause(ctx context.Context) error

	// Close releases the pins backing the encoder.
	Close(ctx context.Context) error
}
