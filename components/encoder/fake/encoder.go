// Package fake implements a fake encoder.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"go.viam.com/utils"

	"github.com/rbe1001/motorcontrol/components/encoder"
)

const defaultUpdateRate = 10 * time.Millisecond

// Encoder keeps track of a fake motor position.
type Encoder struct {
	mu         sync.Mutex
	position   float64
	speed      float64 // ticks per second
	updateRate time.Duration
	paused     bool

	workers *utils.StoppableWorkers
}

// NewEncoder returns a fake encoder whose position integrates its speed every updateRate.
// A zero updateRate uses 10ms.
func NewEncoder(updateRate time.Duration) *Encoder {
	if updateRate <= 0 {
		updateRate = defaultUpdateRate
	}
	return &Encoder{updateRate: updateRate}
}

// Start starts a background thread to run the encoder.
func (e *Encoder) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.workers != nil {
		return
	}
	if e.updateRate <= 0 {
		e.updateRate = defaultUpdateRate
	}
	rate := e.updateRate
	e.workers = utils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		for {
			if !utils.SelectContextOrWait(ctx, rate) {
				return
			}
			e.mu.Lock()
			if !e.paused {
				e.position += e.speed * rate.Seconds()
			}
			e.mu.Unlock()
		}
	})
}

// Position returns the current position in terms of ticks.
func (e *Encoder) Position(ctx context.Context) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(math.Round(e.position)), nil
}

// ResetPosition sets the current position of the motor to be its new zero position.
func (e *Encoder) ResetPosition(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = 0
	return nil
}

// SetSpeed sets the speed of the fake motor the encoder is measuring, in ticks per second.
func (e *Encoder) SetSpeed(ctx context.Context, speed float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = speed
	return nil
}

// SetPosition sets the position of the encoder.
func (e *Encoder) SetPosition(ctx context.Context, position int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = float64(position)
	return nil
}

// Pause freezes the position.
func (e *Encoder) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	return nil
}

// Paused reports whether Pause was called.
func (e *Encoder) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Close stops the background thread.
func (e *Encoder) Close(ctx context.Context) error {
	e.mu.Lock()
	workers := e.workers
	e.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
	return nil
}

var _ encoder.Encoder = (*Encoder)(nil)
