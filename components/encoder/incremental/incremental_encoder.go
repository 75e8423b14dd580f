// Package incremental implements an incremental encoder
package incremental

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"github.com/rbe1001/motorcontrol/components/board"
	"github.com/rbe1001/motorcontrol/components/encoder"
	"github.com/rbe1001/motorcontrol/logging"
)

// Encoder keeps track of a motor position using a rotary incremental encoder. Positions are
// reported at half-quadrature resolution: two state transitions per tick.
type Encoder struct {
	A, B     board.DigitalInterrupt
	position atomic.Int64
	pRaw     atomic.Int64
	pState   int64
	paused   atomic.Bool

	logger  logging.Logger
	workers *utils.StoppableWorkers
}

// Pins describes the configuration of Pins for a quadrature encoder.
type Pins struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Validate ensures all parts of the config are valid.
func (pins *Pins) Validate(path string) error {
	if pins.A == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "a")
	}
	if pins.B == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "b")
	}
	return nil
}

// NewIncrementalEncoder creates a new Encoder counting edges of the two named interrupts.
func NewIncrementalEncoder(
	ctx context.Context,
	b board.Board,
	pins Pins,
	logger logging.Logger,
) (*Encoder, error) {
	a, err := b.DigitalInterruptByName(pins.A)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot find pin (%s) for incremental Encoder", pins.A)
	}
	bPin, err := b.DigitalInterruptByName(pins.B)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot find pin (%s) for incremental Encoder", pins.B)
	}
	e := &Encoder{
		A:      a,
		B:      bPin,
		logger: logger,
	}
	e.start(ctx)
	return e, nil
}

func (e *Encoder) start(ctx context.Context) {
	/**
	  a rotary encoder looks like

	  picture from https://github.com/joan2937/pigpio/blob/master/EXAMPLES/C/ROTARY_ENCODER/rotary_encoder.c
	    1   2     3    4    1    2    3    4     1

	            +---------+         +---------+      0
	            |         |         |         |
	  A         |         |         |         |
	            |         |         |         |
	  +---------+         +---------+         +----- 1

	      +---------+         +---------+            0
	      |         |         |         |
	  B   |         |         |         |
	      |         |         |         |
	  ----+         +---------+         +---------+  1

	*/

	// State Transition Table
	//     +---------------+----+----+----+----+
	//     | pState/nState | 00 | 01 | 10 | 11 |
	//     +---------------+----+----+----+----+
	//     |       00      | 0  | -1 | +1 | x  |
	//     +---------------+----+----+----+----+
	//     |       01      | +1 | 0  | x  | -1 |
	//     +---------------+----+----+----+----+
	//     |       10      | -1 | x  | 0  | +1 |
	//     +---------------+----+----+----+----+
	//     |       11      | x  | +1 | -1 | 0  |
	//     +---------------+----+----+----+----+
	// 0 -> same state
	// x -> impossible state

	chanA := make(chan board.Tick)
	chanB := make(chan board.Tick)

	e.A.AddCallback(chanA)
	e.B.AddCallback(chanB)

	aLevel, err := e.A.Value(ctx, nil)
	if err != nil {
		e.logger.CErrorw(ctx, "error reading a level", "error", err)
	}
	bLevel, err := e.B.Value(ctx, nil)
	if err != nil {
		e.logger.CErrorw(ctx, "error reading b level", "error", err)
	}
	e.pState = aLevel | (bLevel << 1)

	e.workers = utils.NewBackgroundStoppableWorkers(func(cancelCtx context.Context) {
		defer e.A.RemoveCallback(chanA)
		defer e.B.RemoveCallback(chanB)
		for {
			var tick board.Tick

			select {
			case <-cancelCtx.Done():
				return
			case tick = <-chanA:
				aLevel = 0
				if tick.High {
					aLevel = 1
				}
			case tick = <-chanB:
				bLevel = 0
				if tick.High {
					bLevel = 1
				}
			}
			nState := aLevel | (bLevel << 1)
			if e.pState == nState {
				continue
			}
			// levels keep tracking while paused so counting resumes from a consistent state
			if e.paused.Load() {
				e.pState = nState
				continue
			}
			switch (e.pState << 2) | nState {
			case 0b0001, 0b0111, 0b1000, 0b1110:
				e.position.Store(e.pRaw.Dec() >> 1)
				e.pState = nState
			case 0b0010, 0b0100, 0b1011, 0b1101:
				e.position.Store(e.pRaw.Inc() >> 1)
				e.pState = nState
			default:
				// a skipped state cannot be attributed to either direction
				e.logger.Debugw("encoder skipped a state", "from", e.pState, "to", nState)
				e.pState = nState
			}
		}
	})
}

// Position returns the current position in ticks.
func (e *Encoder) Position(ctx context.Context) (int64, error) {
	return e.position.Load(), nil
}

// ResetPosition sets the current position of the motor to be its new zero position.
func (e *Encoder) ResetPosition(ctx context.Context) error {
	e.position.Store(0)
	e.pRaw.Store(e.pRaw.Load() & 0x1)
	return nil
}

// RawPosition returns the raw position of the encoder.
func (e *Encoder) RawPosition() int64 {
	return e.pRaw.Load()
}

// Pause stops the encoder from counting transitions.
func (e *Encoder) Pause(ctx context.Context) error {
	e.paused.Store(true)
	return nil
}

// Close shuts down the Encoder.
func (e *Encoder) Close(ctx context.Context) error {
	e.logger.CDebugw(ctx, "Closing incremental Encoder")
	e.workers.Stop()
	return nil
}

var _ encoder.Encoder = (*Encoder)(nil)
