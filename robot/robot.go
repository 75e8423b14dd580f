// Package robot assembles a board, a control loop and the configured motors into one unit.
package robot

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/rbe1001/motorcontrol/components/board"
	fakeboard "github.com/rbe1001/motorcontrol/components/board/fake"
	"github.com/rbe1001/motorcontrol/components/board/periph"
	"github.com/rbe1001/motorcontrol/components/encoder"
	"github.com/rbe1001/motorcontrol/components/encoder/incremental"
	"github.com/rbe1001/motorcontrol/components/motor"
	"github.com/rbe1001/motorcontrol/components/motor/gpio"
	"github.com/rbe1001/motorcontrol/config"
	"github.com/rbe1001/motorcontrol/control"
	"github.com/rbe1001/motorcontrol/logging"
)

// EncoderFactory builds the position feedback for a configured motor.
type EncoderFactory func(ctx context.Context, b board.Board, name string, conf gpio.Config, logger logging.Logger) (encoder.Encoder, error)

// QuadratureEncoders builds an incremental encoder on each motor's encoder pins.
func QuadratureEncoders(ctx context.Context, b board.Board, name string, conf gpio.Config, logger logging.Logger) (encoder.Encoder, error) {
	return incremental.NewIncrementalEncoder(ctx, b, conf.Pins.EncoderPins(), logger)
}

type options struct {
	clk      clock.Clock
	board    board.Board
	encoders EncoderFactory
}

// An Option customizes New.
type Option func(*options)

// WithClock runs the control loop on clk.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clk = clk
	}
}

// WithBoard uses b instead of building the configured board. The robot still closes it.
func WithBoard(b board.Board) Option {
	return func(o *options) {
		o.board = b
	}
}

// WithEncoderFactory replaces QuadratureEncoders.
func WithEncoderFactory(f EncoderFactory) Option {
	return func(o *options) {
		o.encoders = f
	}
}

// A Robot owns one board, one loop and every motor on it.
type Robot struct {
	mu     sync.Mutex
	board  board.Board
	loop   *control.Loop
	motors map[string]*gpio.Motor
	order  []string
	logger logging.Logger
	closed bool
}

// New builds the board named in cfg, starts a loop and attaches each configured motor.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (_ *Robot, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{encoders: QuadratureEncoders}
	for _, opt := range opts {
		opt(&o)
	}

	b := o.board
	if b == nil {
		b, err = newBoard(ctx, cfg.Board, logger.Sublogger("board"))
		if err != nil {
			return nil, err
		}
	}

	r := &Robot{
		board: b,
		loop: control.NewLoop(control.LoopConfig{
			TickPeriod: cfg.Loop.TickPeriod(),
			Capacity:   cfg.Loop.Capacity,
			Clock:      o.clk,
		}, logger.Sublogger("loop")),
		motors: map[string]*gpio.Motor{},
		logger: logger,
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, r.Close(ctx))
		}
	}()

	for _, mc := range cfg.Motors {
		motorLogger := logger.Sublogger(mc.Name)
		enc, err := o.encoders(ctx, b, mc.Name, *mc.ConvertedAttributes, motorLogger.Sublogger("encoder"))
		if err != nil {
			return nil, errors.Wrapf(err, "cannot build encoder for motor %s", mc.Name)
		}
		m, err := gpio.NewMotor(ctx, r.loop, b, enc, mc.Name, *mc.ConvertedAttributes, motorLogger)
		if err != nil {
			return nil, err
		}
		r.motors[mc.Name] = m
		r.order = append(r.order, mc.Name)
	}
	return r, nil
}

func newBoard(ctx context.Context, conf config.BoardConfig, logger logging.Logger) (board.Board, error) {
	switch conf.Model {
	case config.BoardModelFake:
		return fakeboard.NewBoard(logger), nil
	case config.BoardModelPeriph:
		return periph.NewBoard(ctx, logger)
	default:
		return nil, errors.Errorf("unknown board model %q", conf.Model)
	}
}

// MotorByName returns the motor attached under name.
func (r *Robot) MotorByName(name string) (motor.Motor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.motors[name]
	if !ok {
		return nil, motor.NewNotFoundError(name)
	}
	return m, nil
}

// MotorNames returns the names of all motors in the order they were configured.
func (r *Robot) MotorNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Board returns the board the motors are wired to.
func (r *Robot) Board() board.Board {
	return r.board
}

// Loop returns the control loop servicing the motors.
func (r *Robot) Loop() *control.Loop {
	return r.loop
}

// ApplyGains pushes the control parameters of every motor in cfg to the attached motor of the same
// name. Pins and loop settings need a restart and are ignored. Motors missing from the robot are
// skipped with a warning.
func (r *Robot) ApplyGains(ctx context.Context, cfg *config.Config) error {
	var errs error
	for _, mc := range cfg.Motors {
		m, err := r.MotorByName(mc.Name)
		if err != nil {
			r.logger.CWarnw(ctx, "config names a motor that is not attached", "motor", mc.Name)
			continue
		}
		if mc.ConvertedAttributes == nil || mc.ConvertedAttributes.ControlParameters == nil {
			continue
		}
		gains := *mc.ConvertedAttributes.ControlParameters
		current, err := m.Gains(ctx)
		if err != nil {
			errs = multierr.Combine(errs, err)
			continue
		}
		if current == gains {
			continue
		}
		if err := m.SetGains(ctx, gains); err != nil {
			errs = multierr.Combine(errs, err)
			continue
		}
		r.logger.CInfow(ctx, "updated gains", "motor", mc.Name, "p", gains.P, "i", gains.I, "d", gains.D)
	}
	return errs
}

// Close stops every motor, releases them concurrently, then stops the loop and closes the board.
func (r *Robot) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	motors := make([]*gpio.Motor, 0, len(r.motors))
	for _, name := range r.order {
		motors = append(motors, r.motors[name])
	}
	r.mu.Unlock()

	var g errgroup.Group
	for _, m := range motors {
		m := m
		g.Go(func() error {
			return multierr.Combine(
				m.Stop(ctx),
				m.Close(ctx),
			)
		})
	}
	err := g.Wait()
	r.loop.Stop()
	return multierr.Combine(err, r.board.Close(ctx))
}
