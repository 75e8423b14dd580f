// Package gpio implements a DC motor driven through a PWM pin and a direction pin, with a
// quadrature encoder closing the position loop.
package gpio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/rbe1001/motorcontrol/components/board"
	"github.com/rbe1001/motorcontrol/components/encoder"
	"github.com/rbe1001/motorcontrol/components/encoder/incremental"
	"github.com/rbe1001/motorcontrol/components/motor"
	"github.com/rbe1001/motorcontrol/control"
	"github.com/rbe1001/motorcontrol/logging"
)

// Motor is a closed loop position controlled motor serviced by a control.Loop. Every field
// below mu is guarded by the loop's shared lock.
type Motor struct {
	name           string
	loop           *control.Loop
	mu             sync.Locker
	clk            clock.Clock
	dir            board.GPIOPin
	pwm            *board.PWM
	enc            encoder.Encoder
	ticksToDegrees float64
	logger         logging.Logger
	slot           int

	setpoint      float64
	startSetpoint float64
	endSetpoint   float64
	startTime     time.Time
	duration      time.Duration
	mode          motor.InterpolationMode
	unitDuration  float64
	closedLoop    bool
	pid           *control.LeakyPID
	currentEffort float64
	nowEncoder    int64
	velocity      *control.VelocityEstimator
	closed        bool
}

// State is a consistent snapshot of a motor's control state.
type State struct {
	Setpoint      float64
	StartSetpoint float64
	EndSetpoint   float64
	StartTime     time.Time
	Duration      time.Duration
	Mode          motor.InterpolationMode
	UnitDuration  float64
	ClosedLoop    bool
	Effort        float64
	Encoder       int64
	ITerm         float64
	// TicksPerSecond is the raw velocity estimate; DegreesPerSecond scales it.
	TicksPerSecond float64
}

// Attach binds the pins named in conf on b, builds a quadrature encoder on the encoder pins and
// registers the motor with loop, starting the loop if it is not running yet.
func Attach(
	ctx context.Context,
	loop *control.Loop,
	b board.Board,
	name string,
	conf Config,
	logger logging.Logger,
) (*Motor, error) {
	if err := conf.Validate(name); err != nil {
		return nil, err
	}
	enc, err := incremental.NewIncrementalEncoder(ctx, b, conf.Pins.EncoderPins(), logger.Sublogger("encoder"))
	if err != nil {
		return nil, err
	}
	return NewMotor(ctx, loop, b, enc, name, conf, logger)
}

// NewMotor is Attach with the position feedback supplied by the caller. The motor takes ownership
// of enc and closes it on failure.
//
// The motor's state is guarded by loop.Locker, which is per Loop rather than per process. Motors
// only share a lock, and a tick, when they are attached to the same loop.
func NewMotor(
	ctx context.Context,
	loop *control.Loop,
	b board.Board,
	enc encoder.Encoder,
	name string,
	conf Config,
	logger logging.Logger,
) (m *Motor, err error) {
	defer func() {
		if err != nil {
			err = multierr.Combine(err, enc.Close(ctx))
		}
	}()
	if err := conf.Validate(name); err != nil {
		return nil, err
	}
	conf = conf.WithDefaults()

	dir, err := b.GPIOPinByName(conf.Pins.Direction)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot find direction pin for motor %s", name)
	}
	pwmPin, err := b.GPIOPinByName(conf.Pins.PWM)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot find pwm pin for motor %s", name)
	}
	pwm, err := board.AttachPWM(ctx, pwmPin, conf.PWMFreqHz, conf.PWMResolutionBits)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot attach pwm for motor %s", name)
	}

	m = &Motor{
		name:           name,
		loop:           loop,
		mu:             loop.Locker(),
		clk:            loop.Clock(),
		dir:            dir,
		pwm:            pwm,
		enc:            enc,
		ticksToDegrees: conf.TicksToDegrees,
		logger:         logger,
		pid:            control.NewLeakyPID(*conf.ControlParameters, conf.ITermSize),
		velocity:       control.NewVelocityEstimator(loop.TickPeriod()),
	}
	if err := dir.Set(ctx, false, nil); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "cannot set direction pin for motor %s", name), pwm.Detach(ctx))
	}

	slot, err := loop.Register(m)
	if err != nil {
		return nil, multierr.Combine(err, pwm.Detach(ctx))
	}
	m.slot = slot
	logger.CInfow(ctx, "allocating motor", "slot", slot, "pwm_pin", conf.Pins.PWM, "dir_pin", conf.Pins.Direction)
	loop.Start()
	return m, nil
}

// Name returns the name the motor was attached under.
func (m *Motor) Name() string {
	return m.name
}

// Slot returns the loop slot the motor occupies.
func (m *Motor) Slot() int {
	return m.slot
}

// Tick runs one control step: read the encoder, advance the interpolated setpoint, run the PID
// when the loop is closed, update the velocity estimate, and write the effort out.
func (m *Motor) Tick(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}

	pos, err := m.enc.Position(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot read encoder")
	}
	m.nowEncoder = pos
	if m.closedLoop {
		m.unitDuration = control.Progress(m.clk.Now(), m.startTime, m.duration, m.mode)
		m.setpoint = control.Blend(m.startSetpoint, m.endSetpoint, m.unitDuration)
		m.currentEffort = motor.ClampPower(m.pid.Update(m.setpoint, float64(m.nowEncoder)))
	}
	m.velocity.Update(m.nowEncoder)
	return m.setEffortLocal(ctx, m.currentEffort)
}

// setEffortLocal writes effort to the pins. Callers hold mu.
func (m *Motor) setEffortLocal(ctx context.Context, effort float64) error {
	effort = motor.ClampPower(effort)
	if err := m.dir.Set(ctx, effort > 0, nil); err != nil {
		return errors.Wrap(err, "cannot set direction")
	}
	return m.pwm.WriteScaled(ctx, math.Abs(effort))
}

// SetSetpointWithTime moves to targetDegrees over d, shaped by mode.
func (m *Motor) SetSetpointWithTime(
	ctx context.Context,
	targetDegrees float64,
	d time.Duration,
	mode motor.InterpolationMode,
) error {
	if d < 0 {
		return motor.NewNegativeDurationError(m.name, d)
	}
	if d < control.MinInterpolationDuration {
		mode = motor.InterpolationImmediate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return motor.NewClosedError(m.name)
	}
	target := targetDegrees / m.ticksToDegrees
	if m.closedLoop && m.endSetpoint == target && m.duration == d && m.mode == mode {
		return nil
	}
	m.startSetpoint = m.setpoint
	m.endSetpoint = target
	m.startTime = m.clk.Now()
	m.duration = d
	m.mode = mode
	m.unitDuration = 0
	if mode == motor.InterpolationImmediate {
		m.setpoint = target
		m.unitDuration = 1
	}
	m.closedLoop = true
	m.logger.CDebugw(ctx, "new setpoint", "degrees", targetDegrees, "ticks", target, "duration", d, "mode", mode.String())
	return nil
}

// SetEffort opens the loop and drives at effort from the next tick on.
func (m *Motor) SetEffort(ctx context.Context, effort float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return motor.NewClosedError(m.name)
	}
	m.closedLoop = false
	m.currentEffort = motor.ClampPower(effort)
	return nil
}

// Stop drives at zero effort with the loop open.
func (m *Motor) Stop(ctx context.Context) error {
	return m.SetEffort(ctx, 0)
}

// SetGains replaces the position loop gains and clears the integral.
func (m *Motor) SetGains(ctx context.Context, gains control.PIDConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return motor.NewClosedError(m.name)
	}
	m.pid.SetGains(gains)
	return nil
}

// Gains returns the position loop gains.
func (m *Motor) Gains(ctx context.Context) (control.PIDConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pid.Gains(), nil
}

// DegreesPerSecond returns the last velocity estimate.
func (m *Motor) DegreesPerSecond(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.velocity.Speed() * m.ticksToDegrees, nil
}

// CurrentDegrees returns the position read on the last tick.
func (m *Motor) CurrentDegrees(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.nowEncoder) * m.ticksToDegrees, nil
}

// State returns a snapshot of the control state.
func (m *Motor) State(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Setpoint:       m.setpoint,
		StartSetpoint:  m.startSetpoint,
		EndSetpoint:    m.endSetpoint,
		StartTime:      m.startTime,
		Duration:       m.duration,
		Mode:           m.mode,
		UnitDuration:   m.unitDuration,
		ClosedLoop:     m.closedLoop,
		Effort:         m.currentEffort,
		Encoder:        m.nowEncoder,
		ITerm:          m.pid.ITerm(),
		TicksPerSecond: m.velocity.Speed(),
	}
}

// Close removes the motor from its loop, then pauses the encoder and detaches the PWM.
func (m *Motor) Close(ctx context.Context) error {
	m.loop.Deregister(m)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.logger.CDebugw(ctx, "releasing motor", "slot", m.slot)
	return multierr.Combine(
		m.enc.Pause(ctx),
		m.enc.Close(ctx),
		m.pwm.Detach(ctx),
	)
}

var _ motor.Motor = (*Motor)(nil)
