// Package periph implements a board backed by periph.io, which covers the GPIO controllers of
// most Linux single-board computers.
package periph

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/rbe1001/motorcontrol/components/board"
	"github.com/rbe1001/motorcontrol/logging"
	"github.com/rbe1001/motorcontrol/utils"
)

// edgePollTimeout bounds how long an interrupt worker blocks before checking for shutdown.
const edgePollTimeout = 100 * time.Millisecond

type pwmSetting struct {
	dutyCycle gpio.Duty
	frequency physic.Frequency
	software  bool
}

// Board drives pins through the periph.io host drivers.
type Board struct {
	mu         sync.RWMutex
	pins       map[string]*gpioPin
	interrupts map[string]*board.BasicDigitalInterrupt
	inputs     map[string]gpio.PinIO
	pwms       map[string]pwmSetting

	logger  logging.Logger
	workers *goutils.StoppableWorkers
}

// NewBoard initialises the periph host drivers and returns a board using them.
func NewBoard(ctx context.Context, logger logging.Logger) (*Board, error) {
	state, err := host.Init()
	if err != nil {
		return nil, errors.Wrap(err, "error initializing host")
	}
	for _, failure := range state.Failed {
		logger.CDebugw(ctx, "periph driver failed to load", "driver", failure.D.String(), "error", failure.Err)
	}
	return &Board{
		pins:       map[string]*gpioPin{},
		interrupts: map[string]*board.BasicDigitalInterrupt{},
		inputs:     map[string]gpio.PinIO{},
		pwms:       map[string]pwmSetting{},
		logger:     logger,
		workers:    goutils.NewBackgroundStoppableWorkers(),
	}, nil
}

func lookup(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		// bare numbers name the SoC line, e.g. "13" is GPIO13
		pin = gpioreg.ByName("GPIO" + name)
	}
	if pin == nil {
		return nil, utils.NewPinNotFoundError("gpio pin", name)
	}
	return pin, nil
}

// GPIOPinByName returns the GPIO pin by the given name if it exists.
func (b *Board) GPIOPinByName(name string) (board.GPIOPin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gp, ok := b.pins[name]; ok {
		return gp, nil
	}
	pin, err := lookup(name)
	if err != nil {
		return nil, err
	}
	gp := &gpioPin{b: b, pin: pin, pinName: name}
	b.pins[name] = gp
	return gp, nil
}

// DigitalInterruptByName configures the named pin as a pulled-up input reporting both edges.
func (b *Board) DigitalInterruptByName(name string) (board.DigitalInterrupt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if di, ok := b.interrupts[name]; ok {
		return di, nil
	}
	pin, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, errors.Wrapf(err, "cannot configure %s as an interrupt", name)
	}
	di := board.NewBasicDigitalInterrupt(name, pin.Read() == gpio.High)
	b.interrupts[name] = di
	b.inputs[name] = pin

	b.workers.Add(func(ctx context.Context) {
		for {
			if ctx.Err() != nil {
				return
			}
			if !pin.WaitForEdge(edgePollTimeout) {
				continue
			}
			if err := di.Tick(ctx, pin.Read() == gpio.High, uint64(time.Now().UnixNano())); err != nil {
				return
			}
		}
	})
	return di, nil
}

// Close stops every background worker and halts all output and interrupt pins that were handed out.
func (b *Board) Close(ctx context.Context) error {
	b.workers.Stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	toHalt := make(map[string]halter, len(b.pins)+len(b.inputs))
	for name, gp := range b.pins {
		toHalt[name] = gp.pin
	}
	for name, pin := range b.inputs {
		toHalt[name] = pin
	}
	b.pwms = map[string]pwmSetting{}
	return haltPins(toHalt)
}

type halter interface {
	Halt() error
}

// haltPins halts every pin, collecting the errors of those that fail.
func haltPins(pins map[string]halter) error {
	var errs error
	for name, pin := range pins {
		if err := pin.Halt(); err != nil {
			errs = multierr.Combine(errs, errors.Wrapf(err, "cannot halt %s", name))
		}
	}
	return errs
}

type gpioPin struct {
	b       *Board
	pin     gpio.PinIO
	pinName string
}

func (gp *gpioPin) Set(ctx context.Context, high bool, extra map[string]interface{}) error {
	gp.b.mu.Lock()
	defer gp.b.mu.Unlock()

	delete(gp.b.pwms, gp.pinName)

	return gp.set(high)
}

func (gp *gpioPin) set(high bool) error {
	l := gpio.Low
	if high {
		l = gpio.High
	}
	return gp.pin.Out(l)
}

func (gp *gpioPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	return gp.pin.Read() == gpio.High, nil
}

func (gp *gpioPin) PWM(ctx context.Context, extra map[string]interface{}) (float64, error) {
	gp.b.mu.RLock()
	defer gp.b.mu.RUnlock()

	return float64(gp.b.pwms[gp.pinName].dutyCycle) / float64(gpio.DutyMax), nil
}

func (gp *gpioPin) SetPWM(ctx context.Context, dutyCyclePct float64, extra map[string]interface{}) error {
	gp.b.mu.Lock()
	defer gp.b.mu.Unlock()

	last := gp.b.pwms[gp.pinName]
	last.dutyCycle = gpio.Duty(utils.Clamp(dutyCyclePct, 0, 1) * float64(gpio.DutyMax))
	return gp.apply(last)
}

func (gp *gpioPin) PWMFreq(ctx context.Context, extra map[string]interface{}) (uint, error) {
	gp.b.mu.RLock()
	defer gp.b.mu.RUnlock()

	return uint(gp.b.pwms[gp.pinName].frequency / physic.Hertz), nil
}

func (gp *gpioPin) SetPWMFreq(ctx context.Context, freqHz uint, extra map[string]interface{}) error {
	gp.b.mu.Lock()
	defer gp.b.mu.Unlock()

	last := gp.b.pwms[gp.pinName]
	last.frequency = physic.Hertz * physic.Frequency(freqHz)
	return gp.apply(last)
}

// apply pushes a setting to the hardware PWM, falling back to a software loop on pins without
// one. Callers hold b.mu.
func (gp *gpioPin) apply(setting pwmSetting) error {
	if setting.frequency == 0 {
		setting.frequency = board.DefaultPWMFreqHz * physic.Hertz
	}
	_, running := gp.b.pwms[gp.pinName]
	if !setting.software {
		if err := gp.pin.PWM(setting.dutyCycle, setting.frequency); err == nil {
			gp.b.pwms[gp.pinName] = setting
			return nil
		}
		gp.b.logger.Debugw("hardware pwm unavailable, using software pwm", "pin_name", gp.pinName)
		setting.software = true
		running = false
	}
	gp.b.pwms[gp.pinName] = setting
	if !running {
		gp.b.workers.Add(func(ctx context.Context) {
			gp.b.softwarePWMLoop(ctx, gp)
		})
	}
	return nil
}

func (b *Board) softwarePWMLoop(ctx context.Context, gp *gpioPin) {
	for {
		cont := func() bool {
			b.mu.RLock()
			setting, ok := b.pwms[gp.pinName]
			b.mu.RUnlock()
			if !ok || !setting.software {
				b.logger.Debug("pwm setting deleted; stopping")
				return false
			}

			onPeriod := time.Duration(
				int64((float64(setting.dutyCycle) / float64(gpio.DutyMax)) * float64(setting.frequency.Period())),
			)
			if onPeriod > 0 {
				if err := gp.set(true); err != nil {
					b.logger.Errorw("error setting pin", "pin_name", gp.pinName, "error", err)
					return true
				}
				if !goutils.SelectContextOrWait(ctx, onPeriod) {
					return false
				}
			}
			if err := gp.set(false); err != nil {
				b.logger.Errorw("error setting pin", "pin_name", gp.pinName, "error", err)
				return true
			}
			offPeriod := setting.frequency.Period() - onPeriod

			return goutils.SelectContextOrWait(ctx, offPeriod)
		}()
		if !cont {
			return
		}
	}
}
