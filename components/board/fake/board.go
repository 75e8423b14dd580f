// Package fake implements a fake board.
package fake

import (
	"context"
	"sync"

	"github.com/rbe1001/motorcontrol/components/board"
	"github.com/rbe1001/motorcontrol/logging"
)

// A Board hands out in-memory pins and interrupts, creating them on first request.
type Board struct {
	mu         sync.Mutex
	Digitals   map[string]*board.BasicDigitalInterrupt
	GPIOPins   map[string]*GPIOPin
	logger     logging.Logger
	CloseCount int
}

// NewBoard returns a new fake board.
func NewBoard(logger logging.Logger) *Board {
	return &Board{
		Digitals: map[string]*board.BasicDigitalInterrupt{},
		GPIOPins: map[string]*GPIOPin{},
		logger:   logger,
	}
}

// DigitalInterruptByName returns the interrupt by the given name, creating a pulled-up one if
// it does not exist yet.
func (b *Board) DigitalInterruptByName(name string) (board.DigitalInterrupt, error) {
	return b.Interrupt(name), nil
}

// Interrupt returns the concrete fake interrupt so tests can drive its edges.
func (b *Board) Interrupt(name string) *board.BasicDigitalInterrupt {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.Digitals[name]
	if !ok {
		d = board.NewBasicDigitalInterrupt(name, true)
		b.Digitals[name] = d
	}
	return d
}

// GPIOPinByName returns the GPIO pin by the given name if it exists.
func (b *Board) GPIOPinByName(name string) (board.GPIOPin, error) {
	return b.Pin(name), nil
}

// Pin returns the concrete fake pin so tests can inspect what was written.
func (b *Board) Pin(name string) *GPIOPin {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.GPIOPins[name]
	if !ok {
		p = &GPIOPin{}
		b.GPIOPins[name] = p
	}
	return p
}

// Close attempts to cleanly close each part of the board.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCount++
	b.logger.Debugw("closing fake board", "pins", len(b.GPIOPins), "interrupts", len(b.Digitals))
	return nil
}

// A GPIOPin reads back the same set values.
type GPIOPin struct {
	high    bool
	pwm     float64
	pwmFreq uint
	pwmMin  float64
	pwmMax  float64

	writes    int
	pwmWrites int

	mu sync.Mutex
}

// Set sets the pin to either low or high.
func (gp *GPIOPin) Set(ctx context.Context, high bool, extra map[string]interface{}) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	gp.high = high
	gp.pwm = 0
	gp.writes++
	return nil
}

// Get gets the high/low state of the pin.
func (gp *GPIOPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	return gp.high, nil
}

// PWM gets the pin's given duty cycle.
func (gp *GPIOPin) PWM(ctx context.Context, extra map[string]interface{}) (float64, error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	return gp.pwm, nil
}

// SetPWM sets the pin to the given duty cycle.
func (gp *GPIOPin) SetPWM(ctx context.Context, dutyCyclePct float64, extra map[string]interface{}) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.pwmWrites == 0 || dutyCyclePct < gp.pwmMin {
		gp.pwmMin = dutyCyclePct
	}
	if gp.pwmWrites == 0 || dutyCyclePct > gp.pwmMax {
		gp.pwmMax = dutyCyclePct
	}
	gp.pwm = dutyCyclePct
	gp.pwmWrites++
	gp.writes++
	return nil
}

// PWMFreq gets the PWM frequency of the pin.
func (gp *GPIOPin) PWMFreq(ctx context.Context, extra map[string]interface{}) (uint, error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	return gp.pwmFreq, nil
}

// SetPWMFreq sets the given pin to the given PWM frequency.
func (gp *GPIOPin) SetPWMFreq(ctx context.Context, freqHz uint, extra map[string]interface{}) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	gp.pwmFreq = freqHz
	return nil
}

// PWMRange returns the smallest and largest duty cycles ever written to the pin.
func (gp *GPIOPin) PWMRange() (float64, float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return gp.pwmMin, gp.pwmMax
}

// Writes returns how many level or duty writes the pin has received.
func (gp *GPIOPin) Writes() int {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return gp.writes
}
