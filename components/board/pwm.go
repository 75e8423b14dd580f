package board

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/rbe1001/motorcontrol/utils"
)

const (
	// DefaultPWMFreqHz is the carrier frequency motors are driven at.
	DefaultPWMFreqHz = 20000
	// DefaultPWMResolutionBits is the duty resolution motors are driven at.
	DefaultPWMResolutionBits = 8

	maxPWMResolutionBits = 16
)

// PWM is a PWM channel attached to a GPIO pin with a fixed frequency and duty resolution.
// Duty cycles written through it are quantised to 2^resolution-1 steps.
type PWM struct {
	mu             sync.Mutex
	pin            GPIOPin
	freqHz         uint
	resolutionBits uint
	maxCount       float64
	duty           float64
	detached       bool
}

// AttachPWM configures pin as a PWM output at the given frequency and resolution.
func AttachPWM(ctx context.Context, pin GPIOPin, freqHz, resolutionBits uint) (*PWM, error) {
	if pin == nil {
		return nil, errors.New("cannot attach pwm to a nil pin")
	}
	if freqHz == 0 {
		freqHz = DefaultPWMFreqHz
	}
	if resolutionBits == 0 {
		resolutionBits = DefaultPWMResolutionBits
	}
	if resolutionBits > maxPWMResolutionBits {
		return nil, errors.Errorf("pwm resolution %d bits is more than the supported %d", resolutionBits, maxPWMResolutionBits)
	}
	if err := pin.SetPWMFreq(ctx, freqHz, nil); err != nil {
		return nil, errors.Wrap(err, "cannot set pwm frequency")
	}
	if err := pin.SetPWM(ctx, 0, nil); err != nil {
		return nil, errors.Wrap(err, "cannot zero pwm duty")
	}
	return &PWM{
		pin:            pin,
		freqHz:         freqHz,
		resolutionBits: resolutionBits,
		maxCount:       float64(uint(1)<<resolutionBits - 1),
	}, nil
}

// WriteScaled writes a duty cycle in [0, 1]. Values outside the range are clamped.
func (p *PWM) WriteScaled(ctx context.Context, duty float64) error {
	counts, err := utils.FmapBounded(duty, 0, 1, 0, p.maxCount)
	if err != nil {
		return err
	}
	quantised := math.Round(counts) / p.maxCount

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return errors.New("pwm is detached")
	}
	if err := p.pin.SetPWM(ctx, quantised, nil); err != nil {
		return err
	}
	p.duty = quantised
	return nil
}

// Duty returns the last quantised duty cycle written.
func (p *PWM) Duty() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty
}

// FrequencyHz returns the frequency the channel was attached with.
func (p *PWM) FrequencyHz() uint {
	return p.freqHz
}

// ResolutionBits returns the duty resolution the channel was attached with.
func (p *PWM) ResolutionBits() uint {
	return p.resolutionBits
}

// Detach stops the output and drives the pin low. Writes after Detach fail.
func (p *PWM) Detach(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return nil
	}
	p.detached = true
	p.duty = 0
	return multierr.Combine(
		p.pin.SetPWM(ctx, 0, nil),
		p.pin.Set(ctx, false, nil),
	)
}
