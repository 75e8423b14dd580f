// Package fake implements a simulated motor plant: it watches the pins a motor drives on a fake
// board and turns the commanded effort into encoder motion.
package fake

import (
	"context"
	"sync"
	"time"

	"go.viam.com/utils"

	fakeboard "github.com/rbe1001/motorcontrol/components/board/fake"
	fakeencoder "github.com/rbe1001/motorcontrol/components/encoder/fake"
	"github.com/rbe1001/motorcontrol/components/motor/gpio"
	"github.com/rbe1001/motorcontrol/logging"
)

// PlantConfig describes the simulated motor.
type PlantConfig struct {
	MaxRPM           float64
	TicksPerRotation float64
	// TimeConstant is how long the shaft takes to reach ~63% of a new speed.
	TimeConstant time.Duration
	UpdateRate   time.Duration
}

func (conf PlantConfig) withDefaults() PlantConfig {
	if conf.MaxRPM == 0 {
		conf.MaxRPM = 120
	}
	if conf.TicksPerRotation == 0 {
		conf.TicksPerRotation = 360
	}
	if conf.TimeConstant == 0 {
		conf.TimeConstant = 50 * time.Millisecond
	}
	if conf.UpdateRate == 0 {
		conf.UpdateRate = 5 * time.Millisecond
	}
	return conf
}

// A Plant is a first order model of a DC motor whose speed follows the PWM duty and direction
// written to a fake board.
type Plant struct {
	mu     sync.Mutex
	name   string
	pwm    *fakeboard.GPIOPin
	dir    *fakeboard.GPIOPin
	enc    *fakeencoder.Encoder
	conf   PlantConfig
	speed  float64 // ticks per second
	logger logging.Logger

	workers *utils.StoppableWorkers
}

// NewPlant returns a plant for the motor wired to pins on b, moving enc.
func NewPlant(
	name string,
	b *fakeboard.Board,
	pins gpio.PinConfig,
	enc *fakeencoder.Encoder,
	conf PlantConfig,
	logger logging.Logger,
) *Plant {
	return &Plant{
		name:   name,
		pwm:    b.Pin(pins.PWM),
		dir:    b.Pin(pins.Direction),
		enc:    enc,
		conf:   conf.withDefaults(),
		logger: logger,
	}
}

// MaxTicksPerSecond is the speed at full effort.
func (p *Plant) MaxTicksPerSecond() float64 {
	return p.conf.MaxRPM / 60 * p.conf.TicksPerRotation
}

// Step advances the model by dt and pushes the new speed to the encoder.
func (p *Plant) Step(ctx context.Context, dt time.Duration) error {
	duty, err := p.pwm.PWM(ctx, nil)
	if err != nil {
		return err
	}
	forward, err := p.dir.Get(ctx, nil)
	if err != nil {
		return err
	}
	target := duty * p.MaxTicksPerSecond()
	if !forward {
		target = -target
	}

	p.mu.Lock()
	alpha := dt.Seconds() / (p.conf.TimeConstant.Seconds() + dt.Seconds())
	p.speed += (target - p.speed) * alpha
	speed := p.speed
	p.mu.Unlock()

	return p.enc.SetSpeed(ctx, speed)
}

// Speed returns the modelled shaft speed in ticks per second.
func (p *Plant) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Start runs Step in the background every UpdateRate and starts the encoder.
func (p *Plant) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.workers != nil {
		return
	}
	p.enc.Start()
	rate := p.conf.UpdateRate
	p.workers = utils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		for {
			if !utils.SelectContextOrWait(ctx, rate) {
				return
			}
			if err := p.Step(ctx, rate); err != nil {
				p.logger.CWarnw(ctx, "plant step failed", "motor", p.name, "error", err)
			}
		}
	})
}

// Close stops the background model.
func (p *Plant) Close() {
	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
}
