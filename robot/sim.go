package robot

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/rbe1001/motorcontrol/components/board"
	fakeboard "github.com/rbe1001/motorcontrol/components/board/fake"
	"github.com/rbe1001/motorcontrol/components/encoder"
	fakeencoder "github.com/rbe1001/motorcontrol/components/encoder/fake"
	"github.com/rbe1001/motorcontrol/components/motor/fake"
	"github.com/rbe1001/motorcontrol/components/motor/gpio"
	"github.com/rbe1001/motorcontrol/logging"
)

// A Simulator hands out fake encoders driven by a plant model of each motor. It only works
// against a fake board.
type Simulator struct {
	mu     sync.Mutex
	conf   fake.PlantConfig
	plants map[string]*fake.Plant
}

// NewSimulator returns a simulator whose plants all use conf.
func NewSimulator(conf fake.PlantConfig) *Simulator {
	return &Simulator{conf: conf, plants: map[string]*fake.Plant{}}
}

// Encoders is an EncoderFactory. The plant starts running as soon as its encoder is built.
func (s *Simulator) Encoders(
	ctx context.Context,
	b board.Board,
	name string,
	conf gpio.Config,
	logger logging.Logger,
) (encoder.Encoder, error) {
	fb, ok := b.(*fakeboard.Board)
	if !ok {
		return nil, errors.Errorf("simulated motor %s needs a fake board, got %T", name, b)
	}
	enc := fakeencoder.NewEncoder(0)
	p := fake.NewPlant(name, fb, conf.Pins, enc, s.conf, logger.Sublogger("plant"))
	s.mu.Lock()
	s.plants[name] = p
	s.mu.Unlock()
	p.Start()
	return enc, nil
}

// Plant returns the model behind the named motor.
func (s *Simulator) Plant(name string) (*fake.Plant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plants[name]
	return p, ok
}

// Close stops every plant.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plants {
		p.Close()
	}
}
