// Package config defines the structures to configure a robot's board, control loop and motors
// and the ability to read them from JSON.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/rbe1001/motorcontrol/components/motor/gpio"
	"github.com/rbe1001/motorcontrol/control"
	"github.com/rbe1001/motorcontrol/logging"
	rutils "github.com/rbe1001/motorcontrol/utils"
)

// Board models.
const (
	BoardModelFake   = "fake"
	BoardModelPeriph = "periph"
)

// A Config describes the configuration of a robot.
type Config struct {
	ConfigFilePath string `json:"-"`

	Board  BoardConfig    `json:"board"`
	Loop   LoopConfig     `json:"loop"`
	Log    logging.Config `json:"log"`
	Motors []Motor        `json:"motors,omitempty"`
}

// Validate ensures all parts of the config are valid and fills in defaults.
func (c *Config) Validate() error {
	if err := c.Board.Validate("board"); err != nil {
		return err
	}
	if err := c.Loop.Validate("loop"); err != nil {
		return err
	}
	if err := c.Log.Validate("log"); err != nil {
		return err
	}
	seen := map[string]struct{}{}
	for idx := range c.Motors {
		path := fmt.Sprintf("%s.%d", "motors", idx)
		if err := c.Motors[idx].Validate(path); err != nil {
			return err
		}
		if _, ok := seen[c.Motors[idx].Name]; ok {
			return utils.NewConfigValidationError(path, errors.Errorf("duplicate motor name %q", c.Motors[idx].Name))
		}
		seen[c.Motors[idx].Name] = struct{}{}
	}
	if len(c.Motors) > c.Loop.Capacity {
		return utils.NewConfigValidationError("motors",
			errors.Errorf("%d motors configured but the loop services %d", len(c.Motors), c.Loop.Capacity))
	}
	return nil
}

// FindMotor returns the motor config with the given name.
func (c *Config) FindMotor(name string) *Motor {
	for idx := range c.Motors {
		if c.Motors[idx].Name == name {
			return &c.Motors[idx]
		}
	}
	return nil
}

// BoardConfig selects the board driver.
type BoardConfig struct {
	Model string `json:"model"`
}

// Validate ensures all parts of the config are valid.
func (config *BoardConfig) Validate(path string) error {
	switch config.Model {
	case "":
		config.Model = BoardModelPeriph
	case BoardModelFake, BoardModelPeriph:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown board model %q", config.Model))
	}
	return nil
}

// LoopConfig configures the control loop.
type LoopConfig struct {
	TickPeriodMs float64 `json:"tick_period_ms,omitempty"`
	Capacity     int     `json:"capacity,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (config *LoopConfig) Validate(path string) error {
	if config.TickPeriodMs < 0 {
		return utils.NewConfigValidationError(path, errors.New("tick_period_ms must be positive"))
	}
	if config.Capacity < 0 {
		return utils.NewConfigValidationError(path, errors.New("capacity must be positive"))
	}
	if config.TickPeriodMs == 0 {
		config.TickPeriodMs = float64(control.DefaultTickPeriod) / float64(time.Millisecond)
	}
	if config.Capacity == 0 {
		config.Capacity = control.DefaultCapacity
	}
	return nil
}

// TickPeriod returns the tick period as a duration.
func (config LoopConfig) TickPeriod() time.Duration {
	return time.Duration(config.TickPeriodMs * float64(time.Millisecond))
}

// Motor describes one motor. Attributes hold the driver specific settings and are decoded into
// ConvertedAttributes by Validate.
type Motor struct {
	Name                string              `json:"name"`
	Attributes          rutils.AttributeMap `json:"attributes"`
	ConvertedAttributes *gpio.Config        `json:"-"`
}

// Validate ensures all parts of the config are valid.
func (config *Motor) Validate(path string) error {
	if config.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if config.ConvertedAttributes == nil {
		converted, err := rutils.TransformAttributeMap[*gpio.Config](config.Attributes)
		if err != nil {
			return utils.NewConfigValidationError(path, err)
		}
		config.ConvertedAttributes = converted
	}
	if err := config.ConvertedAttributes.Validate(path); err != nil {
		return err
	}
	withDefaults := config.ConvertedAttributes.WithDefaults()
	config.ConvertedAttributes = &withDefaults
	return nil
}

// DefaultRobotConfig returns the two drive motors of the stock controller board.
func DefaultRobotConfig() *Config {
	drive := func(name, pwm, dir, encA, encB string) Motor {
		return Motor{
			Name: name,
			Attributes: rutils.AttributeMap{
				"pins": map[string]interface{}{
					"pwm":       pwm,
					"dir":       dir,
					"encoder_a": encA,
					"encoder_b": encB,
				},
				"ticks_to_degrees":    1.0,
				"pwm_freq_hz":         20000,
				"pwm_resolution_bits": 8,
				"i_term_size":         control.DefaultITermSize,
				"control_parameters":  map[string]interface{}{"p": 0.002, "i": 0.0, "d": 0.0},
			},
		}
	}
	return &Config{
		Board: BoardConfig{Model: BoardModelPeriph},
		Motors: []Motor{
			drive("left", "13", "4", "26", "33"),
			drive("right", "15", "25", "17", "16"),
		},
	}
}
