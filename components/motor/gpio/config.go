package gpio

import (
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/rbe1001/motorcontrol/components/board"
	"github.com/rbe1001/motorcontrol/components/encoder/incremental"
	"github.com/rbe1001/motorcontrol/control"
)

// PinConfig names the board pins a motor is wired to.
type PinConfig struct {
	PWM       string `json:"pwm"`
	Direction string `json:"dir"`
	EncoderA  string `json:"encoder_a"`
	EncoderB  string `json:"encoder_b"`
}

// Validate ensures all parts of the config are valid.
func (conf *PinConfig) Validate(path string) error {
	if conf.PWM == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "pwm")
	}
	if conf.Direction == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "dir")
	}
	encoderPins := conf.EncoderPins()
	return encoderPins.Validate(path)
}

// EncoderPins returns the quadrature pins in the form the incremental encoder takes.
func (conf *PinConfig) EncoderPins() incremental.Pins {
	return incremental.Pins{A: conf.EncoderA, B: conf.EncoderB}
}

// Config describes the configuration of a motor.
type Config struct {
	Pins PinConfig `json:"pins"`
	// TicksToDegrees is how many degrees of output rotation one encoder tick is.
	TicksToDegrees    float64            `json:"ticks_to_degrees,omitempty"`
	PWMFreqHz         uint               `json:"pwm_freq_hz,omitempty"`
	PWMResolutionBits uint               `json:"pwm_resolution_bits,omitempty"`
	ITermSize         int                `json:"i_term_size,omitempty"`
	ControlParameters *control.PIDConfig `json:"control_parameters,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if err := conf.Pins.Validate(fmt.Sprintf("%s.%s", path, "pins")); err != nil {
		return err
	}
	if conf.TicksToDegrees < 0 {
		return errors.Errorf("%s.ticks_to_degrees must be positive", path)
	}
	if conf.ITermSize < 0 {
		return errors.Errorf("%s.i_term_size must be positive", path)
	}
	if conf.PWMResolutionBits > 16 {
		return errors.Errorf("%s.pwm_resolution_bits must be at most 16", path)
	}
	return nil
}

// WithDefaults returns a copy of conf with unset fields filled in.
func (conf Config) WithDefaults() Config {
	if conf.TicksToDegrees == 0 {
		conf.TicksToDegrees = 1
	}
	if conf.PWMFreqHz == 0 {
		conf.PWMFreqHz = board.DefaultPWMFreqHz
	}
	if conf.PWMResolutionBits == 0 {
		conf.PWMResolutionBits = board.DefaultPWMResolutionBits
	}
	if conf.ITermSize == 0 {
		conf.ITermSize = control.DefaultITermSize
	}
	if conf.ControlParameters == nil {
		conf.ControlParameters = &control.PIDConfig{}
	}
	return conf
}
