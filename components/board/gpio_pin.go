package board

import "context"

// A GPIOPin is one digital line of a board. A pin starts out unconfigured; the first Set or
// SetPWM call claims it as an output and it stays an output until the board is closed. Pins
// handed to DigitalInterruptByName are inputs and must not be driven through a GPIOPin.
type GPIOPin interface {
	// Set drives the pin high or low. Any PWM running on the pin stops.
	Set(ctx context.Context, high bool, extra map[string]interface{}) error

	// Get reads back the level of the pin.
	Get(ctx context.Context, extra map[string]interface{}) (bool, error)

	// PWM returns the duty cycle last written, in [0, 1]. A pin driven with Set reports 0.
	PWM(ctx context.Context, extra map[string]interface{}) (float64, error)

	// SetPWM starts or updates PWM output at dutyCyclePct in [0, 1]. Boards without a hardware
	// channel on the pin may fall back to toggling it in software.
	SetPWM(ctx context.Context, dutyCyclePct float64, extra map[string]interface{}) error

	// PWMFreq returns the PWM carrier frequency in Hz, 0 when none was set.
	PWMFreq(ctx context.Context, extra map[string]interface{}) (uint, error)

	// SetPWMFreq sets the carrier frequency in Hz. 0 selects DefaultPWMFreqHz.
	SetPWMFreq(ctx context.Context, freqHz uint, extra map[string]interface{}) error
}
