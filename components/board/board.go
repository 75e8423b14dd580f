// Package board defines the interfaces that typically live on a single-board computer such as
// a Raspberry Pi or an ESP32-class controller.
//
// Besides the interfaces, the package provides PWM, a fixed resolution PWM channel bound to a
// GPIO pin, and BasicDigitalInterrupt, a level tracking interrupt that fans edge ticks out to
// registered listeners.
package board

import (
	"context"
)

// A Board represents a physical general purpose board that contains various
// components such as GPIO pins and digital interrupts.
type Board interface {
	// GPIOPinByName returns a GPIOPin by name.
	GPIOPinByName(name string) (GPIOPin, error)

	// DigitalInterruptByName returns a digital interrupt by name. The underlying pin is configured
	// as an input with its internal pull-up enabled.
	DigitalInterruptByName(name string) (DigitalInterrupt, error)

	// Close releases every pin the board handed out.
	Close(ctx context.Context) error
}

// A DigitalInterrupt represents a configured interrupt on the board that
// when interrupted, calls the added callbacks.
type DigitalInterrupt interface {
	// Name returns the name of the interrupt.
	Name() string

	// Value returns the current level of the pin, 1 for high and 0 for low.
	Value(ctx context.Context, extra map[string]interface{}) (int64, error)

	// AddCallback adds a listener for interrupts.
	AddCallback(c chan Tick)

	// RemoveCallback removes a listener for interrupts.
	RemoveCallback(c chan Tick)
}

// Tick represents a signal received by an interrupt pin. This signal is communicated
// via registered channel to the various drivers. Depending on board implementation there may be a
// wraparound in timestamp values past 4294967295000 nanoseconds (~72 minutes) if the value
// was originally in microseconds as a 32-bit integer.
type Tick struct {
	Name             string
	High             bool
	TimestampNanosec uint64
}
