package motor

import (
	"time"

	"github.com/pkg/errors"
)

// NewNegativeDurationError returns an error for a move commanded to take negative time.
func NewNegativeDurationError(motorName string, d time.Duration) error {
	return errors.Errorf("motor named %s cannot move over a negative duration (%s)", motorName, d)
}

// NewClosedError returns an error for a motor used after Close.
func NewClosedError(motorName string) error {
	return errors.Errorf("motor named %s is closed", motorName)
}

// NewNotFoundError returns an error for a motor name with nothing attached under it.
func NewNotFoundError(motorName string) error {
	return errors.Errorf("no motor named %s", motorName)
}
