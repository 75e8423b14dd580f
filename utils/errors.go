package utils

import (
	"github.com/pkg/errors"
)

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected interface{}, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}

// NewPinNotFoundError is used when a board cannot resolve a pin name.
func NewPinNotFoundError(kind, name string) error {
	return errors.Errorf("cannot find %s (%s)", kind, name)
}
