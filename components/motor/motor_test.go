package motor

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestClampPower(t *testing.T) {
	test.That(t, ClampPower(0.3), test.ShouldEqual, 0.3)
	test.That(t, ClampPower(-0.3), test.ShouldEqual, -0.3)
	test.That(t, ClampPower(2), test.ShouldEqual, 1)
	test.That(t, ClampPower(-7), test.ShouldEqual, -1)
}

func TestParseInterpolationMode(t *testing.T) {
	for _, mode := range []InterpolationMode{InterpolationImmediate, InterpolationLinear, InterpolationSinusoidal} {
		parsed, err := ParseInterpolationMode(mode.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, mode)
	}
	parsed, err := ParseInterpolationMode("Sinusoidal")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldEqual, InterpolationSinusoidal)

	_, err = ParseInterpolationMode("cubic")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cubic")
}

func TestErrors(t *testing.T) {
	test.That(t, NewNegativeDurationError("left", -time.Second).Error(), test.ShouldContainSubstring, "-1s")
	test.That(t, NewClosedError("left").Error(), test.ShouldEqual, "motor named left is closed")
	test.That(t, NewNotFoundError("arm").Error(), test.ShouldEqual, "no motor named arm")
}
