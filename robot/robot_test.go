package robot_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/rbe1001/motorcontrol/components/board"
	fakeboard "github.com/rbe1001/motorcontrol/components/board/fake"
	"github.com/rbe1001/motorcontrol/components/encoder"
	fakeencoder "github.com/rbe1001/motorcontrol/components/encoder/fake"
	"github.com/rbe1001/motorcontrol/components/motor/fake"
	"github.com/rbe1001/motorcontrol/components/motor/gpio"
	"github.com/rbe1001/motorcontrol/config"
	"github.com/rbe1001/motorcontrol/control"
	"github.com/rbe1001/motorcontrol/logging"
	"github.com/rbe1001/motorcontrol/robot"
)

func fakeConfig() *config.Config {
	cfg := config.DefaultRobotConfig()
	cfg.Board.Model = config.BoardModelFake
	return cfg
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	b := fakeboard.NewBoard(logger)
	encoders := map[string]*fakeencoder.Encoder{}
	factory := func(ctx context.Context, b board.Board, name string, conf gpio.Config, logger logging.Logger) (encoder.Encoder, error) {
		enc := fakeencoder.NewEncoder(0)
		encoders[name] = enc
		return enc, nil
	}

	r, err := robot.New(ctx, fakeConfig(), logger,
		robot.WithClock(clock.NewMock()),
		robot.WithBoard(b),
		robot.WithEncoderFactory(factory),
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.MotorNames(), test.ShouldResemble, []string{"left", "right"})
	test.That(t, r.Board(), test.ShouldEqual, b)
	test.That(t, r.Loop().Running(), test.ShouldBeTrue)
	test.That(t, r.Loop().Registered(), test.ShouldHaveLength, 2)
	test.That(t, encoders, test.ShouldHaveLength, 2)

	left, err := r.MotorByName("left")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, left.Name(), test.ShouldEqual, "left")

	_, err = r.MotorByName("middle")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no motor named middle")

	test.That(t, left.SetEffort(ctx, 0.5), test.ShouldBeNil)
	r.Loop().RunOnce(ctx)
	duty, err := b.Pin("13").PWM(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, duty, test.ShouldAlmostEqual, 128.0/255, 1e-9)
	high, err := b.Pin("4").Get(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeTrue)

	test.That(t, r.Close(ctx), test.ShouldBeNil)
	test.That(t, r.Loop().Running(), test.ShouldBeFalse)
	test.That(t, r.Loop().Registered(), test.ShouldBeEmpty)
	test.That(t, b.CloseCount, test.ShouldEqual, 1)
	test.That(t, encoders["left"].Paused(), test.ShouldBeTrue)
	test.That(t, encoders["right"].Paused(), test.ShouldBeTrue)
	test.That(t, left.SetEffort(ctx, 0.5), test.ShouldNotBeNil)

	test.That(t, r.Close(ctx), test.ShouldBeNil)
	test.That(t, b.CloseCount, test.ShouldEqual, 1)
}

func TestNewQuadrature(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	r, err := robot.New(ctx, fakeConfig(), logger, robot.WithClock(clock.NewMock()))
	test.That(t, err, test.ShouldBeNil)
	fb, ok := r.Board().(*fakeboard.Board)
	test.That(t, ok, test.ShouldBeTrue)

	// one forward quarter step on the left encoder
	test.That(t, fb.Interrupt("33").Tick(ctx, false, 1), test.ShouldBeNil)
	test.That(t, fb.Interrupt("26").Tick(ctx, false, 2), test.ShouldBeNil)

	left, err := r.MotorByName("left")
	test.That(t, err, test.ShouldBeNil)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		r.Loop().RunOnce(ctx)
		deg, err := left.CurrentDegrees(ctx)
		test.That(tb, err, test.ShouldBeNil)
		test.That(tb, deg, test.ShouldEqual, 1)
	})

	test.That(t, r.Close(ctx), test.ShouldBeNil)
}

func TestApplyGains(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	factory := func(ctx context.Context, b board.Board, name string, conf gpio.Config, logger logging.Logger) (encoder.Encoder, error) {
		return fakeencoder.NewEncoder(0), nil
	}
	r, err := robot.New(ctx, fakeConfig(), logger, robot.WithClock(clock.NewMock()), robot.WithEncoderFactory(factory))
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, r.Close(ctx), test.ShouldBeNil)
	}()

	updated := fakeConfig()
	updated.Motors[0].Attributes["control_parameters"] = map[string]interface{}{"p": 0.5, "i": 0.1}
	updated.Motors = append(updated.Motors, config.Motor{Name: "extra", Attributes: updated.Motors[1].Attributes})
	updated.Loop.Capacity = 3
	test.That(t, updated.Validate(), test.ShouldBeNil)

	test.That(t, r.ApplyGains(ctx, updated), test.ShouldBeNil)
	left, err := r.MotorByName("left")
	test.That(t, err, test.ShouldBeNil)
	gains, err := left.Gains(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gains, test.ShouldResemble, control.PIDConfig{P: 0.5, I: 0.1})

	right, err := r.MotorByName("right")
	test.That(t, err, test.ShouldBeNil)
	gains, err = right.Gains(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gains, test.ShouldResemble, control.PIDConfig{P: 0.002})

	test.That(t, logs.FilterMessage("updated gains").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("config names a motor that is not attached").Len(), test.ShouldEqual, 1)
}

func TestNewInvalid(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	t.Run("too many motors", func(t *testing.T) {
		cfg := fakeConfig()
		cfg.Loop.Capacity = 1
		_, err := robot.New(ctx, cfg, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "2 motors configured")
	})

	t.Run("encoder failure closes the board", func(t *testing.T) {
		b := fakeboard.NewBoard(logger)
		calls := 0
		factory := func(ctx context.Context, b board.Board, name string, conf gpio.Config, logger logging.Logger) (encoder.Encoder, error) {
			calls++
			if calls == 2 {
				return nil, context.Canceled
			}
			return fakeencoder.NewEncoder(0), nil
		}
		_, err := robot.New(ctx, fakeConfig(), logger,
			robot.WithClock(clock.NewMock()),
			robot.WithBoard(b),
			robot.WithEncoderFactory(factory),
		)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "cannot build encoder for motor right")
		test.That(t, b.CloseCount, test.ShouldEqual, 1)
	})
}

func TestSimulator(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	sim := robot.NewSimulator(fake.PlantConfig{TimeConstant: 5 * time.Millisecond, UpdateRate: time.Millisecond})
	defer sim.Close()

	r, err := robot.New(ctx, fakeConfig(), logger, robot.WithEncoderFactory(sim.Encoders))
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, r.Close(ctx), test.ShouldBeNil)
	}()

	_, ok := sim.Plant("left")
	test.That(t, ok, test.ShouldBeTrue)
	_, ok = sim.Plant("middle")
	test.That(t, ok, test.ShouldBeFalse)

	left, err := r.MotorByName("left")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, left.SetEffort(ctx, 1), test.ShouldBeNil)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		deg, err := left.CurrentDegrees(ctx)
		test.That(tb, err, test.ShouldBeNil)
		test.That(tb, deg, test.ShouldBeGreaterThan, 10)
	})

	t.Run("needs a fake board", func(t *testing.T) {
		_, err := sim.Encoders(ctx, nil, "other", gpio.Config{}, logger)
		test.That(t, err, test.ShouldNotBeNil)
	})
}
