package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/rbe1001/motorcontrol/components/motor"
	"github.com/rbe1001/motorcontrol/components/motor/fake"
	"github.com/rbe1001/motorcontrol/config"
	"github.com/rbe1001/motorcontrol/logging"
	"github.com/rbe1001/motorcontrol/robot"
)

const defaultReportInterval = 500 * time.Millisecond

// RunAction drives the motors on the board named in the config or by --board.
func RunAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	if model := c.String(flagBoard); model != "" {
		cfg.Board.Model = model
	}
	r, err := robot.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	return multierr.Combine(drive(c, r, logger), r.Close(context.Background()))
}

// SimAction drives the motors against a plant model on a fake board.
func SimAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	cfg.Board.Model = config.BoardModelFake
	sim := robot.NewSimulator(fake.PlantConfig{MaxRPM: c.Float64(flagMaxRPM)})
	defer sim.Close()

	r, err := robot.New(c.Context, cfg, logger, robot.WithEncoderFactory(sim.Encoders))
	if err != nil {
		return err
	}
	return multierr.Combine(drive(c, r, logger), r.Close(context.Background()))
}

func setup(c *cli.Context) (*config.Config, logging.Logger, error) {
	var cfg *config.Config
	if path := c.String(flagConfig); path != "" {
		var err error
		cfg, err = config.Read(path)
		if err != nil {
			return nil, nil, err
		}
	} else {
		cfg = config.DefaultRobotConfig()
	}
	if c.Bool(flagDebug) {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.NewLoggerFromConfig("motorctl", cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	logging.ReplaceGlobal(logger)
	return cfg, logger, nil
}

func drive(c *cli.Context, r *robot.Robot, logger logging.Logger) error {
	ctx := c.Context
	if runFor := c.Duration(flagRunFor); runFor > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	names := r.MotorNames()
	if name := c.String(flagMotor); name != "" {
		names = []string{name}
	}
	motors := make([]motor.Motor, 0, len(names))
	seen := make([]*samples, 0, len(names))
	for _, name := range names {
		m, err := r.MotorByName(name)
		if err != nil {
			return err
		}
		motors = append(motors, m)
		seen = append(seen, &samples{name: name})
	}

	if err := command(ctx, c, motors, logger); err != nil {
		return err
	}

	var configs <-chan *config.Config
	if path := c.String(flagConfig); path != "" && c.Bool(flagWatch) {
		w, err := config.NewWatcher(path, logger.Sublogger("watcher"))
		if err != nil {
			return err
		}
		defer utils.UncheckedErrorFunc(w.Close)
		configs = w.Configs()
	}

	interval := c.Duration(flagReport)
	if interval <= 0 {
		interval = defaultReportInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			table, err := summary(seen)
			if err != nil {
				logger.Warnw("incomplete summary", "error", err)
			}
			fmt.Fprintln(c.App.Writer, table)
			return nil
		case cfg := <-configs:
			if err := r.ApplyGains(ctx, cfg); err != nil {
				logger.Warnw("cannot apply new gains", "error", err)
			}
		case <-ticker.C:
			for idx, m := range motors {
				report(ctx, m, seen[idx], logger)
			}
		}
	}
}

func command(ctx context.Context, c *cli.Context, motors []motor.Motor, logger logging.Logger) error {
	if c.IsSet(flagEffort) {
		effort := c.Float64(flagEffort)
		for _, m := range motors {
			if err := m.SetEffort(ctx, effort); err != nil {
				return err
			}
		}
		logger.Infow("driving open loop", "effort", motor.ClampPower(effort))
		return nil
	}

	mode, err := motor.ParseInterpolationMode(c.String(flagMode))
	if err != nil {
		return err
	}
	degrees := c.Float64(flagDegrees)
	duration := c.Duration(flagDuration)
	for _, m := range motors {
		if err := m.SetSetpointWithTime(ctx, degrees, duration, mode); err != nil {
			return errors.Wrapf(err, "cannot move motor %s", m.Name())
		}
	}
	logger.Infow("moving", "degrees", degrees, "duration", duration, "mode", mode.String())
	return nil
}

func report(ctx context.Context, m motor.Motor, seen *samples, logger logging.Logger) {
	deg, err := m.CurrentDegrees(ctx)
	if err != nil {
		logger.Warnw("cannot read position", "motor", m.Name(), "error", err)
		return
	}
	dps, err := m.DegreesPerSecond(ctx)
	if err != nil {
		logger.Warnw("cannot read velocity", "motor", m.Name(), "error", err)
		return
	}
	seen.add(deg, dps)
	logger.Infow("motor", "name", m.Name(), "degrees", deg, "degrees_per_second", dps)
}
