// Package main is the motorctl command. It drives the configured motors to a position on real
// hardware or against a simulated plant.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/rbe1001/motorcontrol/logging"
)

const (
	// Flags.
	flagConfig   = "config"
	flagDebug    = "debug"
	flagBoard    = "board"
	flagMotor    = "motor"
	flagDegrees  = "degrees"
	flagDuration = "duration"
	flagMode     = "mode"
	flagEffort   = "effort"
	flagReport   = "report"
	flagRunFor   = "run-for"
	flagMaxRPM   = "max-rpm"
	flagWatch    = "watch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logging.Global().Fatal(err)
	}
}

func newApp() *cli.App {
	moveFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  flagMotor,
			Usage: "motor to move; every configured motor when empty",
		},
		&cli.Float64Flag{
			Name:  flagDegrees,
			Usage: "target position in degrees",
		},
		&cli.DurationFlag{
			Name:  flagDuration,
			Usage: "time to reach the target",
		},
		&cli.StringFlag{
			Name:  flagMode,
			Value: "linear",
			Usage: "setpoint interpolation: immediate, linear or sinusoidal",
		},
		&cli.Float64Flag{
			Name:  flagEffort,
			Usage: "drive open loop at this effort in [-1, 1] instead of moving to --degrees",
		},
		&cli.DurationFlag{
			Name:  flagReport,
			Value: defaultReportInterval,
			Usage: "how often to log position and velocity",
		},
		&cli.BoolFlag{
			Name:  flagWatch,
			Usage: "apply control_parameters from the config file whenever it changes",
		},
		&cli.DurationFlag{
			Name:  flagRunFor,
			Usage: "exit after this long; runs until interrupted when zero",
		},
	}

	return &cli.App{
		Name:  "motorctl",
		Usage: "closed loop position control for encoder equipped DC motors",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`; the stock two motor board when empty",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "drive motors on the configured board",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  flagBoard,
						Usage: "override the configured board model (fake or periph)",
					},
				}, moveFlags...),
				Action: RunAction,
			},
			{
				Name:  "sim",
				Usage: "drive motors against a simulated plant on a fake board",
				Flags: append([]cli.Flag{
					&cli.Float64Flag{
						Name:  flagMaxRPM,
						Value: 120,
						Usage: "simulated motor speed at full effort",
					},
				}, moveFlags...),
				Action: SimAction,
			},
		},
	}
}
