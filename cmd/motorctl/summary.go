package main

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// samples holds what report saw of one motor.
type samples struct {
	name    string
	degrees []float64
	dps     []float64
}

func (s *samples) add(degrees, dps float64) {
	s.degrees = append(s.degrees, degrees)
	s.dps = append(s.dps, dps)
}

// velocityStats returns the mean, peak magnitude and standard deviation of the velocity samples.
func (s *samples) velocityStats() (mean, peak, stddev float64, err error) {
	data := stats.LoadRawData(s.dps)
	if mean, err = data.Mean(); err != nil {
		return 0, 0, 0, err
	}
	maxV, err := data.Max()
	if err != nil {
		return 0, 0, 0, err
	}
	minV, err := data.Min()
	if err != nil {
		return 0, 0, 0, err
	}
	if stddev, err = data.StandardDeviation(); err != nil {
		return 0, 0, 0, err
	}
	return mean, math.Max(math.Abs(maxV), math.Abs(minV)), stddev, nil
}

// summary renders one row per motor with its final position and velocity statistics. Motors
// whose statistics cannot be computed get an empty row and their error is returned.
func summary(all []*samples) (string, error) {
	var errs error
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Motor", "Samples", "Final deg", "Mean deg/s", "Peak |deg/s|", "Stddev deg/s"})
	for _, s := range all {
		if len(s.degrees) == 0 {
			t.AppendRow(table.Row{s.name, 0, "", "", "", ""})
			continue
		}
		mean, peak, stddev, err := s.velocityStats()
		if err != nil {
			errs = multierr.Combine(errs, errors.Wrapf(err, "cannot summarize motor %s", s.name))
			t.AppendRow(table.Row{s.name, len(s.degrees), "", "", "", ""})
			continue
		}
		t.AppendRow(table.Row{
			s.name,
			len(s.degrees),
			fmt.Sprintf("%.1f", s.degrees[len(s.degrees)-1]),
			fmt.Sprintf("%.1f", mean),
			fmt.Sprintf("%.1f", peak),
			fmt.Sprintf("%.1f", stddev),
		})
	}
	return t.Render(), errs
}
