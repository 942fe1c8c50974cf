// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/engine"
	"github.com/relabs-tech/inertial_pedometer/internal/imu"
	"github.com/relabs-tech/inertial_pedometer/internal/sensors"
)

// RunMockConsole counts steps on the synthetic gait source in real time and
// prints them, no broker or hardware needed.
func RunMockConsole(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	interval := cfg.SampleInterval()
	src := sensors.Throttle(sensors.NewMockSource(cfg.Sensor.MockCadenceHz, cfg.Sensor.MockAmplitude, interval), interval)
	defer src.Close()

	return PrintSteps(ctx, src, cfg, log, os.Stdout)
}

// PrintSteps runs one counting session over src and writes each step and a
// final summary line to w.
func PrintSteps(ctx context.Context, src imu.SampleSource, cfg *config.Config, log *zap.Logger, w io.Writer) error {
	sc, err := cfg.StrategyConfig()
	if err != nil {
		return err
	}

	eng := engine.New(
		engine.WithLogger(log),
		engine.WithDailyGoal(cfg.Session.DailyGoal),
		engine.WithConsumer(func(ev engine.StepEvent) {
			fmt.Fprintf(w, "STEP %6d  t=%8.3fs  dist=%7.1fm\n",
				ev.CumulativeSteps, float64(ev.TimestampNanos)/1e9, engine.DistanceMeters(ev.CumulativeSteps))
		}),
	)
	if err := eng.Start(sc); err != nil {
		return err
	}

	_, err = Pump(ctx, src, eng)
	eng.Stop()

	s := eng.Summary()
	fmt.Fprintf(w, "TOTAL steps=%d dist=%.1fm kcal=%.2f goal=%.1f%%\n",
		s.Steps, s.DistanceMeters, s.Calories, s.GoalProgress*100)
	return err
}
