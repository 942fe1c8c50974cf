// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"maps"
	"math"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/detector"
	"github.com/relabs-tech/inertial_pedometer/internal/engine"
	"github.com/relabs-tech/inertial_pedometer/internal/imu"
	"github.com/relabs-tech/inertial_pedometer/internal/sensors"
)

// ReplayTrace is the detector signal over a recording and the steps it produced.
type ReplayTrace struct {
	Strategy detector.Strategy
	Samples  int64
	// Signal holds (seconds, detector signal); non-finite values are left out.
	Signal plotter.XYs
	Steps  []engine.StepEvent
	// StepSignal holds the signal at each step, for markers.
	StepSignal plotter.XYs
	// Levels are the horizontal reference lines of the strategy.
	Levels map[string]float64
}

// Replay runs one counting session over src and records the signal after
// every sample.
func Replay(ctx context.Context, src imu.SampleSource, sc detector.StrategyConfig, log *zap.Logger) (*ReplayTrace, error) {
	trace := &ReplayTrace{Strategy: sc.Strategy, Levels: strategyLevels(sc)}

	eng := engine.New(engine.WithLogger(log))
	if err := eng.Start(sc); err != nil {
		return nil, err
	}
	defer eng.Stop()

	for ctx.Err() == nil {
		s, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return trace, fmt.Errorf("read sample: %w", err)
		}
		trace.Samples++

		ev, stepped := eng.Ingest(s)
		sig := eng.Signal()
		t := float64(s.TimestampNanos) / 1e9
		finite := !math.IsNaN(sig) && !math.IsInf(sig, 0)
		if finite {
			trace.Signal = append(trace.Signal, plotter.XY{X: t, Y: sig})
		}
		if stepped {
			trace.Steps = append(trace.Steps, ev)
			if finite {
				trace.StepSignal = append(trace.StepSignal, plotter.XY{X: t, Y: sig})
			}
		}
	}
	return trace, nil
}

func strategyLevels(sc detector.StrategyConfig) map[string]float64 {
	switch sc.Strategy {
	case detector.StrategyHysteresisBand:
		return map[string]float64{
			"min amplitude": sc.HysteresisBand.MinAmplitude,
			"max amplitude": sc.HysteresisBand.MaxAmplitude,
		}
	default:
		return map[string]float64{"step threshold": sc.RingBuffer.StepThreshold}
	}
}

// Plot renders the trace to an image; the format follows the file extension.
func (t *ReplayTrace) Plot(path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %d steps in %d samples", t.Strategy, len(t.Steps), t.Samples)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Signal"

	if len(t.Signal) > 0 {
		line, err := plotter.NewLine(t.Signal)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{B: 200, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("signal", line)

		xmin, xmax := t.Signal[0].X, t.Signal[len(t.Signal)-1].X
		levelColor := color.RGBA{R: 200, A: 255}
		for _, name := range slices.Sorted(maps.Keys(t.Levels)) {
			level := t.Levels[name]
			ref, err := plotter.NewLine(plotter.XYs{{X: xmin, Y: level}, {X: xmax, Y: level}})
			if err != nil {
				return err
			}
			ref.Color = levelColor
			ref.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			p.Add(ref)
			p.Legend.Add(name, ref)
		}
	}

	if len(t.StepSignal) > 0 {
		marks, err := plotter.NewScatter(t.StepSignal)
		if err != nil {
			return err
		}
		marks.GlyphStyle.Shape = draw.CircleGlyph{}
		marks.GlyphStyle.Color = color.RGBA{G: 160, A: 255}
		marks.GlyphStyle.Radius = vg.Points(3)
		p.Add(marks)
		p.Legend.Add("step", marks)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

// RunReplay feeds a CSV recording through the configured detector, prints
// every step to w and optionally plots the signal to plotPath.
func RunReplay(ctx context.Context, cfg *config.Config, log *zap.Logger, inputPath, plotPath string, w io.Writer) error {
	log = log.Named("replay")

	sc, err := cfg.StrategyConfig()
	if err != nil {
		return err
	}

	src, err := sensors.OpenCSVSource(inputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	trace, err := Replay(ctx, src, sc, log)
	if err != nil {
		return err
	}

	for _, ev := range trace.Steps {
		fmt.Fprintf(w, "step %5d at %10.3fs\n", ev.CumulativeSteps, float64(ev.TimestampNanos)/1e9)
	}
	sum := engine.NewSummary("", int64(len(trace.Steps)), cfg.Session.DailyGoal, string(sc.Strategy))
	fmt.Fprintf(w, "%d samples, %d steps, %.1f m, %.2f kcal\n",
		trace.Samples, sum.Steps, sum.DistanceMeters, sum.Calories)

	if plotPath != "" {
		if err := trace.Plot(plotPath); err != nil {
			return err
		}
		log.Info("plot written", zap.String("path", plotPath))
	}
	return nil
}
