// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package detector

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/relabs-tech/inertial_pedometer/internal/imu"
)

// SlopeInvalid is reported by Slope whenever the detector is not in band.
const SlopeInvalid = float64(2 << 19)

// BandState is the amplitude band of the smoothed z signal.
type BandState int

const (
	BelowMin BandState = iota // min amplitude not reached (or reset)
	InBand                    // min amplitude reached
	AboveMax                  // max amplitude exceeded
)

func (s BandState) String() string {
	switch s {
	case BelowMin:
		return "below_min"
	case InBand:
		return "in_band"
	case AboveMax:
		return "above_max"
	default:
		return fmt.Sprintf("band_state(%d)", int(s))
	}
}

// Sign tracks the direction of the most recent zero crossing.
type Sign int

const (
	SignNone     Sign = 0
	SignPositive Sign = 1
	SignNegative Sign = -1
	SignFalling  Sign = -2 // went from positive to negative
)

// HysteresisBandConfig holds the tunables of the hysteresis band detector.
// Amplitudes are in m/s², like the input.
type HysteresisBandConfig struct {
	AvgWindow      int
	MinAmplitude   float64
	MaxAmplitude   float64
	ResetAmplitude float64
}

// DefaultHysteresisBandConfig returns a 30 sample window and the 0.5/2.2/-0.1 bands.
func DefaultHysteresisBandConfig() HysteresisBandConfig {
	return HysteresisBandConfig{
		AvgWindow:      30,
		MinAmplitude:   0.5,
		MaxAmplitude:   2.2,
		ResetAmplitude: -0.1,
	}
}

// Validate rejects configurations with no sensible runtime behavior.
func (c HysteresisBandConfig) Validate() error {
	if c.AvgWindow < 2 {
		return fmt.Errorf("%w: averaging window must be at least 2, got %d", ErrInvalidConfig, c.AvgWindow)
	}
	amplitudes := []struct {
		name  string
		value float64
	}{
		{"min amplitude", c.MinAmplitude},
		{"max amplitude", c.MaxAmplitude},
		{"reset amplitude", c.ResetAmplitude},
	}
	for _, a := range amplitudes {
		if math.IsNaN(a.value) || math.IsInf(a.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, a.name, a.value)
		}
	}
	if c.MinAmplitude >= c.MaxAmplitude {
		return fmt.Errorf("%w: min amplitude %v must be below max amplitude %v",
			ErrInvalidConfig, c.MinAmplitude, c.MaxAmplitude)
	}
	return nil
}

// HammingWeights returns the n window weights 0.54 - 0.46*cos(2πi/(n-1)).
func HammingWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// HysteresisBandDetector smooths the z axis with a Hamming-weighted moving
// average and classifies the result into amplitude bands. Entering InBand
// with a positive slope counts as a step.
type HysteresisBandDetector struct {
	cfg     HysteresisBandConfig
	weights []float64

	raw      *Ring[float64]
	smoothed *Ring[float64]
	window   []float64

	state BandState
	sign  Sign
	last  float64
}

// NewHysteresisBandDetector validates cfg and allocates the windows.
func NewHysteresisBandDetector(cfg HysteresisBandConfig) (*HysteresisBandDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HysteresisBandDetector{
		cfg:      cfg,
		weights:  HammingWeights(cfg.AvgWindow),
		raw:      NewRing[float64](cfg.AvgWindow),
		smoothed: NewRing[float64](cfg.AvgWindow),
		window:   make([]float64, 0, cfg.AvgWindow),
	}, nil
}

// Update runs one sample through the detector. Only Z is used.
func (d *HysteresisBandDetector) Update(s imu.Sample) (Step, bool) {
	d.raw.Push(s.Z)
	// Smoothing starts once the window has overflowed at least once.
	if d.raw.Counter() <= d.cfg.AvgWindow {
		return Step{}, false
	}

	d.window = d.raw.AppendOrdered(d.window[:0])
	f := floats.Dot(d.weights, d.window) / float64(d.cfg.AvgWindow)
	d.smoothed.Push(f)
	d.last = f

	prev := d.state
	d.state = nextBandState(d.state, f, d.cfg)
	d.sign = nextSign(d.sign, f)

	if prev != InBand && d.state == InBand && d.Slope() > 0 {
		return Step{TimestampNanos: s.TimestampNanos}, true
	}
	return Step{}, false
}

// nextBandState applies the band transitions in their fixed order. The
// checks are not exclusive: a later match overrides an earlier one.
func nextBandState(state BandState, f float64, cfg HysteresisBandConfig) BandState {
	if f < cfg.ResetAmplitude {
		state = BelowMin
	}
	if f > cfg.MaxAmplitude {
		state = AboveMax
	}
	if f > cfg.MinAmplitude && f < cfg.MaxAmplitude && state != AboveMax {
		state = InBand
	}
	return state
}

func nextSign(sign Sign, f float64) Sign {
	if f > 0 {
		sign = SignPositive
	}
	if sign == SignPositive && f < 0 {
		sign = SignFalling
	} else if f < 0 {
		sign = SignNegative
	}
	return sign
}

// Slope is the change of the smoothed signal across the retained smoothed
// history, divided by the window size. It is SlopeInvalid outside InBand.
func (d *HysteresisBandDetector) Slope() float64 {
	if d.state != InBand {
		return SlopeInvalid
	}
	first, ok := d.smoothed.Oldest()
	if !ok {
		return SlopeInvalid
	}
	last, _ := d.smoothed.Newest()
	return (last - first) / float64(d.cfg.AvgWindow)
}

// Signal returns the latest smoothed z value.
func (d *HysteresisBandDetector) Signal() float64 {
	return d.last
}

// State returns the current amplitude band.
func (d *HysteresisBandDetector) State() BandState {
	return d.state
}

// Sign returns the zero-crossing tracker.
func (d *HysteresisBandDetector) Sign() Sign {
	return d.sign
}

// Config returns the detector configuration.
func (d *HysteresisBandDetector) Config() HysteresisBandConfig {
	return d.cfg
}

// Reset clears the windows and returns to BelowMin.
func (d *HysteresisBandDetector) Reset() {
	d.raw.Reset()
	d.smoothed.Reset()
	d.window = d.window[:0]
	d.state = BelowMin
	d.sign = SignNone
	d.last = 0
}
