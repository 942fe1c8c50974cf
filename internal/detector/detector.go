// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package detector turns a stream of accelerometer samples into discrete
// step events. Two strategies are available: a ring-buffer gravity/velocity
// detector (the primary one) and a Hamming-smoothed hysteresis band detector
// working on the z axis only.
package detector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/relabs-tech/inertial_pedometer/internal/imu"
)

// ErrInvalidConfig is returned when a detector cannot be built from its
// configuration (zero-sized windows, non-positive threshold or delay, ...).
var ErrInvalidConfig = errors.New("invalid detector configuration")

// Step is a recognized step, stamped with the timestamp of the sample that
// triggered it.
type Step struct {
	TimestampNanos int64
}

// Detector is a single step detection strategy. Implementations own all of
// their buffers and are not safe for concurrent use.
type Detector interface {
	// Update consumes one sample and reports whether it completed a step.
	Update(s imu.Sample) (Step, bool)
	// Signal returns the scalar the detector thresholds on, as of the last
	// Update (velocity estimate or smoothed z).
	Signal() float64
	// Reset returns the detector to its freshly constructed state.
	Reset()
}

// Strategy selects a Detector implementation.
type Strategy string

const (
	StrategyRingBuffer     Strategy = "ring_buffer"
	StrategyHysteresisBand Strategy = "hysteresis_band"
)

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyRingBuffer:
		return StrategyRingBuffer, nil
	case StrategyHysteresisBand:
		return StrategyHysteresisBand, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q (must be %s or %s)",
			ErrInvalidConfig, s, StrategyRingBuffer, StrategyHysteresisBand)
	}
}

// StrategyConfig picks a strategy and carries the tunables for both, so a
// config file can switch strategies without losing the other's settings.
type StrategyConfig struct {
	Strategy       Strategy
	RingBuffer     RingBufferConfig
	HysteresisBand HysteresisBandConfig
}

// DefaultStrategyConfig returns the ring-buffer strategy with default tunables.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Strategy:       StrategyRingBuffer,
		RingBuffer:     DefaultRingBufferConfig(),
		HysteresisBand: DefaultHysteresisBandConfig(),
	}
}

// Validate checks the configuration of the selected strategy only.
func (c StrategyConfig) Validate() error {
	switch c.Strategy {
	case StrategyRingBuffer:
		return c.RingBuffer.Validate()
	case StrategyHysteresisBand:
		return c.HysteresisBand.Validate()
	default:
		_, err := ParseStrategy(string(c.Strategy))
		return err
	}
}

// New builds the detector selected by cfg.
func New(cfg StrategyConfig) (Detector, error) {
	switch cfg.Strategy {
	case StrategyRingBuffer:
		return NewRingBufferDetector(cfg.RingBuffer)
	case StrategyHysteresisBand:
		return NewHysteresisBandDetector(cfg.HysteresisBand)
	default:
		_, err := ParseStrategy(string(cfg.Strategy))
		return nil, err
	}
}
