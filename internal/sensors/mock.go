// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/inertial_pedometer/internal/imu"
)

// MockSource generates a walking gait: gravity on z plus a vertical bounce
// at the cadence, with a slight sway on x. It runs on a synthetic clock
// advancing one interval per sample, so it never sleeps.
type MockSource struct {
	cadenceHz float64
	amplitude float64
	interval  time.Duration
	n         int64
}

// NewMockSource creates a synthetic source. cadenceHz is steps per second.
func NewMockSource(cadenceHz, amplitude float64, interval time.Duration) *MockSource {
	return &MockSource{cadenceHz: cadenceHz, amplitude: amplitude, interval: interval}
}

func (m *MockSource) Next() (imu.Sample, error) {
	ts := m.n * m.interval.Nanoseconds()
	m.n++
	t := float64(ts) / 1e9

	phase := 2 * math.Pi * m.cadenceHz * t
	return imu.Sample{
		TimestampNanos: ts,
		X:              0.15 * m.amplitude * math.Sin(phase/2),
		Y:              0,
		Z:              imu.StandardGravity + m.amplitude*math.Sin(phase),
	}, nil
}

// Close is a no-op.
func (m *MockSource) Close() error { return nil }
