// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package imutest builds synthetic accelerometer recordings for tests.
package imutest

import (
	"io"
	"math"

	"github.com/relabs-tech/inertial_pedometer/internal/imu"
)

// Gravity is the resting z reading used by the generators.
const Gravity = 9.81

// Constant returns n samples of the same vector, spaced intervalNs apart from t=0.
func Constant(n int, intervalNs int64, x, y, z float64) []imu.Sample {
	out := make([]imu.Sample, n)
	for i := range out {
		out[i] = imu.Sample{TimestampNanos: int64(i) * intervalNs, X: x, Y: y, Z: z}
	}
	return out
}

// Spikes returns n resting samples where z jumps to peak for width samples
// starting at offset within every block of period samples.
func Spikes(n int, intervalNs int64, period, offset, width int, peak float64) []imu.Sample {
	out := Constant(n, intervalNs, 0, 0, Gravity)
	for i := range out {
		if k := i % period; k >= offset && k < offset+width {
			out[i].Z = peak
		}
	}
	return out
}

// Sine returns n samples of gravity on z plus a sinusoid of the given
// amplitude and period, sampled every intervalNs.
func Sine(n int, intervalNs int64, amplitude float64, periodNs int64) []imu.Sample {
	out := make([]imu.Sample, n)
	for i := range out {
		t := int64(i) * intervalNs
		out[i] = imu.Sample{
			TimestampNanos: t,
			Z:              Gravity + amplitude*math.Sin(2*math.Pi*float64(t)/float64(periodNs)),
		}
	}
	return out
}

// SineZ is Sine without the gravity offset, for detectors fed linear z.
func SineZ(n int, intervalNs int64, amplitude float64, periodSamples int) []imu.Sample {
	out := make([]imu.Sample, n)
	for i := range out {
		out[i] = imu.Sample{
			TimestampNanos: int64(i) * intervalNs,
			Z:              amplitude * math.Sin(2*math.Pi*float64(i)/float64(periodSamples)),
		}
	}
	return out
}

// Source replays samples and then returns io.EOF.
type Source struct {
	samples []imu.Sample
	next    int
}

func NewSource(samples []imu.Sample) *Source {
	return &Source{samples: samples}
}

func (s *Source) Next() (imu.Sample, error) {
	if s.next >= len(s.samples) {
		return imu.Sample{}, io.EOF
	}
	out := s.samples[s.next]
	s.next++
	return out, nil
}
