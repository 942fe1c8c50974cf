// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "github.com/relabs-tech/inertial_pedometer/internal/vecmath"

// StandardGravity is one g in m/s².
const StandardGravity = 9.80665

// Sample represents a single accelerometer reading in m/s².
// TimestampNanos is a monotonic counter supplied by the source; samples are
// expected in non-decreasing timestamp order.
type Sample struct {
	TimestampNanos int64   `json:"timestamp_ns"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Z              float64 `json:"z"`
}

// Vec returns the acceleration as a vector.
func (s Sample) Vec() vecmath.Vec3 {
	return vecmath.Vec3{s.X, s.Y, s.Z}
}

// SampleSource is anything that can provide accelerometer samples over time:
// the MPU9250, a serial line, a CSV recording or the synthetic gait source.
type SampleSource interface {
	Next() (Sample, error)
}

// CountsToMetersPerSecond2 converts a raw 16-bit accelerometer reading to m/s².
// accelRange follows the MPU9250 ACCEL_FS_SEL encoding: 0=±2g, 1=±4g, 2=±8g, 3=±16g.
func CountsToMetersPerSecond2(raw int16, accelRange byte) float64 {
	lsbPerG := float64(int(16384) >> accelRange)
	return float64(raw) / lsbPerG * StandardGravity
}
