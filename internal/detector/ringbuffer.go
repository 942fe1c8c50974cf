// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package detector

import (
	"fmt"
	"math"

	"github.com/relabs-tech/inertial_pedometer/internal/imu"
	"github.com/relabs-tech/inertial_pedometer/internal/vecmath"
)

// RingBufferConfig holds the tunables of the ring-buffer detector.
type RingBufferConfig struct {
	AccelRingSize    int     // samples averaged for the gravity estimate
	VelocityRingSize int     // vertical acceleration samples summed into the velocity estimate
	StepThreshold    float64 // velocity estimate level that signals a step
	StepDelayNanos   int64   // minimum time between two steps
}

// DefaultRingBufferConfig returns 50/10 windows, threshold 4 and a 250ms debounce.
func DefaultRingBufferConfig() RingBufferConfig {
	return RingBufferConfig{
		AccelRingSize:    50,
		VelocityRingSize: 10,
		StepThreshold:    4,
		StepDelayNanos:   250_000_000,
	}
}

// Validate rejects configurations with no sensible runtime behavior.
func (c RingBufferConfig) Validate() error {
	if c.AccelRingSize <= 0 {
		return fmt.Errorf("%w: accel ring size must be positive, got %d", ErrInvalidConfig, c.AccelRingSize)
	}
	if c.VelocityRingSize <= 0 {
		return fmt.Errorf("%w: velocity ring size must be positive, got %d", ErrInvalidConfig, c.VelocityRingSize)
	}
	if !(c.StepThreshold > 0) || math.IsInf(c.StepThreshold, 0) {
		return fmt.Errorf("%w: step threshold must be a positive number, got %v", ErrInvalidConfig, c.StepThreshold)
	}
	if c.StepDelayNanos <= 0 {
		return fmt.Errorf("%w: step delay must be positive, got %dns", ErrInvalidConfig, c.StepDelayNanos)
	}
	return nil
}

// RingBufferDetector estimates gravity as the rolling mean of the last
// AccelRingSize samples, projects each sample onto it, and sums the last
// VelocityRingSize projections into a velocity-like estimate. A step is a
// rising crossing of StepThreshold, debounced by StepDelayNanos.
type RingBufferDetector struct {
	cfg RingBufferConfig

	accelX   *Ring[float64]
	accelY   *Ring[float64]
	accelZ   *Ring[float64]
	velocity *Ring[float64]

	gravity              vecmath.Vec3
	velocityEstimate     float64
	prevVelocityEstimate float64
	lastStepTimeNs       int64
}

// NewRingBufferDetector validates cfg and allocates the ring buffers.
func NewRingBufferDetector(cfg RingBufferConfig) (*RingBufferDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RingBufferDetector{
		cfg:      cfg,
		accelX:   NewRing[float64](cfg.AccelRingSize),
		accelY:   NewRing[float64](cfg.AccelRingSize),
		accelZ:   NewRing[float64](cfg.AccelRingSize),
		velocity: NewRing[float64](cfg.VelocityRingSize),
	}, nil
}

// Update runs one sample through the detector.
func (d *RingBufferDetector) Update(s imu.Sample) (Step, bool) {
	d.accelX.Push(s.X)
	d.accelY.Push(s.Y)
	d.accelZ.Push(s.Z)

	// Unwritten slots are zero, so dividing the full-array sum by the
	// number of samples seen gives the mean during warm-up too.
	n := float64(d.accelX.Len())
	gravity := vecmath.Vec3{
		vecmath.Sum(d.accelX.Values()) / n,
		vecmath.Sum(d.accelY.Values()) / n,
		vecmath.Sum(d.accelZ.Values()) / n,
	}
	magnitude := vecmath.Norm(gravity)
	d.gravity = vecmath.Normalize(gravity)

	// Component along gravity minus the static gravity magnitude.
	vertical := vecmath.Dot(d.gravity, s.Vec()) - magnitude

	d.velocity.Push(vertical)
	// Sum, not mean: the threshold is tuned against the summed window.
	d.velocityEstimate = vecmath.Sum(d.velocity.Values())

	var (
		step  Step
		fired bool
	)
	if d.velocityEstimate > d.cfg.StepThreshold &&
		d.prevVelocityEstimate <= d.cfg.StepThreshold &&
		s.TimestampNanos-d.lastStepTimeNs > d.cfg.StepDelayNanos {
		step = Step{TimestampNanos: s.TimestampNanos}
		fired = true
		d.lastStepTimeNs = s.TimestampNanos
	}
	d.prevVelocityEstimate = d.velocityEstimate
	return step, fired
}

// Signal returns the latest velocity estimate.
func (d *RingBufferDetector) Signal() float64 {
	return d.velocityEstimate
}

// Gravity returns the latest unit gravity direction. It is NaN while the
// gravity window holds only zero vectors.
func (d *RingBufferDetector) Gravity() vecmath.Vec3 {
	return d.gravity
}

// Config returns the detector configuration.
func (d *RingBufferDetector) Config() RingBufferConfig {
	return d.cfg
}

// Reset clears all buffers, estimates and the debounce clock.
func (d *RingBufferDetector) Reset() {
	d.accelX.Reset()
	d.accelY.Reset()
	d.accelZ.Reset()
	d.velocity.Reset()
	d.gravity = vecmath.Vec3{}
	d.velocityEstimate = 0
	d.prevVelocityEstimate = 0
	d.lastStepTimeNs = 0
}
