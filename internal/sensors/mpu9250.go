// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_pedometer/internal/imu"
)

// accelReader is the part of the MPU9250 driver the source needs.
type accelReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
}

// MPU9250Options configures the accelerometer source.
type MPU9250Options struct {
	SPIDevice  string
	CSPin      string
	AccelRange byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	Interval   time.Duration
}

// MPU9250Source reads the MPU9250 accelerometer at a fixed interval.
// Timestamps are nanoseconds since the source was opened, taken from the
// monotonic clock.
type MPU9250Source struct {
	dev        accelReader
	accelRange byte
	start      time.Time
	now        func() time.Time
	ticker     *time.Ticker
}

// NewMPU9250Source initializes the MPU9250 over SPI.
func NewMPU9250Source(opts MPU9250Options, log *zap.Logger) (*MPU9250Source, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("mpu9250")

	if opts.AccelRange > 3 {
		return nil, fmt.Errorf("IMU: accel range must be 0-3, got %d", opts.AccelRange)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(opts.AccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Info("accelerometer range set",
		zap.Uint8("range", opts.AccelRange),
		zap.Int("g", []int{2, 4, 8, 16}[opts.AccelRange]))

	if err := dev.Calibrate(); err != nil {
		log.Warn("calibration failed", zap.Error(err))
	} else {
		log.Info("calibration complete")
	}

	return newMPU9250Source(dev, opts.AccelRange, opts.Interval, time.Now), nil
}

func newMPU9250Source(dev accelReader, accelRange byte, interval time.Duration, now func() time.Time) *MPU9250Source {
	s := &MPU9250Source{
		dev:        dev,
		accelRange: accelRange,
		start:      now(),
		now:        now,
	}
	if interval > 0 {
		s.ticker = time.NewTicker(interval)
	}
	return s
}

// Next waits for the next tick and reads one sample.
func (s *MPU9250Source) Next() (imu.Sample, error) {
	if s.ticker != nil {
		<-s.ticker.C
	}

	ax, err := s.dev.GetAccelerationX()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.dev.GetAccelerationY()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.dev.GetAccelerationZ()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	return imu.Sample{
		TimestampNanos: s.now().Sub(s.start).Nanoseconds(),
		X:              imu.CountsToMetersPerSecond2(ax, s.accelRange),
		Y:              imu.CountsToMetersPerSecond2(ay, s.accelRange),
		Z:              imu.CountsToMetersPerSecond2(az, s.accelRange),
	}, nil
}

// Close stops the sampling ticker.
func (s *MPU9250Source) Close() error {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	return nil
}
