// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors provides the accelerometer sample sources: the MPU9250
// over SPI, a serial line stream, CSV recordings and a synthetic gait.
package sensors

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/imu"
)

// Source is a sample source that holds a device or file open.
type Source interface {
	imu.SampleSource
	io.Closer
}

// Open creates the source selected by cfg.Source.
func Open(cfg config.SensorConfig, log *zap.Logger) (Source, error) {
	if log == nil {
		log = zap.NewNop()
	}
	interval := time.Duration(cfg.SampleIntervalMS) * time.Millisecond

	switch cfg.Source {
	case config.SourceMPU9250:
		return NewMPU9250Source(MPU9250Options{
			SPIDevice:  cfg.SPIDevice,
			CSPin:      cfg.CSPin,
			AccelRange: byte(cfg.AccelRange),
			Interval:   interval,
		}, log)
	case config.SourceSerial:
		return OpenSerialSource(SerialOptions{PortName: cfg.SerialPort, BaudRate: cfg.BaudRate}, log)
	case config.SourceCSV:
		return OpenCSVSource(cfg.CSVPath)
	case config.SourceMock:
		log.Info("using synthetic gait source",
			zap.Float64("cadence_hz", cfg.MockCadenceHz),
			zap.Float64("amplitude", cfg.MockAmplitude))
		return Throttle(NewMockSource(cfg.MockCadenceHz, cfg.MockAmplitude, interval), interval), nil
	default:
		return nil, fmt.Errorf("unknown sample source %q", cfg.Source)
	}
}

type throttled struct {
	src    Source
	ticker *time.Ticker
}

// Throttle paces src to one sample per interval of wall time.
func Throttle(src Source, interval time.Duration) Source {
	if interval <= 0 {
		return src
	}
	return &throttled{src: src, ticker: time.NewTicker(interval)}
}

func (t *throttled) Next() (imu.Sample, error) {
	<-t.ticker.C
	return t.src.Next()
}

func (t *throttled) Close() error {
	t.ticker.Stop()
	return t.src.Close()
}
