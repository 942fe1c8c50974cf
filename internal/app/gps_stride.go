// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"errors"
	"io"

	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_pedometer/internal/broker"
	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/engine"
	"github.com/relabs-tech/inertial_pedometer/internal/gps"
)

// TrackStride reads NMEA lines from r into cal and publishes a stride
// estimate every time a fix adds distance. It returns nil at end of input
// or when ctx is done.
func TrackStride(ctx context.Context, r io.Reader, cal *gps.StrideCalibrator, pub broker.Publisher, topic string, log *zap.Logger) error {
	reader := bufio.NewReader(r)
	for ctx.Err() == nil {
		line, err := reader.ReadString('\n')
		if line != "" {
			fix, ok, perr := gps.ParseFix(line)
			switch {
			case perr != nil:
				// noisy GPS or partial sentences
				log.Debug("nmea parse error", zap.Error(perr))
			case ok && cal.AddFix(fix) > 0:
				if err := broker.PublishJSON(pub, topic, true, cal.Estimate()); err != nil {
					log.Warn("publish stride failed", zap.Error(err))
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

// SubscribeStride feeds step events into cal.
func SubscribeStride(sub broker.Subscriber, topics config.TopicsConfig, cal *gps.StrideCalibrator) error {
	return sub.Subscribe(topics.Steps, 0, broker.JSONHandler(func(_ string, ev engine.StepEvent) error {
		cal.ObserveSteps(ev.SessionID, ev.CumulativeSteps)
		return nil
	}))
}

// RunGPSStride opens the GPS serial port and publishes stride estimates
// relating GPS distance to the counted steps.
func RunGPSStride(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log = log.Named("gps")

	client, err := broker.Connect(cfg.MQTT, cfg.MQTT.ClientIDGPS, log)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	cal := gps.NewStrideCalibrator(gps.DefaultMinSegmentMeters)
	if err := SubscribeStride(client, cfg.Topics, cal); err != nil {
		return err
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:              cfg.GPS.SerialPort,
		BaudRate:              uint(cfg.GPS.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	})
	if err != nil {
		return err
	}
	defer port.Close()
	log.Info("GPS serial port opened", zap.String("port", cfg.GPS.SerialPort), zap.Int("baud", cfg.GPS.BaudRate))

	// closing the port unblocks the pending read
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	return TrackStride(ctx, port, cal, client, cfg.Topics.Stride, log)
}
