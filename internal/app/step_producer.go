// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_pedometer/internal/broker"
	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/engine"
	"github.com/relabs-tech/inertial_pedometer/internal/imu"
	"github.com/relabs-tech/inertial_pedometer/internal/sensors"
)

// Pump feeds samples from src into eng until ctx is done, the source is
// exhausted (io.EOF) or the source fails. It is the only goroutine calling
// Ingest. It returns the number of samples read.
func Pump(ctx context.Context, src imu.SampleSource, eng *engine.Engine) (int64, error) {
	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, nil
		}
		s, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("read sample: %w", err)
		}
		n++
		eng.Ingest(s)
	}
}

// StepPublisher forwards engine step events to MQTT: the event itself on the
// steps topic and the refreshed summary, retained, on the summary topic.
type StepPublisher struct {
	pub    broker.Publisher
	topics config.TopicsConfig
	eng    *engine.Engine
	log    *zap.Logger
}

func NewStepPublisher(pub broker.Publisher, topics config.TopicsConfig, eng *engine.Engine, log *zap.Logger) *StepPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &StepPublisher{pub: pub, topics: topics, eng: eng, log: log}
}

// Consume is the engine consumer. Publish failures are logged and dropped.
func (p *StepPublisher) Consume(ev engine.StepEvent) {
	if err := broker.PublishJSON(p.pub, p.topics.Steps, false, ev); err != nil {
		p.log.Warn("publish step failed", zap.Error(err))
	}
	p.PublishSummary()
}

// PublishSummary publishes the engine's current summary.
func (p *StepPublisher) PublishSummary() {
	if err := broker.PublishJSON(p.pub, p.topics.Summary, true, p.eng.Summary()); err != nil {
		p.log.Warn("publish summary failed", zap.Error(err))
	}
}

// CountSteps runs one counting session over src: Start, Pump, Stop. The
// summary is published at the start and the end of the session.
func CountSteps(ctx context.Context, src imu.SampleSource, eng *engine.Engine, pub *StepPublisher, cfg *config.Config) error {
	sc, err := cfg.StrategyConfig()
	if err != nil {
		return err
	}
	if err := eng.Start(sc); err != nil {
		return err
	}
	eng.SetConsumer(pub.Consume)
	pub.PublishSummary()

	n, err := Pump(ctx, src, eng)
	eng.Stop()
	pub.PublishSummary()

	pub.log.Info("session ended",
		zap.String("session_id", eng.SessionID()),
		zap.Int64("samples", n),
		zap.Int64("steps", eng.CurrentStepCount()))
	return err
}

// RunStepProducer reads the configured sample source, counts steps and
// publishes them until ctx is cancelled.
func RunStepProducer(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log = log.Named("producer")

	src, err := sensors.Open(cfg.Sensor, log)
	if err != nil {
		return fmt.Errorf("open sample source: %w", err)
	}
	defer src.Close()
	log.Info("sample source ready", zap.String("source", cfg.Sensor.Source))

	client, err := broker.Connect(cfg.MQTT, cfg.MQTT.ClientIDProducer, log)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	eng := engine.New(engine.WithLogger(log), engine.WithDailyGoal(cfg.Session.DailyGoal))
	pub := NewStepPublisher(client, cfg.Topics, eng, log)

	return CountSteps(ctx, src, eng, pub, cfg)
}
