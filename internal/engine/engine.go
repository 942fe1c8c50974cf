// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package engine owns one active step detector per counting session, keeps
// the cumulative step count and hands step events to a single consumer.
//
// An Engine is single-threaded: Ingest must be called from one goroutine,
// the one delivering sensor samples. Nothing in the engine blocks, sleeps,
// performs I/O or reads a clock; timestamps come from the samples.
package engine

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_pedometer/internal/detector"
	"github.com/relabs-tech/inertial_pedometer/internal/imu"
)

// DefaultDailyGoal is the step goal reported in summaries unless overridden.
const DefaultDailyGoal = 10000

// StepEvent is delivered to the consumer for every recognized step.
type StepEvent struct {
	SessionID       string `json:"session_id"`
	TimestampNanos  int64  `json:"timestamp_ns"`
	CumulativeSteps int64  `json:"steps"`
}

// Consumer receives step events synchronously from Ingest.
type Consumer func(StepEvent)

// Engine is the step counting composition root.
type Engine struct {
	log       *zap.Logger
	consumer  Consumer
	dailyGoal int
	newID     func() string

	det       detector.Detector
	strategy  detector.Strategy
	running   bool
	steps     int64
	sessionID string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l == nil {
			l = zap.NewNop()
		}
		e.log = l.Named("engine")
	}
}

// WithConsumer registers the step consumer at construction.
func WithConsumer(c Consumer) Option {
	return func(e *Engine) { e.consumer = c }
}

// WithDailyGoal sets the goal used by Summary.
func WithDailyGoal(goal int) Option {
	return func(e *Engine) { e.dailyGoal = goal }
}

// WithSessionIDs replaces the uuid session ID generator.
func WithSessionIDs(next func() string) Option {
	return func(e *Engine) { e.newID = next }
}

// New creates a stopped engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:       zap.NewNop(),
		dailyGoal: DefaultDailyGoal,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start builds a fresh detector for cfg, resets the step count and starts a
// new session. On a configuration error the engine is left untouched.
func (e *Engine) Start(cfg detector.StrategyConfig) error {
	det, err := detector.New(cfg)
	if err != nil {
		return fmt.Errorf("engine start: %w", err)
	}

	e.det = det
	e.strategy = cfg.Strategy
	e.steps = 0
	e.sessionID = e.newID()
	e.running = true

	e.log.Info("counting started",
		zap.String("session_id", e.sessionID),
		zap.String("strategy", string(cfg.Strategy)))
	return nil
}

// Stop ends the session. The step count stays readable until the next Start.
func (e *Engine) Stop() {
	if !e.running {
		return
	}
	e.running = false
	e.log.Info("counting stopped",
		zap.String("session_id", e.sessionID),
		zap.Int64("steps", e.steps))
}

// Ingest feeds one sample to the active detector. It is a no-op while the
// engine is stopped, which tolerates callbacks still in flight after Stop.
// At most one step event is produced per call; it is returned and also
// passed to the consumer before Ingest returns.
func (e *Engine) Ingest(s imu.Sample) (StepEvent, bool) {
	if !e.running {
		return StepEvent{}, false
	}

	step, ok := e.det.Update(s)
	if !ok {
		return StepEvent{}, false
	}

	e.steps++
	ev := StepEvent{
		SessionID:       e.sessionID,
		TimestampNanos:  step.TimestampNanos,
		CumulativeSteps: e.steps,
	}
	e.log.Debug("step",
		zap.Int64("timestamp_ns", ev.TimestampNanos),
		zap.Int64("steps", ev.CumulativeSteps))

	if e.consumer != nil {
		e.consumer(ev)
	}
	return ev, true
}

// SetConsumer replaces the registered consumer. Only one consumer is kept;
// nil unregisters it.
func (e *Engine) SetConsumer(c Consumer) {
	e.consumer = c
}

// CurrentStepCount returns the steps counted in the current or last session.
func (e *Engine) CurrentStepCount() int64 {
	return e.steps
}

// Running reports whether samples are being processed.
func (e *Engine) Running() bool {
	return e.running
}

// SessionID returns the ID of the current or last session, "" before the first Start.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Strategy returns the strategy of the current or last session.
func (e *Engine) Strategy() detector.Strategy {
	return e.strategy
}

// Signal returns the active detector's thresholded signal, 0 before the first Start.
func (e *Engine) Signal() float64 {
	if e.det == nil {
		return 0
	}
	return e.det.Signal()
}

// Summary returns the current count with its derived metrics.
func (e *Engine) Summary() Summary {
	return NewSummary(e.sessionID, e.steps, e.dailyGoal, string(e.strategy))
}
