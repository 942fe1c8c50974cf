// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_pedometer/internal/broker"
	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/engine"
	"github.com/relabs-tech/inertial_pedometer/internal/gps"
)

// lockedWriter serializes lines written from different MQTT callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

// SubscribeConsole prints one line per step event, summary and stride estimate.
func SubscribeConsole(sub broker.Subscriber, topics config.TopicsConfig, w io.Writer) error {
	out := &lockedWriter{w: w}

	if err := sub.Subscribe(topics.Steps, 0, broker.JSONHandler(func(_ string, ev engine.StepEvent) error {
		out.printf("[STEP]   #%-6d t=%10.3fs  session=%s\n",
			ev.CumulativeSteps, float64(ev.TimestampNanos)/1e9, ev.SessionID)
		return nil
	})); err != nil {
		return err
	}

	if err := sub.Subscribe(topics.Summary, 0, broker.JSONHandler(func(_ string, s engine.Summary) error {
		out.printf("[SUM]    steps=%d  dist=%.1fm  kcal=%.2f  goal=%.1f%%  (%s)\n",
			s.Steps, s.DistanceMeters, s.Calories, s.GoalProgress*100, s.CounterType)
		return nil
	})); err != nil {
		return err
	}

	return sub.Subscribe(topics.Stride, 0, broker.JSONHandler(func(_ string, e gps.StrideEstimate) error {
		out.printf("[STRIDE] steps=%d  gps=%.1fm  stride=%.3fm\n",
			e.Steps, e.DistanceMeters, e.MetersPerStep)
		return nil
	}))
}

// RunConsoleMQTT prints the pedometer topics to stdout until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log = log.Named("console")

	client, err := broker.Connect(cfg.MQTT, cfg.MQTT.ClientIDConsole, log)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	if err := SubscribeConsole(client, cfg.Topics, os.Stdout); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
