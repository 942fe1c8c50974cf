// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package brokertest provides an in-process stand-in for the MQTT broker.
package brokertest

import (
	"sync"

	"github.com/relabs-tech/inertial_pedometer/internal/broker"
)

// Message is one recorded publish.
type Message struct {
	Topic    string
	Retained bool
	Payload  []byte
}

// Bus delivers publishes synchronously to handlers subscribed to the exact
// topic and records them. Retained messages are replayed on Subscribe.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]broker.MessageHandler
	retained map[string][]byte
	messages []Message
	errs     []error

	// PublishErr, when set, is returned by every Publish.
	PublishErr error
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]broker.MessageHandler),
		retained: make(map[string][]byte),
	}
}

func (b *Bus) Publish(topic string, _ byte, retained bool, payload []byte) error {
	b.mu.Lock()
	if b.PublishErr != nil {
		b.mu.Unlock()
		return b.PublishErr
	}
	p := append([]byte(nil), payload...)
	b.messages = append(b.messages, Message{Topic: topic, Retained: retained, Payload: p})
	if retained {
		b.retained[topic] = p
	}
	handlers := append([]broker.MessageHandler(nil), b.handlers[topic]...)
	b.mu.Unlock()

	for _, h := range handlers {
		b.record(h(topic, p))
	}
	return nil
}

func (b *Bus) Subscribe(topic string, _ byte, handler broker.MessageHandler) error {
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	p, ok := b.retained[topic]
	b.mu.Unlock()

	if ok {
		b.record(handler(topic, p))
	}
	return nil
}

func (b *Bus) record(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()
}

// Messages returns the publishes seen so far, optionally filtered by topic.
func (b *Bus) Messages(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.messages {
		if topic == "" || m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// HandlerErrors returns the errors returned by subscribed handlers.
func (b *Bus) HandlerErrors() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.errs...)
}
