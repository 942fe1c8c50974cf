// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package broker wraps the paho MQTT client used by every pedometer service.
package broker

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_pedometer/internal/config"
)

const disconnectQuiesceMs = 250

// MessageHandler processes one message. A returned error is logged; the
// subscription stays active.
type MessageHandler func(topic string, payload []byte) error

// Publisher is the publishing half of a Client.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Subscriber is the subscribing half of a Client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// Client is a connected MQTT session.
type Client struct {
	client mqtt.Client
	log    *zap.Logger
}

// Connect opens a session to cfg.Broker under clientID.
func Connect(cfg config.MQTTConfig, clientID string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("mqtt")

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info("connected", zap.String("broker", cfg.Broker), zap.String("client_id", clientID))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}

	return &Client{client: client, log: log}, nil
}

// Publish sends payload and waits for the broker to acknowledge it.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

// Subscribe registers handler for topic.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if token := c.client.Subscribe(topic, qos, c.dispatch(handler)); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	c.log.Info("subscribed", zap.String("topic", topic))
	return nil
}

func (c *Client) dispatch(handler MessageHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log.Warn("message handler failed", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	}
}

// Disconnect closes the session.
func (c *Client) Disconnect() {
	c.client.Disconnect(disconnectQuiesceMs)
}

// IsConnected reports the connection state.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// PublishJSON marshals v and publishes it at QoS 0.
func PublishJSON(p Publisher, topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return p.Publish(topic, 0, retained, payload)
}

// JSONHandler decodes each payload into a fresh T before calling fn.
func JSONHandler[T any](fn func(topic string, v T) error) MessageHandler {
	return func(topic string, payload []byte) error {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", topic, err)
		}
		return fn(topic, v)
	}
}
