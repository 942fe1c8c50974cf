// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package config loads the YAML configuration shared by the pedometer services.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/inertial_pedometer/internal/detector"
)

// DefaultPath is where every binary looks for its configuration unless -config is given.
const DefaultPath = "./pedometer.yaml"

// Sample source kinds for sensor.source.
const (
	SourceMPU9250 = "mpu9250"
	SourceSerial  = "serial"
	SourceCSV     = "csv"
	SourceMock    = "mock"
)

// Config holds all application configuration values.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Topics   TopicsConfig   `yaml:"topics"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Detector DetectorConfig `yaml:"detector"`
	Session  SessionConfig  `yaml:"session"`
	GPS      GPSConfig      `yaml:"gps"`
	Web      WebConfig      `yaml:"web"`
	Display  DisplayConfig  `yaml:"display"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type MQTTConfig struct {
	Broker           string `yaml:"broker"`
	ClientIDProducer string `yaml:"client_id_producer"`
	ClientIDConsole  string `yaml:"client_id_console"`
	ClientIDWeb      string `yaml:"client_id_web"`
	ClientIDDisplay  string `yaml:"client_id_display"`
	ClientIDGPS      string `yaml:"client_id_gps"`
	Username         string `yaml:"username,omitempty"`
	Password         string `yaml:"password,omitempty"`
}

type TopicsConfig struct {
	Steps   string `yaml:"steps"`
	Summary string `yaml:"summary"`
	Stride  string `yaml:"stride"`
}

type SensorConfig struct {
	Source    string `yaml:"source"` // mpu9250, serial, csv or mock
	SPIDevice string `yaml:"spi_device"`
	CSPin     string `yaml:"cs_pin"`
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	AccelRange       int    `yaml:"accel_range"`
	SampleIntervalMS int    `yaml:"sample_interval_ms"`
	SerialPort       string `yaml:"serial_port"`
	BaudRate         int    `yaml:"baud_rate"`
	CSVPath          string `yaml:"csv_path,omitempty"`

	MockCadenceHz float64 `yaml:"mock_cadence_hz"`
	MockAmplitude float64 `yaml:"mock_amplitude"`
}

type DetectorConfig struct {
	Strategy       string               `yaml:"strategy"`
	RingBuffer     RingBufferConfig     `yaml:"ring_buffer"`
	HysteresisBand HysteresisBandConfig `yaml:"hysteresis_band"`
}

type RingBufferConfig struct {
	AccelRingSize    int     `yaml:"accel_ring_size"`
	VelocityRingSize int     `yaml:"velocity_ring_size"`
	StepThreshold    float64 `yaml:"step_threshold"`
	StepDelayMS      int     `yaml:"step_delay_ms"`
}

type HysteresisBandConfig struct {
	AvgWindow      int     `yaml:"avg_window"`
	MinAmplitude   float64 `yaml:"min_amplitude"`
	MaxAmplitude   float64 `yaml:"max_amplitude"`
	ResetAmplitude float64 `yaml:"reset_amplitude"`
}

type SessionConfig struct {
	DailyGoal int `yaml:"daily_goal"`
}

type GPSConfig struct {
	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type DisplayConfig struct {
	I2CBus           string `yaml:"i2c_bus"` // "" picks the first bus
	UpdateIntervalMS int    `yaml:"update_interval_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// Default returns a fully populated Config. Keys missing from the file keep these values.
func Default() Config {
	rb := detector.DefaultRingBufferConfig()
	hb := detector.DefaultHysteresisBandConfig()
	return Config{
		MQTT: MQTTConfig{
			Broker:           "tcp://localhost:1883",
			ClientIDProducer: "pedometer-producer",
			ClientIDConsole:  "pedometer-console",
			ClientIDWeb:      "pedometer-web",
			ClientIDDisplay:  "pedometer-display",
			ClientIDGPS:      "pedometer-gps",
		},
		Topics: TopicsConfig{
			Steps:   "pedometer/steps",
			Summary: "pedometer/summary",
			Stride:  "pedometer/stride",
		},
		Sensor: SensorConfig{
			Source:           SourceMPU9250,
			SPIDevice:        "/dev/spidev0.0",
			CSPin:            "8",
			AccelRange:       1,
			SampleIntervalMS: 20,
			SerialPort:       "/dev/ttyACM0",
			BaudRate:         115200,
			MockCadenceHz:    1.8,
			MockAmplitude:    6,
		},
		Detector: DetectorConfig{
			Strategy: string(detector.StrategyRingBuffer),
			RingBuffer: RingBufferConfig{
				AccelRingSize:    rb.AccelRingSize,
				VelocityRingSize: rb.VelocityRingSize,
				StepThreshold:    rb.StepThreshold,
				StepDelayMS:      int(time.Duration(rb.StepDelayNanos) / time.Millisecond),
			},
			HysteresisBand: HysteresisBandConfig{
				AvgWindow:      hb.AvgWindow,
				MinAmplitude:   hb.MinAmplitude,
				MaxAmplitude:   hb.MaxAmplitude,
				ResetAmplitude: hb.ResetAmplitude,
			},
		},
		Session: SessionConfig{DailyGoal: 10000},
		GPS: GPSConfig{
			SerialPort: "/dev/serial0",
			BaudRate:   9600,
		},
		Web:     WebConfig{Port: 8080},
		Display: DisplayConfig{UpdateIntervalMS: 500},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads the configuration file and returns a validated Config.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of Default and validates the result.
// Unknown keys are rejected.
func Parse(b []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config yaml: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return nil, errors.New("decode config yaml: unexpected trailing document")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks required fields and ranges.
func (c *Config) validate() error {
	if c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required")
	}
	if c.Topics.Steps == "" || c.Topics.Summary == "" || c.Topics.Stride == "" {
		return errors.New("topics.steps, topics.summary and topics.stride are required")
	}

	switch c.Sensor.Source {
	case SourceMPU9250:
		if c.Sensor.SPIDevice == "" {
			return errors.New("sensor.spi_device is required for the mpu9250 source")
		}
	case SourceSerial:
		if c.Sensor.SerialPort == "" {
			return errors.New("sensor.serial_port is required for the serial source")
		}
		if c.Sensor.BaudRate <= 0 {
			return fmt.Errorf("sensor.baud_rate must be positive, got %d", c.Sensor.BaudRate)
		}
	case SourceCSV:
		if c.Sensor.CSVPath == "" {
			return errors.New("sensor.csv_path is required for the csv source")
		}
	case SourceMock:
		if c.Sensor.MockCadenceHz <= 0 {
			return fmt.Errorf("sensor.mock_cadence_hz must be positive, got %g", c.Sensor.MockCadenceHz)
		}
	default:
		return fmt.Errorf("sensor.source must be %s, %s, %s or %s, got %q",
			SourceMPU9250, SourceSerial, SourceCSV, SourceMock, c.Sensor.Source)
	}
	if c.Sensor.AccelRange < 0 || c.Sensor.AccelRange > 3 {
		return fmt.Errorf("sensor.accel_range must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", c.Sensor.AccelRange)
	}
	if c.Sensor.SampleIntervalMS <= 0 {
		return fmt.Errorf("sensor.sample_interval_ms must be positive, got %d", c.Sensor.SampleIntervalMS)
	}

	sc, err := c.StrategyConfig()
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}

	if c.Session.DailyGoal < 0 {
		return fmt.Errorf("session.daily_goal must not be negative, got %d", c.Session.DailyGoal)
	}
	if c.GPS.BaudRate <= 0 {
		return fmt.Errorf("gps.baud_rate must be positive, got %d", c.GPS.BaudRate)
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be 1-65535, got %d", c.Web.Port)
	}
	if c.Display.UpdateIntervalMS <= 0 {
		return fmt.Errorf("display.update_interval_ms must be positive, got %d", c.Display.UpdateIntervalMS)
	}
	return nil
}

// StrategyConfig maps the detector section onto the detector package's types.
func (c *Config) StrategyConfig() (detector.StrategyConfig, error) {
	strategy, err := detector.ParseStrategy(c.Detector.Strategy)
	if err != nil {
		return detector.StrategyConfig{}, fmt.Errorf("detector.strategy: %w", err)
	}
	rb := c.Detector.RingBuffer
	hb := c.Detector.HysteresisBand
	return detector.StrategyConfig{
		Strategy: strategy,
		RingBuffer: detector.RingBufferConfig{
			AccelRingSize:    rb.AccelRingSize,
			VelocityRingSize: rb.VelocityRingSize,
			StepThreshold:    rb.StepThreshold,
			StepDelayNanos:   (time.Duration(rb.StepDelayMS) * time.Millisecond).Nanoseconds(),
		},
		HysteresisBand: detector.HysteresisBandConfig{
			AvgWindow:      hb.AvgWindow,
			MinAmplitude:   hb.MinAmplitude,
			MaxAmplitude:   hb.MaxAmplitude,
			ResetAmplitude: hb.ResetAmplitude,
		},
	}, nil
}

// SampleInterval returns sensor.sample_interval_ms as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Sensor.SampleIntervalMS) * time.Millisecond
}

// DisplayInterval returns display.update_interval_ms as a duration.
func (c *Config) DisplayInterval() time.Duration {
	return time.Duration(c.Display.UpdateIntervalMS) * time.Millisecond
}
