// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_pedometer/internal/broker"
	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/engine"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
)

// DisplayData holds the latest summary for the OLED.
type DisplayData struct {
	mu      sync.RWMutex
	summary engine.Summary
	have    bool
}

func (d *DisplayData) set(s engine.Summary) {
	d.mu.Lock()
	d.summary = s
	d.have = true
	d.mu.Unlock()
}

func (d *DisplayData) get() (engine.Summary, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.summary, d.have
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, row int, text string) {
	d.Dot = fixed.P(x, row*lineHeight)
	d.DrawString(text)
}

// renderSummary draws the step screen: count, distance, calories and goal.
func renderSummary(s engine.Summary, have bool) *image1bit.VerticalLSB {
	img, d := newFrame()

	if !have {
		drawLine(d, 0, 2, "Pedometer")
		drawLine(d, 0, 3, "Waiting...")
		return img
	}

	drawLine(d, 0, 1, fmt.Sprintf("Steps %d", s.Steps))
	drawLine(d, 0, 2, fmt.Sprintf("Dist  %.2f km", s.DistanceMeters/1000))
	drawLine(d, 0, 3, fmt.Sprintf("Kcal  %.1f", s.Calories))
	drawLine(d, 0, 4, fmt.Sprintf("Goal  %.0f%%", s.GoalProgress*100))
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, d := newFrame()
	drawLine(d, 10, 2, "Inertial Pi")
	drawLine(d, 20, 3, "Pedometer")
	return img
}

// RunDisplay shows the summary topic on an SSD1306 128x64 OLED over I²C.
func RunDisplay(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log = log.Named("display")

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.Display.I2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Info("display initialized", zap.String("bus", bus.String()))

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Warn("error showing splash", zap.Error(err))
	}

	client, err := broker.Connect(cfg.MQTT, cfg.MQTT.ClientIDDisplay, log)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	data := &DisplayData{}
	if err := client.Subscribe(cfg.Topics.Summary, 0, broker.JSONHandler(func(_ string, s engine.Summary) error {
		data.set(s)
		return nil
	})); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.DisplayInterval())
	defer ticker.Stop()

	var last engine.Summary
	drawn := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		s, have := data.get()
		if !have || (drawn && s == last) {
			continue
		}
		if err := dev.Draw(dev.Bounds(), renderSummary(s, have), image.Point{}); err != nil {
			log.Warn("display update error", zap.Error(err))
			continue
		}
		last, drawn = s, true
	}
}
