// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"sync"
)

const earthRadiusMeters = 6371000.0

// DefaultMinSegmentMeters is the smallest move between fixes that counts as
// walked distance. Shorter moves are receiver jitter.
const DefaultMinSegmentMeters = 3.0

// DistanceMeters returns the great-circle distance between two points in
// decimal degrees.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// StrideEstimate is published on the stride topic.
type StrideEstimate struct {
	SessionID      string  `json:"session_id"`
	Steps          int64   `json:"steps"`
	DistanceMeters float64 `json:"distance_m"`
	MetersPerStep  float64 `json:"meters_per_step"`
}

// StrideCalibrator relates GPS distance to counted steps within one
// counting session. Fixes and step counts arrive from different goroutines.
type StrideCalibrator struct {
	minSegment float64

	mu        sync.Mutex
	last      *Fix
	distance  float64
	sessionID string
	steps     int64
}

// NewStrideCalibrator creates a calibrator ignoring moves below minSegment meters.
func NewStrideCalibrator(minSegment float64) *StrideCalibrator {
	return &StrideCalibrator{minSegment: minSegment}
}

// AddFix accumulates the distance from the last counted fix. Void fixes are
// ignored. It returns the distance added.
func (c *StrideCalibrator) AddFix(f Fix) float64 {
	if !f.Valid() {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == nil {
		c.last = &f
		return 0
	}
	d := DistanceMeters(c.last.Latitude, c.last.Longitude, f.Latitude, f.Longitude)
	if d < c.minSegment {
		return 0
	}
	c.distance += d
	c.last = &f
	return d
}

// ObserveSteps records the cumulative count of a session. A new session ID
// restarts the distance so both cover the same walk.
func (c *StrideCalibrator) ObserveSteps(sessionID string, cumulative int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sessionID != c.sessionID {
		c.sessionID = sessionID
		c.distance = 0
		c.last = nil
	}
	c.steps = cumulative
}

// Estimate returns the current stride estimate. MetersPerStep is 0 until a
// step has been seen.
func (c *StrideCalibrator) Estimate() StrideEstimate {
	c.mu.Lock()
	defer c.mu.Unlock()

	est := StrideEstimate{
		SessionID:      c.sessionID,
		Steps:          c.steps,
		DistanceMeters: c.distance,
	}
	if c.steps > 0 {
		est.MetersPerStep = c.distance / float64(c.steps)
	}
	return est
}
