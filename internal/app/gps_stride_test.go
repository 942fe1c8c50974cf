package app

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_pedometer/internal/broker"
	"github.com/relabs-tech/inertial_pedometer/internal/broker/brokertest"
	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/engine"
	"github.com/relabs-tech/inertial_pedometer/internal/gps"
)

const nmeaWalk = `u-blox boot
$GPRMC,120000,A,4807.000,N,01131.000,E,001.0,000.0,150926,003.1,W*64
$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47
$GPRMC,120010,A,4807.050,N,01131.000,E,001.0,000.0,150926,003.1,W*60
$GPRMC,120020,V,4807.100,N,01131.000,E,001.0,000.0,150926,003.1,W*70
$GPRMC,120025,A,4807.120,N,01131.000,E,001.0,000.0,150926,003.1,W*FF
$GPRMC,120030,A,4807.150,N,01131.000,E,001.0,000.0,150926,003.1,W*63
$GPRMC,120031,A,4807.1505,N,01131.000,E,001.0,000.0,150926,003.1,W*57`

func TestGPSStrideEndToEnd(t *testing.T) {
	topics := config.Default().Topics
	bus := brokertest.NewBus()
	cal := gps.NewStrideCalibrator(gps.DefaultMinSegmentMeters)
	require.NoError(t, SubscribeStride(bus, topics, cal))

	for i := int64(1); i <= 400; i++ {
		require.NoError(t, broker.PublishJSON(bus, topics.Steps, false,
			engine.StepEvent{SessionID: "walk", CumulativeSteps: i}))
	}

	require.NoError(t, TrackStride(context.Background(), strings.NewReader(nmeaWalk), cal, bus, topics.Stride, zapNop()))

	msgs := bus.Messages(topics.Stride)
	require.Len(t, msgs, 2)
	var est gps.StrideEstimate
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &est))
	assert.Equal(t, "walk", est.SessionID)
	assert.Equal(t, int64(400), est.Steps)
	assert.InDelta(t, 277.99, est.DistanceMeters, 0.05)
	assert.InDelta(t, 0.695, est.MetersPerStep, 1e-3)
	assert.True(t, msgs[1].Retained)
}

func TestTrackStrideStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus := brokertest.NewBus()
	cal := gps.NewStrideCalibrator(gps.DefaultMinSegmentMeters)

	require.NoError(t, TrackStride(ctx, strings.NewReader(nmeaWalk), cal, bus, "stride", zapNop()))
	assert.Empty(t, bus.Messages(""))
}
