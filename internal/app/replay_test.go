package app

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/detector"
	"github.com/relabs-tech/inertial_pedometer/internal/imu/imutest"
	"github.com/relabs-tech/inertial_pedometer/internal/sensors"
)

func TestReplayRingBuffer(t *testing.T) {
	trace, err := Replay(context.Background(), imutest.NewSource(walkSamples()), detector.DefaultStrategyConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(200), trace.Samples)
	assert.Len(t, trace.Signal, 200)
	require.Len(t, trace.Steps, 4)
	require.Len(t, trace.StepSignal, 4)
	assert.InDelta(t, 0.5, trace.StepSignal[0].X, 1e-12)
	for _, p := range trace.StepSignal {
		assert.Greater(t, p.Y, 4.0)
	}
	assert.Equal(t, map[string]float64{"step threshold": 4}, trace.Levels)
}

func TestReplaySkipsNonFiniteSignal(t *testing.T) {
	samples := walkSamples()
	samples[100].Z = math.NaN()

	trace, err := Replay(context.Background(), imutest.NewSource(samples), detector.DefaultStrategyConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(200), trace.Samples)
	assert.Less(t, len(trace.Signal), 200)
	for _, p := range trace.Signal {
		assert.False(t, math.IsNaN(p.Y))
	}
}

func TestReplayHysteresisPlot(t *testing.T) {
	sc := detector.DefaultStrategyConfig()
	sc.Strategy = detector.StrategyHysteresisBand

	trace, err := Replay(context.Background(), imutest.NewSource(imutest.SineZ(600, interval, 2, 60)), sc, nil)
	require.NoError(t, err)
	assert.Len(t, trace.Steps, 9)
	assert.Len(t, trace.Levels, 2)

	path := filepath.Join(t.TempDir(), "trace.png")
	require.NoError(t, trace.Plot(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunReplay(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "walk.csv")
	f, err := os.Create(csvPath)
	require.NoError(t, err)
	require.NoError(t, sensors.WriteCSV(f, walkSamples()))
	require.NoError(t, f.Close())

	cfg := config.Default()
	plotPath := filepath.Join(dir, "walk.png")
	var out bytes.Buffer
	require.NoError(t, RunReplay(context.Background(), &cfg, zapNop(), csvPath, plotPath, &out))

	assert.Contains(t, out.String(), "step     1 at      0.500s")
	assert.Contains(t, out.String(), "200 samples, 4 steps, 3.0 m, 0.18 kcal")
	_, err = os.Stat(plotPath)
	assert.NoError(t, err)

	err = RunReplay(context.Background(), &cfg, zapNop(), filepath.Join(dir, "missing.csv"), "", &out)
	assert.Error(t, err)
}
