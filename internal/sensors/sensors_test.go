package sensors

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/imu"
)

func TestParseSampleLine(t *testing.T) {
	tests := []struct {
		line    string
		want    imu.Sample
		wantErr bool
	}{
		{line: "20000000,0.1,-0.2,9.81", want: imu.Sample{TimestampNanos: 20_000_000, X: 0.1, Y: -0.2, Z: 9.81}},
		{line: " 5, 1, 2, 3 \r\n", want: imu.Sample{TimestampNanos: 5, X: 1, Y: 2, Z: 3}},
		{line: "0,NaN,0,0", want: imu.Sample{X: math.NaN()}},
		{line: "1,2,3", wantErr: true},
		{line: "1,2,3,4,5", wantErr: true},
		{line: "t,1,2,3", wantErr: true},
		{line: "1,x,2,3", wantErr: true},
		{line: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseSampleLine(tt.line)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedLine)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.TimestampNanos, got.TimestampNanos)
			if math.IsNaN(tt.want.X) {
				assert.True(t, math.IsNaN(got.X))
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLineSourceSkipsNoise(t *testing.T) {
	stream := "boot v1.2\n# comment\n10,0,0,9.8\n\n0.3,garbage\n20,0,0,9.9\n30,1,1,1"
	src := NewLineSource(strings.NewReader(stream), nil)

	var got []int64
	for {
		s, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, s.TimestampNanos)
	}
	assert.Equal(t, []int64{10, 20, 30}, got)
	assert.NoError(t, src.Close())
}

func TestCSVSource(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int64
	}{
		{"with header", "timestamp_ns,x,y,z\n0,0,0,9.8\n20,0,0,9.7\n", []int64{0, 20}},
		{"without header", "0,0,0,9.8\n20,0,0,9.7\n", []int64{0, 20}},
		{"negative timestamp", "-20,0,0,9.8\n", []int64{-20}},
		{"comments", "# recorded on the pi\n0,0,0,9.8\n", []int64{0}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewCSVSource(strings.NewReader(tt.input))
			var got []int64
			for {
				s, err := src.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				got = append(got, s.TimestampNanos)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSVSourceRejectsMalformedRows(t *testing.T) {
	src := NewCSVSource(strings.NewReader("0,0,0,9.8\n20,0,zero,9.7\n"))
	_, err := src.Next()
	require.NoError(t, err)

	_, err = src.Next()
	require.ErrorIs(t, err, ErrMalformedLine)
	assert.Contains(t, err.Error(), "row 2")

	src = NewCSVSource(strings.NewReader("0,0,9.8\n"))
	_, err = src.Next()
	require.Error(t, err)
}

func TestWriteCSVReadsBack(t *testing.T) {
	samples := []imu.Sample{
		{TimestampNanos: 0, X: 0.25, Y: -1, Z: 9.80665},
		{TimestampNanos: 20_000_000, X: 1e-9, Y: 0, Z: 12.5},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, samples))
	assert.True(t, strings.HasPrefix(buf.String(), "timestamp_ns,x,y,z\n"))

	path := filepath.Join(t.TempDir(), "walk.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	src, err := OpenCSVSource(path)
	require.NoError(t, err)
	defer src.Close()

	var got []imu.Sample
	for {
		s, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, s)
	}
	assert.Equal(t, samples, got)
}

func TestMockSource(t *testing.T) {
	src := NewMockSource(2, 5, 20*time.Millisecond)

	var sumZ float64
	var maxZ float64
	const n = 500 // ten seconds, a whole number of cycles
	for i := 0; i < n; i++ {
		s, err := src.Next()
		require.NoError(t, err)
		require.Equal(t, int64(i)*20_000_000, s.TimestampNanos)
		sumZ += s.Z
		maxZ = math.Max(maxZ, s.Z)
	}
	assert.InDelta(t, imu.StandardGravity, sumZ/n, 1e-6)
	assert.InDelta(t, imu.StandardGravity+5, maxZ, 0.05)
	assert.NoError(t, src.Close())
}

type fakeAccel struct {
	x, y, z int16
	err     error
}

func (f *fakeAccel) GetAccelerationX() (int16, error) { return f.x, f.err }
func (f *fakeAccel) GetAccelerationY() (int16, error) { return f.y, nil }
func (f *fakeAccel) GetAccelerationZ() (int16, error) { return f.z, nil }

func TestMPU9250SourceConvertsAndStamps(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	clock := base
	now := func() time.Time { return clock }

	dev := &fakeAccel{x: 0, y: -8192, z: 8192}
	src := newMPU9250Source(dev, 1, 0, now)

	clock = base.Add(40 * time.Millisecond)
	s, err := src.Next()
	require.NoError(t, err)

	assert.Equal(t, int64(40_000_000), s.TimestampNanos)
	assert.Equal(t, 0.0, s.X)
	assert.InDelta(t, -imu.StandardGravity, s.Y, 1e-9)
	assert.InDelta(t, imu.StandardGravity, s.Z, 1e-9)

	dev.err = errors.New("spi timeout")
	_, err = src.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accel X")
	assert.NoError(t, src.Close())
}

func TestOpen(t *testing.T) {
	cfg := config.Default().Sensor

	cfg.Source = config.SourceMock
	cfg.SampleIntervalMS = 1
	src, err := Open(cfg, nil)
	require.NoError(t, err)
	s, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.TimestampNanos)
	require.NoError(t, src.Close())

	path := filepath.Join(t.TempDir(), "rec.csv")
	require.NoError(t, os.WriteFile(path, []byte("7,0,0,9.8\n"), 0o644))
	cfg.Source = config.SourceCSV
	cfg.CSVPath = path
	src, err = Open(cfg, nil)
	require.NoError(t, err)
	s, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.TimestampNanos)
	require.NoError(t, src.Close())

	cfg.Source = "bluetooth"
	_, err = Open(cfg, nil)
	require.Error(t, err)
}
