// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_pedometer/internal/imu"
)

// ErrMalformedLine is returned for a sample line that is not "timestamp_ns,x,y,z".
var ErrMalformedLine = errors.New("malformed sample line")

// ParseSampleLine parses "timestamp_ns,x,y,z" with x, y and z in m/s².
func ParseSampleLine(line string) (imu.Sample, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 4 {
		return imu.Sample{}, fmt.Errorf("%w: want 4 fields, got %d in %q", ErrMalformedLine, len(fields), line)
	}
	return parseSampleFields(fields)
}

func parseSampleFields(fields []string) (imu.Sample, error) {
	ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return imu.Sample{}, fmt.Errorf("%w: timestamp %q: %v", ErrMalformedLine, fields[0], err)
	}
	var axes [3]float64
	for i, f := range fields[1:4] {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return imu.Sample{}, fmt.Errorf("%w: axis %d %q: %v", ErrMalformedLine, i, f, err)
		}
		axes[i] = v
	}
	return imu.Sample{TimestampNanos: ts, X: axes[0], Y: axes[1], Z: axes[2]}, nil
}

// LineSource reads samples from a line oriented stream such as a
// microcontroller streaming over USB serial. Lines that do not parse are
// skipped; the stream often starts mid-line or carries boot chatter.
type LineSource struct {
	r      *bufio.Reader
	closer io.Closer
	log    *zap.Logger
}

// NewLineSource reads samples from r.
func NewLineSource(r io.Reader, log *zap.Logger) *LineSource {
	if log == nil {
		log = zap.NewNop()
	}
	ls := &LineSource{r: bufio.NewReader(r), log: log}
	if c, ok := r.(io.Closer); ok {
		ls.closer = c
	}
	return ls
}

// SerialOptions selects the serial port streaming samples.
type SerialOptions struct {
	PortName string
	BaudRate int
}

// OpenSerialSource opens the serial port 8N1 and returns a LineSource on it.
func OpenSerialSource(opts SerialOptions, log *zap.Logger) (*LineSource, error) {
	if log == nil {
		log = zap.NewNop()
	}
	port, err := serial.Open(serial.OpenOptions{
		PortName:              opts.PortName,
		BaudRate:              uint(opts.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", opts.PortName, err)
	}
	log.Info("serial port opened", zap.String("port", opts.PortName), zap.Int("baud", opts.BaudRate))
	return NewLineSource(port, log.Named("serial")), nil
}

// Next returns the next parseable sample, or io.EOF at end of stream.
func (s *LineSource) Next() (imu.Sample, error) {
	for {
		line, err := s.r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			sample, perr := ParseSampleLine(line)
			if perr == nil {
				return sample, nil
			}
			s.log.Debug("skipping line", zap.Error(perr))
		}
		if err != nil {
			return imu.Sample{}, err
		}
	}
}

// Close closes the underlying stream if it can be closed.
func (s *LineSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
