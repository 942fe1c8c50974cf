// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/relabs-tech/inertial_pedometer/internal/imu"
)

// CSVSource replays a recording with rows "timestamp_ns,x,y,z". A first row
// starting with a non-numeric timestamp is treated as a header. Unlike
// LineSource a malformed row is an error.
type CSVSource struct {
	r      *csv.Reader
	closer io.Closer
	row    int
}

// NewCSVSource reads a recording from r.
func NewCSVSource(r io.Reader) *CSVSource {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	return &CSVSource{r: cr}
}

// OpenCSVSource opens a recording on disk.
func OpenCSVSource(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	s := NewCSVSource(f)
	s.closer = f
	return s, nil
}

// Next returns the next row, or io.EOF at the end of the recording.
func (s *CSVSource) Next() (imu.Sample, error) {
	for {
		rec, err := s.r.Read()
		if errors.Is(err, io.EOF) {
			return imu.Sample{}, io.EOF
		}
		if err != nil {
			return imu.Sample{}, fmt.Errorf("read recording: %w", err)
		}
		s.row++

		if s.row == 1 && isHeader(rec) {
			continue
		}
		sample, err := parseSampleFields(rec)
		if err != nil {
			return imu.Sample{}, fmt.Errorf("recording row %d: %w", s.row, err)
		}
		return sample, nil
	}
}

func isHeader(rec []string) bool {
	first := strings.TrimSpace(rec[0])
	return first != "" && (first[0] < '0' || first[0] > '9') && first[0] != '-'
}

// Close closes the recording file.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// WriteCSV writes samples in the format CSVSource reads, header included.
func WriteCSV(w io.Writer, samples []imu.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp_ns", "x", "y", "z"}); err != nil {
		return err
	}
	for _, s := range samples {
		rec := []string{
			fmt.Sprint(s.TimestampNanos),
			formatFloat(s.X),
			formatFloat(s.Y),
			formatFloat(s.Z),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
