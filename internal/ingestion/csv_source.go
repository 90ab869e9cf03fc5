package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"groundwater-lab/internal/domain"
)

// CSVSource reads historical observations from a measurement export file.
//
// Expected columns: station_id, timestamp, level_m, unit. A header row is
// detected and skipped. Timestamps are RFC 3339 or plain dates.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source for the given export file.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

var _ BackfillSource = (*CSVSource)(nil)

// Fetch parses the whole file. A malformed row aborts the backfill with
// an error naming its line.
func (s *CSVSource) Fetch(ctx context.Context) ([]*domain.RawObservation, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 4
	reader.TrimLeadingSpace = true

	var obs []*domain.RawObservation
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		line++

		if line == 1 && isHeader(row) {
			continue
		}

		o, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", s.path, line, err)
		}
		obs = append(obs, o)
	}

	return obs, nil
}

func isHeader(row []string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	return err != nil
}

func parseRow(row []string) (*domain.RawObservation, error) {
	stationID := strings.TrimSpace(row[0])
	if stationID == "" {
		return nil, fmt.Errorf("empty station_id")
	}

	ts, err := parseTimestamp(strings.TrimSpace(row[1]))
	if err != nil {
		return nil, err
	}

	level, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("parse level %q: %w", row[2], err)
	}

	unit := strings.TrimSpace(row[3])
	if unit == "" {
		unit = "m"
	}

	return &domain.RawObservation{
		WellID:    stationID,
		Timestamp: ts,
		Level:     level,
		Unit:      unit,
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", value)
}
