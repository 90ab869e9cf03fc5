package clickhouse

import (
	"context"
	"fmt"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// ForecastPointStore implements storage.ForecastPointStore using ClickHouse.
type ForecastPointStore struct {
	conn *Conn
}

// NewForecastPointStore creates a new ForecastPointStore.
func NewForecastPointStore(conn *Conn) *ForecastPointStore {
	return &ForecastPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ForecastPointStore = (*ForecastPointStore)(nil)

// InsertBulk adds the forecast points produced by one (well, model) fit.
// Re-inserting a (well, model, timestamp) key replaces the earlier row
// on merge; intra-batch duplicates are still rejected here.
func (s *ForecastPointStore) InsertBulk(ctx context.Context, points []*domain.ForecastPoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		wellID    string
		modelName string
		ts        int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.WellID == "" || p.ModelName == "" || p.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{p.WellID, p.ModelName, p.Timestamp.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO forecast_points (
			well_id, model_name, forecast_at, predicted, lower, upper
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.WellID, p.ModelName, p.Timestamp.UTC(),
			p.Predicted, p.Lower, p.Upper,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByWellID retrieves all forecast points for a well, ordered by
// model_name, timestamp ASC.
func (s *ForecastPointStore) GetByWellID(ctx context.Context, wellID string) ([]*domain.ForecastPoint, error) {
	query := `
		SELECT well_id, model_name, forecast_at, predicted, lower, upper
		FROM forecast_points FINAL
		WHERE well_id = ?
		ORDER BY model_name ASC, forecast_at ASC
	`

	rows, err := s.conn.Query(ctx, query, wellID)
	if err != nil {
		return nil, fmt.Errorf("get forecast points by well: %w", err)
	}
	defer rows.Close()

	var points []*domain.ForecastPoint
	for rows.Next() {
		var p domain.ForecastPoint
		var ts time.Time
		if err := rows.Scan(&p.WellID, &p.ModelName, &ts, &p.Predicted, &p.Lower, &p.Upper); err != nil {
			return nil, fmt.Errorf("scan forecast point row: %w", err)
		}
		p.Timestamp = ts.UTC()
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast point rows: %w", err)
	}

	return points, nil
}
