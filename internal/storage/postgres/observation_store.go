package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using PostgreSQL.
type ObservationStore struct {
	pool *Pool
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(pool *Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

const insertObservationQuery = `
	INSERT INTO observations (well_id, observed_at, level_m, unit)
	VALUES ($1, $2, $3, $4)
`

// Insert adds a new observation. Returns ErrDuplicateKey if (well_id, timestamp) exists.
func (s *ObservationStore) Insert(ctx context.Context, o *domain.RawObservation) error {
	_, err := s.pool.Exec(ctx, insertObservationQuery,
		o.WellID,
		o.Timestamp,
		o.Level,
		o.Unit,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// InsertBulk adds multiple observations atomically. Fails the entire batch
// on any duplicate.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.RawObservation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin observation batch: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(insertObservationQuery, o.WellID, o.Timestamp, o.Level, o.Unit)
	}

	results := tx.SendBatch(ctx, batch)
	for range obs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert observation batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close observation batch: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByWellID retrieves all observations for a well, ordered by timestamp ASC.
func (s *ObservationStore) GetByWellID(ctx context.Context, wellID string) ([]*domain.RawObservation, error) {
	query := `
		SELECT well_id, observed_at, level_m, unit
		FROM observations
		WHERE well_id = $1
		ORDER BY observed_at ASC
	`

	rows, err := s.pool.Query(ctx, query, wellID)
	if err != nil {
		return nil, fmt.Errorf("get observations by well: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByTimeRange retrieves observations for a well within [start, end] (inclusive).
func (s *ObservationStore) GetByTimeRange(ctx context.Context, wellID string, start, end time.Time) ([]*domain.RawObservation, error) {
	query := `
		SELECT well_id, observed_at, level_m, unit
		FROM observations
		WHERE well_id = $1 AND observed_at >= $2 AND observed_at <= $3
		ORDER BY observed_at ASC
	`

	rows, err := s.pool.Query(ctx, query, wellID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get observations by time range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// scanObservations scans multiple rows into a slice of RawObservation.
func scanObservations(rows pgx.Rows) ([]*domain.RawObservation, error) {
	var obs []*domain.RawObservation

	for rows.Next() {
		var o domain.RawObservation
		err := rows.Scan(&o.WellID, &o.Timestamp, &o.Level, &o.Unit)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return obs, nil
}
