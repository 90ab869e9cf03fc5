package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// WellStore implements storage.WellStore using PostgreSQL.
type WellStore struct {
	pool *Pool
}

// NewWellStore creates a new WellStore.
func NewWellStore(pool *Pool) *WellStore {
	return &WellStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WellStore = (*WellStore)(nil)

const wellColumns = "well_id, name, region, comuna, shac, cuenca, latitude, longitude"

// Insert adds a new well. Returns ErrDuplicateKey if well_id exists.
func (s *WellStore) Insert(ctx context.Context, w *domain.Well) error {
	query := `
		INSERT INTO wells (
			well_id, name, region, comuna, shac, cuenca, latitude, longitude
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		w.WellID,
		w.Name,
		w.Region,
		w.Comuna,
		w.SHAC,
		w.Cuenca,
		w.Latitude,
		w.Longitude,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert well: %w", err)
	}
	return nil
}

// GetByID retrieves a well by its ID. Returns ErrNotFound if not exists.
func (s *WellStore) GetByID(ctx context.Context, wellID string) (*domain.Well, error) {
	query := `SELECT ` + wellColumns + ` FROM wells WHERE well_id = $1`

	row := s.pool.QueryRow(ctx, query, wellID)
	w, err := scanWell(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get well by id: %w", err)
	}
	return w, nil
}

// GetByRegion retrieves all wells in a region, ordered by well_id ASC.
func (s *WellStore) GetByRegion(ctx context.Context, region string) ([]*domain.Well, error) {
	query := `SELECT ` + wellColumns + ` FROM wells WHERE region = $1 ORDER BY well_id ASC`

	rows, err := s.pool.Query(ctx, query, region)
	if err != nil {
		return nil, fmt.Errorf("get wells by region: %w", err)
	}
	defer rows.Close()

	return scanWells(rows)
}

// GetAll retrieves every registered well, ordered by well_id ASC.
func (s *WellStore) GetAll(ctx context.Context) ([]*domain.Well, error) {
	query := `SELECT ` + wellColumns + ` FROM wells ORDER BY well_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all wells: %w", err)
	}
	defer rows.Close()

	return scanWells(rows)
}

// scanWell scans a single row into a Well.
func scanWell(row pgx.Row) (*domain.Well, error) {
	var w domain.Well
	err := row.Scan(
		&w.WellID,
		&w.Name,
		&w.Region,
		&w.Comuna,
		&w.SHAC,
		&w.Cuenca,
		&w.Latitude,
		&w.Longitude,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// scanWells scans multiple rows into a slice of Well.
func scanWells(rows pgx.Rows) ([]*domain.Well, error) {
	var wells []*domain.Well

	for rows.Next() {
		w, err := scanWell(rows)
		if err != nil {
			return nil, fmt.Errorf("scan well row: %w", err)
		}
		wells = append(wells, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate well rows: %w", err)
	}

	return wells, nil
}
