package storage

import (
	"context"
	"time"

	"groundwater-lab/internal/domain"
)

// WellStore provides access to the well registry.
type WellStore interface {
	// Insert adds a new well. Returns ErrDuplicateKey if well_id exists.
	Insert(ctx context.Context, w *domain.Well) error

	// GetByID retrieves a well by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, wellID string) (*domain.Well, error)

	// GetByRegion retrieves all wells in a region, ordered by well_id ASC.
	GetByRegion(ctx context.Context, region string) ([]*domain.Well, error)

	// GetAll retrieves every registered well, ordered by well_id ASC.
	GetAll(ctx context.Context) ([]*domain.Well, error)
}

// ObservationStore provides access to raw level observations.
type ObservationStore interface {
	// Insert adds a new observation. Returns ErrDuplicateKey if
	// (well_id, timestamp) exists.
	Insert(ctx context.Context, o *domain.RawObservation) error

	// InsertBulk adds multiple observations atomically. Fails the entire
	// batch on any duplicate.
	InsertBulk(ctx context.Context, obs []*domain.RawObservation) error

	// GetByWellID retrieves all observations for a well, ordered by timestamp ASC.
	GetByWellID(ctx context.Context, wellID string) ([]*domain.RawObservation, error)

	// GetByTimeRange retrieves observations for a well within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, wellID string, start, end time.Time) ([]*domain.RawObservation, error)
}

// WellRecordStore provides access to per-well analysis results.
type WellRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if well_id exists.
	Insert(ctx context.Context, r *domain.WellRecord) error

	// Upsert adds the record or replaces the existing one for the well.
	// Used by refresh runs that recompute records in place.
	Upsert(ctx context.Context, r *domain.WellRecord) error

	// GetByWellID retrieves the record for a well. Returns ErrNotFound if not exists.
	GetByWellID(ctx context.Context, wellID string) (*domain.WellRecord, error)

	// GetValid retrieves all records that passed validation, ordered by well_id ASC.
	GetValid(ctx context.Context) ([]*domain.WellRecord, error)

	// GetAll retrieves every record, ordered by well_id ASC.
	GetAll(ctx context.Context) ([]*domain.WellRecord, error)
}

// ForecastPointStore provides access to per-model forecast timeseries.
type ForecastPointStore interface {
	// InsertBulk adds the forecast points produced by one (well, model) fit.
	InsertBulk(ctx context.Context, points []*domain.ForecastPoint) error

	// GetByWellID retrieves all forecast points for a well, ordered by
	// model_name, timestamp ASC.
	GetByWellID(ctx context.Context, wellID string) ([]*domain.ForecastPoint, error)
}

// RegionSummaryStore provides access to grouped trend summaries.
type RegionSummaryStore interface {
	// Insert adds a new summary. Returns ErrDuplicateKey if
	// (group_level, group_key) exists.
	Insert(ctx context.Context, s *domain.RegionSummary) error

	// Upsert adds the summary or replaces the existing one for the
	// (group_level, group_key) pair.
	Upsert(ctx context.Context, s *domain.RegionSummary) error

	// GetByLevel retrieves all summaries at a grouping level, ordered by
	// group_key ASC.
	GetByLevel(ctx context.Context, level domain.GroupLevel) ([]*domain.RegionSummary, error)

	// GetAll retrieves every summary, ordered by group_level, group_key ASC.
	GetAll(ctx context.Context) ([]*domain.RegionSummary, error)
}
