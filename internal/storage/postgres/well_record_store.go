package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// WellRecordStore implements storage.WellRecordStore using PostgreSQL.
//
// Records are persisted as scalar columns: the series summary, the trend
// test output and the ensemble outcome flag. Dense forecast timeseries
// live in the ClickHouse forecast_points table; use
// storage.RehydrateEnsembles to reattach them to loaded records. Reads
// join the wells registry so the grouping attributes come back with the
// record.
type WellRecordStore struct {
	pool *Pool
}

// NewWellRecordStore creates a new WellRecordStore.
func NewWellRecordStore(pool *Pool) *WellRecordStore {
	return &WellRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WellRecordStore = (*WellRecordStore)(nil)

const wellRecordInsertColumns = `
	well_id, invalid, invalid_reason,
	observation_count, first_observed_at, last_observed_at,
	current_level, mean_level, min_level, max_level, flagged_gaps,
	s_statistic, variance, z_score, p_value, direction,
	sen_slope_m_yr, confidence, linear_slope_m_yr, linear_r2,
	ensemble_failed, analyzed_at
`

const wellRecordSelect = `
	SELECT
		r.well_id, w.name, w.region, w.comuna, w.shac, w.cuenca,
		w.latitude, w.longitude,
		r.invalid, r.invalid_reason,
		r.observation_count, r.first_observed_at, r.last_observed_at,
		r.current_level, r.mean_level, r.min_level, r.max_level, r.flagged_gaps,
		r.s_statistic, r.variance, r.z_score, r.p_value, r.direction,
		r.sen_slope_m_yr, r.confidence, r.linear_slope_m_yr, r.linear_r2,
		r.ensemble_failed, r.analyzed_at
	FROM well_records r
	JOIN wells w ON w.well_id = r.well_id
`

// Insert adds a new record. Returns ErrDuplicateKey if well_id exists.
func (s *WellRecordStore) Insert(ctx context.Context, r *domain.WellRecord) error {
	query := `
		INSERT INTO well_records (` + wellRecordInsertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		        $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := s.pool.Exec(ctx, query, recordArgs(r)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert well record: %w", err)
	}
	return nil
}

// Upsert adds the record or replaces the existing one for the well.
func (s *WellRecordStore) Upsert(ctx context.Context, r *domain.WellRecord) error {
	query := `
		INSERT INTO well_records (` + wellRecordInsertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		        $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (well_id) DO UPDATE SET
			invalid = EXCLUDED.invalid,
			invalid_reason = EXCLUDED.invalid_reason,
			observation_count = EXCLUDED.observation_count,
			first_observed_at = EXCLUDED.first_observed_at,
			last_observed_at = EXCLUDED.last_observed_at,
			current_level = EXCLUDED.current_level,
			mean_level = EXCLUDED.mean_level,
			min_level = EXCLUDED.min_level,
			max_level = EXCLUDED.max_level,
			flagged_gaps = EXCLUDED.flagged_gaps,
			s_statistic = EXCLUDED.s_statistic,
			variance = EXCLUDED.variance,
			z_score = EXCLUDED.z_score,
			p_value = EXCLUDED.p_value,
			direction = EXCLUDED.direction,
			sen_slope_m_yr = EXCLUDED.sen_slope_m_yr,
			confidence = EXCLUDED.confidence,
			linear_slope_m_yr = EXCLUDED.linear_slope_m_yr,
			linear_r2 = EXCLUDED.linear_r2,
			ensemble_failed = EXCLUDED.ensemble_failed,
			analyzed_at = EXCLUDED.analyzed_at
	`

	if _, err := s.pool.Exec(ctx, query, recordArgs(r)...); err != nil {
		return fmt.Errorf("upsert well record: %w", err)
	}
	return nil
}

// recordArgs builds the parameter list shared by Insert and Upsert.
// Summary and trend columns are NULL for invalid or trendless records.
func recordArgs(r *domain.WellRecord) []any {
	var (
		sStat                           *int64
		variance, zScore, pValue        *float64
		direction                       *string
		senSlope, confidence            *float64
		linearSlope, linearR2           *float64
		firstObservedAt, lastObservedAt *time.Time
		currentLevel, meanLevel         *float64
		minLevel, maxLevel              *float64
	)

	if !r.Invalid {
		firstObservedAt = &r.Summary.FirstTimestamp
		lastObservedAt = &r.Summary.LastTimestamp
		currentLevel = &r.Summary.CurrentLevel
		meanLevel = &r.Summary.MeanLevel
		minLevel = &r.Summary.MinLevel
		maxLevel = &r.Summary.MaxLevel
	}
	if t := r.Trend; t != nil {
		sStat = &t.SStatistic
		variance = &t.Variance
		zScore = &t.ZScore
		pValue = &t.PValue
		dir := string(t.Direction)
		direction = &dir
		senSlope = &t.SenSlope
		confidence = &t.Confidence
		linearSlope = &t.LinearSlope
		linearR2 = &t.LinearR2
	}
	ensembleFailed := r.Ensemble != nil && r.Ensemble.Failed

	return []any{
		r.Well.WellID,
		r.Invalid,
		r.InvalidReason,
		r.Summary.ObservationCount,
		firstObservedAt,
		lastObservedAt,
		currentLevel,
		meanLevel,
		minLevel,
		maxLevel,
		r.Summary.FlaggedGaps,
		sStat,
		variance,
		zScore,
		pValue,
		direction,
		senSlope,
		confidence,
		linearSlope,
		linearR2,
		ensembleFailed,
		r.AnalyzedAt,
	}
}

// GetByWellID retrieves the record for a well. Returns ErrNotFound if not exists.
func (s *WellRecordStore) GetByWellID(ctx context.Context, wellID string) (*domain.WellRecord, error) {
	query := wellRecordSelect + ` WHERE r.well_id = $1`

	row := s.pool.QueryRow(ctx, query, wellID)
	r, err := scanWellRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get well record by id: %w", err)
	}
	return r, nil
}

// GetValid retrieves all records that passed validation, ordered by well_id ASC.
func (s *WellRecordStore) GetValid(ctx context.Context) ([]*domain.WellRecord, error) {
	query := wellRecordSelect + ` WHERE r.invalid = FALSE ORDER BY r.well_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get valid well records: %w", err)
	}
	defer rows.Close()

	return scanWellRecords(rows)
}

// GetAll retrieves every record, ordered by well_id ASC.
func (s *WellRecordStore) GetAll(ctx context.Context) ([]*domain.WellRecord, error) {
	query := wellRecordSelect + ` ORDER BY r.well_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all well records: %w", err)
	}
	defer rows.Close()

	return scanWellRecords(rows)
}

// scanWellRecord scans a single joined row into a WellRecord.
func scanWellRecord(row pgx.Row) (*domain.WellRecord, error) {
	var r domain.WellRecord
	var (
		sStat                           *int64
		variance, zScore, pValue        *float64
		direction                       *string
		senSlope, confidence            *float64
		linearSlope, linearR2           *float64
		firstObservedAt, lastObservedAt *time.Time
		currentLevel, meanLevel         *float64
		minLevel, maxLevel              *float64
		ensembleFailed                  bool
	)

	err := row.Scan(
		&r.Well.WellID,
		&r.Well.Name,
		&r.Well.Region,
		&r.Well.Comuna,
		&r.Well.SHAC,
		&r.Well.Cuenca,
		&r.Well.Latitude,
		&r.Well.Longitude,
		&r.Invalid,
		&r.InvalidReason,
		&r.Summary.ObservationCount,
		&firstObservedAt,
		&lastObservedAt,
		&currentLevel,
		&meanLevel,
		&minLevel,
		&maxLevel,
		&r.Summary.FlaggedGaps,
		&sStat,
		&variance,
		&zScore,
		&pValue,
		&direction,
		&senSlope,
		&confidence,
		&linearSlope,
		&linearR2,
		&ensembleFailed,
		&r.AnalyzedAt,
	)
	if err != nil {
		return nil, err
	}

	if firstObservedAt != nil {
		r.Summary.FirstTimestamp = *firstObservedAt
	}
	if lastObservedAt != nil {
		r.Summary.LastTimestamp = *lastObservedAt
	}
	if currentLevel != nil {
		r.Summary.CurrentLevel = *currentLevel
	}
	if meanLevel != nil {
		r.Summary.MeanLevel = *meanLevel
	}
	if minLevel != nil {
		r.Summary.MinLevel = *minLevel
	}
	if maxLevel != nil {
		r.Summary.MaxLevel = *maxLevel
	}

	if direction != nil {
		r.Trend = &domain.TrendResult{
			WellID:      r.Well.WellID,
			SStatistic:  *sStat,
			Variance:    *variance,
			ZScore:      *zScore,
			PValue:      *pValue,
			Direction:   domain.TrendDirection(*direction),
			SenSlope:    *senSlope,
			Confidence:  *confidence,
			LinearSlope: *linearSlope,
			LinearR2:    *linearR2,
		}
	}

	if !r.Invalid {
		r.Ensemble = &domain.EnsembleResult{
			WellID: r.Well.WellID,
			Failed: ensembleFailed,
		}
	}

	return &r, nil
}

// scanWellRecords scans multiple rows into a slice of WellRecord.
func scanWellRecords(rows pgx.Rows) ([]*domain.WellRecord, error) {
	var records []*domain.WellRecord

	for rows.Next() {
		r, err := scanWellRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan well record row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate well record rows: %w", err)
	}

	return records, nil
}
