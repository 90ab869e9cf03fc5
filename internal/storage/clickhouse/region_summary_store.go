package clickhouse

import (
	"context"
	"fmt"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// RegionSummaryStore implements storage.RegionSummaryStore using ClickHouse.
//
// The table is a ReplacingMergeTree keyed on (group_level, group_key), so
// duplicate detection is done with an explicit existence check before insert.
type RegionSummaryStore struct {
	conn *Conn
}

// NewRegionSummaryStore creates a new RegionSummaryStore.
func NewRegionSummaryStore(conn *Conn) *RegionSummaryStore {
	return &RegionSummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RegionSummaryStore = (*RegionSummaryStore)(nil)

const regionSummaryColumns = `
	group_level, group_key, well_count, declining_count,
	fraction_declining, mean_decline_rate, projected_level_2030,
	projected_well_count, excluded_wells, critical, generated_at
`

// Insert adds a new summary. Returns ErrDuplicateKey if (group_level, group_key) exists.
func (s *RegionSummaryStore) Insert(ctx context.Context, sum *domain.RegionSummary) error {
	if sum == nil || sum.GroupLevel == "" || sum.GroupKey == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, sum.GroupLevel, sum.GroupKey)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	return s.write(ctx, sum)
}

// Upsert adds the summary or replaces the existing one for the
// (group_level, group_key) pair. ReplacingMergeTree keeps the row with
// the newest generated_at, so this is a plain insert.
func (s *RegionSummaryStore) Upsert(ctx context.Context, sum *domain.RegionSummary) error {
	if sum == nil || sum.GroupLevel == "" || sum.GroupKey == "" {
		return storage.ErrInvalidInput
	}
	return s.write(ctx, sum)
}

func (s *RegionSummaryStore) write(ctx context.Context, sum *domain.RegionSummary) error {
	query := `
		INSERT INTO region_summaries (` + regionSummaryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var critical uint8
	if sum.Critical {
		critical = 1
	}

	err := s.conn.Exec(ctx, query,
		string(sum.GroupLevel),
		sum.GroupKey,
		uint32(sum.WellCount),
		uint32(sum.DecliningCount),
		sum.FractionDeclining,
		sum.MeanDeclineRate,
		sum.ProjectedLevel2030,
		uint32(sum.ProjectedWellCount),
		uint32(sum.ExcludedWells),
		critical,
		sum.GeneratedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert region summary: %w", err)
	}
	return nil
}

// GetByLevel retrieves all summaries at a grouping level, ordered by group_key ASC.
func (s *RegionSummaryStore) GetByLevel(ctx context.Context, level domain.GroupLevel) ([]*domain.RegionSummary, error) {
	query := `
		SELECT ` + regionSummaryColumns + `
		FROM region_summaries FINAL
		WHERE group_level = ?
		ORDER BY group_key ASC
	`

	rows, err := s.conn.Query(ctx, query, string(level))
	if err != nil {
		return nil, fmt.Errorf("get summaries by level: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// GetAll retrieves every summary, ordered by group_level, group_key ASC.
func (s *RegionSummaryStore) GetAll(ctx context.Context) ([]*domain.RegionSummary, error) {
	query := `
		SELECT ` + regionSummaryColumns + `
		FROM region_summaries FINAL
		ORDER BY group_level ASC, group_key ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all summaries: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

func (s *RegionSummaryStore) exists(ctx context.Context, level domain.GroupLevel, key string) (bool, error) {
	query := `
		SELECT count() FROM region_summaries
		WHERE group_level = ? AND group_key = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, string(level), key).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSummaries(rows chRows) ([]*domain.RegionSummary, error) {
	var summaries []*domain.RegionSummary

	for rows.Next() {
		var (
			sum       domain.RegionSummary
			level     string
			wellCount, decliningCount, projectedWellCount, excluded uint32
			critical  uint8
			generated time.Time
		)
		err := rows.Scan(
			&level,
			&sum.GroupKey,
			&wellCount,
			&decliningCount,
			&sum.FractionDeclining,
			&sum.MeanDeclineRate,
			&sum.ProjectedLevel2030,
			&projectedWellCount,
			&excluded,
			&critical,
			&generated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}

		sum.GroupLevel = domain.GroupLevel(level)
		sum.WellCount = int(wellCount)
		sum.DecliningCount = int(decliningCount)
		sum.ProjectedWellCount = int(projectedWellCount)
		sum.ExcludedWells = int(excluded)
		sum.Critical = critical != 0
		sum.GeneratedAt = generated.UTC()
		summaries = append(summaries, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}

	return summaries, nil
}
