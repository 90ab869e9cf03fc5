package domain

import "time"

// GroupLevel identifies the spatial aggregation level.
type GroupLevel string

const (
	LevelRegion GroupLevel = "REGION"
	LevelCuenca GroupLevel = "CUENCA"
	LevelSHAC   GroupLevel = "SHAC"
	LevelComuna GroupLevel = "COMUNA"
)

// GroupLevels lists all aggregation levels in reporting order.
var GroupLevels = []GroupLevel{LevelRegion, LevelCuenca, LevelSHAC, LevelComuna}

// RegionSummary is a per-group reduction over valid well records.
// Regenerated whenever the underlying well set or horizon changes,
// never mutated in place. Groups with zero valid wells are not emitted.
// Corresponds to region_summaries table in ClickHouse.
type RegionSummary struct {
	GroupLevel GroupLevel
	GroupKey   string

	WellCount         int
	DecliningCount    int
	FractionDeclining float64
	MeanDeclineRate   float64 // mean Sen slope over declining wells only, m/year

	// ProjectedLevel2030 averages each well's combined prediction at the
	// horizon date nearest the configured end date, over wells whose
	// ensemble did not fail.
	ProjectedLevel2030 float64
	ProjectedWellCount int

	// ExcludedWells counts records left out of this group's statistics:
	// invalid wells plus wells with a failed ensemble.
	ExcludedWells int

	// Critical flags groups past the depletion alert threshold:
	// 90% declining for regions, 75% for finer levels.
	Critical bool

	GeneratedAt time.Time
}
