package reporting

import (
	"time"

	"groundwater-lab/internal/domain"
)

// Report is the complete batch analysis report.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	WellCount    int
	ValidWells   int
	InvalidWells int

	// National rollup over all valid wells
	National NationalSummary

	// Group summaries per level (region, cuenca, SHAC, comuna),
	// each sorted by fraction declining DESC
	LevelSummaries []LevelSection

	// Per-well rows, sorted by well_id
	Wells []WellRow

	// Wells excluded from analysis and why
	Excluded []ExcludedWellRow
}

// NationalSummary aggregates trend statistics across every valid well.
type NationalSummary struct {
	DecliningWells     int
	FractionDeclining  float64
	MeanDeclineRate    float64 // m/year, over declining wells
	ProjectedWells     int
	MeanProjected2030  float64 // m below surface
	CriticalGroupCount int     // across all levels
}

// LevelSection groups the summaries of one grouping level.
type LevelSection struct {
	Level     domain.GroupLevel
	Summaries []*domain.RegionSummary
}

// WellRow is one line of the per-well results table.
type WellRow struct {
	WellID        string
	Region        string
	Cuenca        string
	Direction     domain.TrendDirection
	SenSlope      float64
	PValue        float64
	CurrentLevel  float64
	Projected2030 float64
	HasProjection bool
}

// ExcludedWellRow names a well left out of the analysis.
type ExcludedWellRow struct {
	WellID string
	Region string
	Reason string
}
