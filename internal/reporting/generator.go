package reporting

import (
	"context"
	"sort"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	recordStore   storage.WellRecordStore
	summaryStore  storage.RegionSummaryStore
	forecastStore storage.ForecastPointStore // optional, rehydrates scalar records
	horizonEnd    time.Time
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator projecting at horizonEnd.
func NewGenerator(
	recordStore storage.WellRecordStore,
	summaryStore storage.RegionSummaryStore,
	horizonEnd time.Time,
) *Generator {
	return &Generator{
		recordStore:  recordStore,
		summaryStore: summaryStore,
		horizonEnd:   horizonEnd,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithForecasts sets the forecast point store used to reattach combined
// series to records loaded from a scalar store. Required for projected
// levels when reporting from the database.
func (g *Generator) WithForecasts(forecasts storage.ForecastPointStore) *Generator {
	g.forecastStore = forecasts
	return g
}

// Generate produces a complete report from the stored records and summaries.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	records, err := g.recordStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if g.forecastStore != nil {
		if err := storage.RehydrateEnsembles(ctx, records, g.forecastStore); err != nil {
			return nil, err
		}
	}

	report := &Report{
		GeneratedAt: g.now(),
		WellCount:   len(records),
	}

	for _, r := range records {
		if r.Invalid {
			report.InvalidWells++
			report.Excluded = append(report.Excluded, ExcludedWellRow{
				WellID: r.Well.WellID,
				Region: r.Well.Region,
				Reason: r.InvalidReason,
			})
			continue
		}
		report.ValidWells++
		report.Wells = append(report.Wells, g.wellRow(r))
	}
	sortWellRows(report.Wells)

	report.National = g.nationalSummary(records)

	sections, err := g.levelSections(ctx)
	if err != nil {
		return nil, err
	}
	report.LevelSummaries = sections
	for _, section := range sections {
		for _, s := range section.Summaries {
			if s.Critical {
				report.National.CriticalGroupCount++
			}
		}
	}

	return report, nil
}

func (g *Generator) wellRow(r *domain.WellRecord) WellRow {
	row := WellRow{
		WellID:       r.Well.WellID,
		Region:       r.Well.Region,
		Cuenca:       r.Well.Cuenca,
		CurrentLevel: r.Summary.CurrentLevel,
	}
	if r.Trend != nil {
		row.Direction = r.Trend.Direction
		row.SenSlope = r.Trend.SenSlope
		row.PValue = r.Trend.PValue
	}
	if projected, ok := r.Ensemble.PredictionAt(g.horizonEnd); ok {
		row.Projected2030 = projected
		row.HasProjection = true
	}
	return row
}

func (g *Generator) nationalSummary(records []*domain.WellRecord) NationalSummary {
	var n NationalSummary
	var validCount int
	var slopeSum, projectedSum float64

	for _, r := range records {
		if r.Invalid {
			continue
		}
		validCount++
		if r.Trend != nil && r.Trend.Direction == domain.TrendIncreasing {
			n.DecliningWells++
			slopeSum += r.Trend.SenSlope
		}
		if projected, ok := r.Ensemble.PredictionAt(g.horizonEnd); ok {
			n.ProjectedWells++
			projectedSum += projected
		}
	}

	if validCount > 0 {
		n.FractionDeclining = float64(n.DecliningWells) / float64(validCount)
	}
	if n.DecliningWells > 0 {
		n.MeanDeclineRate = slopeSum / float64(n.DecliningWells)
	}
	if n.ProjectedWells > 0 {
		n.MeanProjected2030 = projectedSum / float64(n.ProjectedWells)
	}
	return n
}

// levelSections loads stored summaries level by level, most-declining first.
func (g *Generator) levelSections(ctx context.Context) ([]LevelSection, error) {
	var sections []LevelSection
	for _, level := range domain.GroupLevels {
		summaries, err := g.summaryStore.GetByLevel(ctx, level)
		if err != nil {
			return nil, err
		}
		if len(summaries) == 0 {
			continue
		}
		sort.SliceStable(summaries, func(i, j int) bool {
			return summaries[i].FractionDeclining > summaries[j].FractionDeclining
		})
		sections = append(sections, LevelSection{Level: level, Summaries: summaries})
	}
	return sections, nil
}

func sortWellRows(rows []WellRow) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].WellID < rows[j].WellID
	})
}
