// Package aggregation rolls per-well analysis records up into grouped
// trend summaries at the region, cuenca, SHAC and comuna levels.
package aggregation

import (
	"sort"
	"time"

	"groundwater-lab/internal/domain"
)

// Critical thresholds: the fraction of declining wells above which a
// group is flagged. Regions are large enough to warrant a stricter cut.
const (
	criticalFractionRegion = 0.90
	criticalFractionOther  = 0.75
)

// Aggregator computes grouped summaries from well records.
type Aggregator struct {
	horizonEnd time.Time
	clock      func() time.Time
}

// New creates an Aggregator that projects levels at horizonEnd.
func New(horizonEnd time.Time) *Aggregator {
	return &Aggregator{horizonEnd: horizonEnd, clock: time.Now}
}

// WithClock overrides the timestamp source. Used in tests.
func (a *Aggregator) WithClock(clock func() time.Time) *Aggregator {
	a.clock = clock
	return a
}

// AggregateAll computes summaries at every grouping level.
func (a *Aggregator) AggregateAll(records []*domain.WellRecord) []*domain.RegionSummary {
	var all []*domain.RegionSummary
	for _, level := range domain.GroupLevels {
		all = append(all, a.Aggregate(records, level)...)
	}
	return all
}

// Aggregate computes one summary per group key at the given level.
// Invalid records count toward a group's excluded wells but contribute no
// statistics; groups with no valid wells are omitted entirely.
func (a *Aggregator) Aggregate(records []*domain.WellRecord, level domain.GroupLevel) []*domain.RegionSummary {
	type groupAccum struct {
		wellCount      int
		declining      int
		slopeSum       float64 // Sen slope over declining wells
		projectedSum   float64
		projectedCount int
		excluded       int
	}

	groups := make(map[string]*groupAccum)
	generatedAt := a.clock().UTC()

	for _, r := range records {
		key := groupKey(&r.Well, level)
		if key == "" {
			continue
		}
		g := groups[key]
		if g == nil {
			g = &groupAccum{}
			groups[key] = g
		}

		if r.Invalid {
			g.excluded++
			continue
		}

		g.wellCount++
		if r.Trend != nil && r.Trend.Direction == domain.TrendIncreasing {
			g.declining++
			g.slopeSum += r.Trend.SenSlope
		}
		if projected, ok := r.Ensemble.PredictionAt(a.horizonEnd); ok {
			g.projectedSum += projected
			g.projectedCount++
		} else {
			g.excluded++
		}
	}

	var summaries []*domain.RegionSummary
	for key, g := range groups {
		if g.wellCount == 0 {
			continue
		}

		s := &domain.RegionSummary{
			GroupLevel:         level,
			GroupKey:           key,
			WellCount:          g.wellCount,
			DecliningCount:     g.declining,
			FractionDeclining:  float64(g.declining) / float64(g.wellCount),
			ProjectedWellCount: g.projectedCount,
			ExcludedWells:      g.excluded,
			GeneratedAt:        generatedAt,
		}
		if g.declining > 0 {
			s.MeanDeclineRate = g.slopeSum / float64(g.declining)
		}
		if g.projectedCount > 0 {
			s.ProjectedLevel2030 = g.projectedSum / float64(g.projectedCount)
		}
		s.Critical = s.FractionDeclining >= criticalFraction(level)
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].GroupKey < summaries[j].GroupKey
	})

	return summaries
}

func criticalFraction(level domain.GroupLevel) float64 {
	if level == domain.LevelRegion {
		return criticalFractionRegion
	}
	return criticalFractionOther
}

func groupKey(w *domain.Well, level domain.GroupLevel) string {
	switch level {
	case domain.LevelRegion:
		return w.Region
	case domain.LevelCuenca:
		return w.Cuenca
	case domain.LevelSHAC:
		return w.SHAC
	case domain.LevelComuna:
		return w.Comuna
	default:
		return ""
	}
}
