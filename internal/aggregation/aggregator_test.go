package aggregation

import (
	"math"
	"testing"
	"time"

	"groundwater-lab/internal/domain"
)

var horizon2030 = time.Date(2030, time.December, 31, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
}

func newTestAggregator() *Aggregator {
	return New(horizon2030).WithClock(fixedClock)
}

// validRecord builds a valid record with the given trend direction, Sen
// slope and a flat ensemble forecast at the given projected level.
func validRecord(wellID, region, cuenca string, direction domain.TrendDirection, slope, projected float64) *domain.WellRecord {
	horizon := []time.Time{
		time.Date(2030, time.November, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, time.December, 1, 0, 0, 0, 0, time.UTC),
	}
	return &domain.WellRecord{
		Well: domain.Well{WellID: wellID, Region: region, Cuenca: cuenca},
		Trend: &domain.TrendResult{
			WellID:    wellID,
			Direction: direction,
			SenSlope:  slope,
		},
		Ensemble: &domain.EnsembleResult{
			WellID:   wellID,
			Horizon:  horizon,
			Combined: []float64{projected, projected},
			Lower:    []float64{projected - 1, projected - 1},
			Upper:    []float64{projected + 1, projected + 1},
		},
	}
}

func failedEnsembleRecord(wellID, region string, direction domain.TrendDirection, slope float64) *domain.WellRecord {
	return &domain.WellRecord{
		Well: domain.Well{WellID: wellID, Region: region},
		Trend: &domain.TrendResult{
			WellID:    wellID,
			Direction: direction,
			SenSlope:  slope,
		},
		Ensemble: &domain.EnsembleResult{WellID: wellID, Failed: true},
	}
}

func invalidRecord(wellID, region string) *domain.WellRecord {
	return &domain.WellRecord{
		Well:          domain.Well{WellID: wellID, Region: region},
		Invalid:       true,
		InvalidReason: "insufficient observations",
	}
}

func TestAggregateRegionLevel(t *testing.T) {
	records := []*domain.WellRecord{
		validRecord("W-1", "Coquimbo", "Elqui", domain.TrendIncreasing, 0.4, 20),
		validRecord("W-2", "Coquimbo", "Elqui", domain.TrendIncreasing, 0.2, 24),
		validRecord("W-3", "Coquimbo", "Limari", domain.TrendNone, 0.01, 10),
		validRecord("W-4", "Valparaiso", "Aconcagua", domain.TrendDecreasing, -0.1, 8),
		invalidRecord("W-5", "Coquimbo"),
	}

	summaries := newTestAggregator().Aggregate(records, domain.LevelRegion)
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	coquimbo := summaries[0]
	if coquimbo.GroupKey != "Coquimbo" {
		t.Fatalf("summaries not ordered by key: %s first", coquimbo.GroupKey)
	}
	if coquimbo.WellCount != 3 {
		t.Errorf("WellCount = %d, want 3 (invalid well excluded)", coquimbo.WellCount)
	}
	if coquimbo.DecliningCount != 2 {
		t.Errorf("DecliningCount = %d, want 2", coquimbo.DecliningCount)
	}
	if math.Abs(coquimbo.FractionDeclining-2.0/3.0) > 1e-9 {
		t.Errorf("FractionDeclining = %.4f, want 2/3", coquimbo.FractionDeclining)
	}
	// Mean Sen slope over declining wells only
	if math.Abs(coquimbo.MeanDeclineRate-0.3) > 1e-9 {
		t.Errorf("MeanDeclineRate = %.4f, want 0.3", coquimbo.MeanDeclineRate)
	}
	if math.Abs(coquimbo.ProjectedLevel2030-18) > 1e-9 {
		t.Errorf("ProjectedLevel2030 = %.4f, want 18", coquimbo.ProjectedLevel2030)
	}
	if coquimbo.ExcludedWells != 1 {
		t.Errorf("ExcludedWells = %d, want 1", coquimbo.ExcludedWells)
	}
	if coquimbo.Critical {
		t.Error("2/3 declining must not be critical at region level")
	}
	if !coquimbo.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("GeneratedAt = %s, want clock time", coquimbo.GeneratedAt)
	}
}

func TestAggregateCriticalThresholds(t *testing.T) {
	// 9 of 10 declining: 0.90 meets the region threshold
	var records []*domain.WellRecord
	for i := 0; i < 9; i++ {
		records = append(records, validRecord(wellID(i), "Coquimbo", "Elqui", domain.TrendIncreasing, 0.3, 15))
	}
	records = append(records, validRecord("W-flat", "Coquimbo", "Elqui", domain.TrendNone, 0, 15))

	agg := newTestAggregator()
	region := agg.Aggregate(records, domain.LevelRegion)
	if len(region) != 1 || !region[0].Critical {
		t.Error("0.90 declining must be critical at region level")
	}

	// 8 of 10 is below the region cut but above the cuenca cut
	records[8] = validRecord("W-8x", "Coquimbo", "Elqui", domain.TrendNone, 0, 15)
	region = agg.Aggregate(records, domain.LevelRegion)
	if region[0].Critical {
		t.Error("0.80 declining must not be critical at region level")
	}
	cuenca := agg.Aggregate(records, domain.LevelCuenca)
	if len(cuenca) != 1 || !cuenca[0].Critical {
		t.Error("0.80 declining must be critical at cuenca level")
	}
}

func TestAggregateFailedEnsembleExcludedFromProjection(t *testing.T) {
	records := []*domain.WellRecord{
		validRecord("W-1", "Coquimbo", "Elqui", domain.TrendIncreasing, 0.4, 20),
		failedEnsembleRecord("W-2", "Coquimbo", domain.TrendIncreasing, 0.6),
	}

	summaries := newTestAggregator().Aggregate(records, domain.LevelRegion)
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}

	s := summaries[0]
	// Failed ensemble still counts toward trend statistics
	if s.WellCount != 2 || s.DecliningCount != 2 {
		t.Errorf("counts = %d/%d, want 2/2", s.DecliningCount, s.WellCount)
	}
	if math.Abs(s.MeanDeclineRate-0.5) > 1e-9 {
		t.Errorf("MeanDeclineRate = %.4f, want 0.5", s.MeanDeclineRate)
	}
	// But not toward the projection
	if s.ProjectedWellCount != 1 {
		t.Errorf("ProjectedWellCount = %d, want 1", s.ProjectedWellCount)
	}
	if math.Abs(s.ProjectedLevel2030-20) > 1e-9 {
		t.Errorf("ProjectedLevel2030 = %.4f, want 20", s.ProjectedLevel2030)
	}
	if s.ExcludedWells != 1 {
		t.Errorf("ExcludedWells = %d, want 1", s.ExcludedWells)
	}
}

func TestAggregateOmitsGroupsWithoutValidWells(t *testing.T) {
	records := []*domain.WellRecord{
		invalidRecord("W-1", "Atacama"),
		invalidRecord("W-2", "Atacama"),
	}

	summaries := newTestAggregator().Aggregate(records, domain.LevelRegion)
	if len(summaries) != 0 {
		t.Fatalf("got %d summaries for all-invalid group, want 0", len(summaries))
	}
}

func TestAggregateSkipsEmptyGroupKeys(t *testing.T) {
	records := []*domain.WellRecord{
		validRecord("W-1", "Coquimbo", "", domain.TrendIncreasing, 0.4, 20),
	}

	summaries := newTestAggregator().Aggregate(records, domain.LevelCuenca)
	if len(summaries) != 0 {
		t.Fatalf("got %d cuenca summaries for well without cuenca, want 0", len(summaries))
	}
}

func TestAggregateAllCoversEveryLevel(t *testing.T) {
	records := []*domain.WellRecord{
		{
			Well: domain.Well{WellID: "W-1", Region: "Coquimbo", Cuenca: "Elqui", SHAC: "Elqui Bajo", Comuna: "La Serena"},
			Trend: &domain.TrendResult{WellID: "W-1", Direction: domain.TrendIncreasing, SenSlope: 0.3},
			Ensemble: &domain.EnsembleResult{
				WellID:   "W-1",
				Horizon:  []time.Time{horizon2030},
				Combined: []float64{18},
				Lower:    []float64{17},
				Upper:    []float64{19},
			},
		},
	}

	all := newTestAggregator().AggregateAll(records)
	if len(all) != 4 {
		t.Fatalf("got %d summaries, want one per level", len(all))
	}
	seen := map[domain.GroupLevel]bool{}
	for _, s := range all {
		seen[s.GroupLevel] = true
	}
	for _, level := range domain.GroupLevels {
		if !seen[level] {
			t.Errorf("level %s missing from AggregateAll output", level)
		}
	}
}

func wellID(i int) string {
	return string(rune('A'+i)) + "-well"
}
