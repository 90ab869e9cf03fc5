// Package analyzer runs the full per-well analysis: series validation,
// trend testing and ensemble forecasting, producing one WellRecord.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/ensemble"
	"groundwater-lab/internal/model"
	"groundwater-lab/internal/trend"
	"groundwater-lab/internal/validation"
)

// Analyzer produces WellRecords from raw observation series.
type Analyzer struct {
	cfg    domain.AnalysisConfig
	models []model.Model
	clock  func() time.Time
}

// New creates an Analyzer for the given configuration. Returns an error
// when the configured model names are unknown.
func New(cfg domain.AnalysisConfig) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	models, err := model.ByNames(cfg.Models)
	if err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg, models: models, clock: time.Now}, nil
}

// WithClock overrides the timestamp source. Used in tests.
func (a *Analyzer) WithClock(clock func() time.Time) *Analyzer {
	a.clock = clock
	return a
}

// Analyze runs the complete analysis for one well. A well whose series
// fails validation yields an invalid record, not an error; errors are
// reserved for cancellation and internal failures.
func (a *Analyzer) Analyze(ctx context.Context, well *domain.Well, raw []domain.RawObservation) (*domain.WellRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record := &domain.WellRecord{
		Well:       *well,
		AnalyzedAt: a.clock().UTC(),
	}

	series, err := validation.Clean(raw, a.cfg)
	if err != nil {
		record.Invalid = true
		record.InvalidReason = err.Error()
		record.Summary = domain.SeriesSummary{ObservationCount: len(raw)}
		return record, nil
	}
	record.Summary = series.Summarize()

	trendResult, err := trend.Test(series, a.cfg.Alpha)
	if err != nil {
		// Validation guarantees enough points for the trend test, so a
		// failure here is a real fault, not a data quality issue.
		return nil, fmt.Errorf("trend test well %s: %w", well.WellID, err)
	}
	record.Trend = trendResult

	horizon := a.cfg.HorizonDates(record.Summary.LastTimestamp)
	if len(horizon) == 0 {
		record.Ensemble = &domain.EnsembleResult{WellID: well.WellID, Failed: true}
		return record, nil
	}

	ensembleResult, err := ensemble.Forecast(ctx, series, horizon, a.models, a.cfg.Weights, a.cfg.ModelTimeout)
	if err != nil {
		return nil, fmt.Errorf("forecast well %s: %w", well.WellID, err)
	}
	record.Ensemble = ensembleResult

	return record, nil
}
