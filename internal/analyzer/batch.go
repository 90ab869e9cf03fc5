package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// Runner analyzes wells concurrently and persists the results.
type Runner struct {
	analyzer     *Analyzer
	observations storage.ObservationStore
	records      storage.WellRecordStore
	forecasts    storage.ForecastPointStore // optional
	workers      int
	refresh      bool
}

// RunnerOptions for creating a Runner.
type RunnerOptions struct {
	Analyzer           *Analyzer
	ObservationStore   storage.ObservationStore
	WellRecordStore    storage.WellRecordStore
	ForecastPointStore storage.ForecastPointStore // nil disables forecast persistence
	Workers            int

	// Refresh replaces existing records instead of skipping wells that
	// already have one.
	Refresh bool
}

// NewRunner creates a new batch Runner.
func NewRunner(opts RunnerOptions) *Runner {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		analyzer:     opts.Analyzer,
		observations: opts.ObservationStore,
		records:      opts.WellRecordStore,
		forecasts:    opts.ForecastPointStore,
		workers:      workers,
		refresh:      opts.Refresh,
	}
}

// RunStats summarizes one batch run.
type RunStats struct {
	WellsProcessed int
	WellsInvalid   int
	RecordsCreated int
	Errors         []string
}

// Run analyzes every well using a bounded worker pool. A well already
// holding a record is skipped unless the runner refreshes; per-well
// failures are collected, not fatal.
func (r *Runner) Run(ctx context.Context, wells []*domain.Well) (*RunStats, error) {
	stats := &RunStats{}

	jobs := make(chan *domain.Well)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for well := range jobs {
				record, err := r.processWell(ctx, well)

				mu.Lock()
				switch {
				case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
					// Cancellation is reported once by the caller
				case err != nil:
					stats.Errors = append(stats.Errors, fmt.Sprintf("well %s: %v", well.WellID, err))
				case record == nil:
					// Already analyzed, skipped
				default:
					stats.WellsProcessed++
					stats.RecordsCreated++
					if record.Invalid {
						stats.WellsInvalid++
					}
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, well := range wells {
		select {
		case jobs <- well:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// processWell analyzes one well and commits the record. Returns a nil
// record when the well already has one and the run is not a refresh.
func (r *Runner) processWell(ctx context.Context, well *domain.Well) (*domain.WellRecord, error) {
	obs, err := r.observations.GetByWellID(ctx, well.WellID)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}

	raw := make([]domain.RawObservation, len(obs))
	for i, o := range obs {
		raw[i] = *o
	}

	record, err := r.analyzer.Analyze(ctx, well, raw)
	if err != nil {
		return nil, err
	}

	if r.refresh {
		if err := r.records.Upsert(ctx, record); err != nil {
			return nil, fmt.Errorf("upsert record: %w", err)
		}
	} else if err := r.records.Insert(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}

	if r.forecasts != nil && record.Ensemble != nil && !record.Ensemble.Failed {
		if err := r.persistForecasts(ctx, record.Ensemble); err != nil {
			return nil, fmt.Errorf("persist forecasts: %w", err)
		}
	}

	return record, nil
}

// persistForecasts stores each surviving model's series plus the combined
// ensemble series under the ENSEMBLE pseudo-model.
func (r *Runner) persistForecasts(ctx context.Context, e *domain.EnsembleResult) error {
	var points []*domain.ForecastPoint

	for _, fc := range e.PerModel {
		for i, ts := range fc.Horizon {
			points = append(points, &domain.ForecastPoint{
				WellID:    fc.WellID,
				ModelName: fc.ModelName,
				Timestamp: ts,
				Predicted: fc.Predicted[i],
				Lower:     fc.Lower[i],
				Upper:     fc.Upper[i],
			})
		}
	}
	for i, ts := range e.Horizon {
		points = append(points, &domain.ForecastPoint{
			WellID:    e.WellID,
			ModelName: domain.ModelEnsemble,
			Timestamp: ts,
			Predicted: e.Combined[i],
			Lower:     e.Lower[i],
			Upper:     e.Upper[i],
		})
	}

	return r.forecasts.InsertBulk(ctx, points)
}
