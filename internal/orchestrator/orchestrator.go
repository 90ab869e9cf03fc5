// Package orchestrator provides E2E pipeline orchestration.
// It coordinates: well loading → per-well analysis → group aggregation
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"groundwater-lab/internal/aggregation"
	"groundwater-lab/internal/analyzer"
	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// Orchestrator coordinates the E2E pipeline execution.
// Flow: load wells → analyze each well → aggregate summaries
type Orchestrator struct {
	// Stores
	wellStore          storage.WellStore
	observationStore   storage.ObservationStore
	wellRecordStore    storage.WellRecordStore
	forecastPointStore storage.ForecastPointStore
	regionSummaryStore storage.RegionSummaryStore

	// Config
	cfg domain.AnalysisConfig

	// Options
	region  string
	refresh bool
	verbose bool
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	WellStore        storage.WellStore
	ObservationStore storage.ObservationStore
	WellRecordStore  storage.WellRecordStore

	// Optional stores
	ForecastPointStore storage.ForecastPointStore // nil disables forecast persistence
	RegionSummaryStore storage.RegionSummaryStore // nil disables summary persistence

	// Analysis config
	Config domain.AnalysisConfig

	// Options
	Region string // restrict the run to one region, empty for all

	// Refresh recomputes records and summaries that already exist, for
	// scheduled runs over a growing observation set. Without it a rerun
	// skips every well that already has a record.
	Refresh bool
	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		wellStore:          opts.WellStore,
		observationStore:   opts.ObservationStore,
		wellRecordStore:    opts.WellRecordStore,
		forecastPointStore: opts.ForecastPointStore,
		regionSummaryStore: opts.RegionSummaryStore,
		cfg:                opts.Config,
		region:             opts.Region,
		refresh:            opts.Refresh,
		verbose:            opts.Verbose,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	WellsProcessed   int
	WellsInvalid     int
	RecordsCreated   int
	SummariesCreated int
	Errors           []string
}

// Run executes the full E2E pipeline.
// Phases:
//  1. Load wells
//  2. Analyze each well (validate, trend test, forecast) and persist records
//  3. Aggregate records into group summaries
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Load wells
	o.log("Phase 1: Loading wells...")
	wells, err := o.loadWells(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load wells) failed: %w", err)
	}
	o.log("  Found %d wells", len(wells))

	if len(wells) == 0 {
		return result, nil
	}

	// Phase 2: Per-well analysis
	o.log("Phase 2: Analyzing wells...")
	stats, err := o.runAnalysis(ctx, wells)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (analysis) failed: %w", err)
	}
	result.WellsProcessed = stats.WellsProcessed
	result.WellsInvalid = stats.WellsInvalid
	result.RecordsCreated = stats.RecordsCreated
	result.Errors = append(result.Errors, stats.Errors...)
	o.log("  Analyzed %d wells, %d invalid (%d errors)",
		stats.WellsProcessed, stats.WellsInvalid, len(stats.Errors))

	// Phase 3: Aggregation
	o.log("Phase 3: Computing group summaries...")
	summariesCreated, aggErrors := o.runAggregation(ctx)
	result.SummariesCreated = summariesCreated
	result.Errors = append(result.Errors, aggErrors...)
	o.log("  Created %d summaries (%d errors)", summariesCreated, len(aggErrors))

	o.log("Pipeline completed: %d wells, %d records, %d summaries",
		result.WellsProcessed, result.RecordsCreated, result.SummariesCreated)

	return result, nil
}

// loadWells loads the target wells from the registry.
func (o *Orchestrator) loadWells(ctx context.Context) ([]*domain.Well, error) {
	if o.region != "" {
		return o.wellStore.GetByRegion(ctx, o.region)
	}
	return o.wellStore.GetAll(ctx)
}

// runAnalysis analyzes every well through the batch runner.
func (o *Orchestrator) runAnalysis(ctx context.Context, wells []*domain.Well) (*analyzer.RunStats, error) {
	a, err := analyzer.New(o.cfg)
	if err != nil {
		return nil, err
	}

	runner := analyzer.NewRunner(analyzer.RunnerOptions{
		Analyzer:           a,
		ObservationStore:   o.observationStore,
		WellRecordStore:    o.wellRecordStore,
		ForecastPointStore: o.forecastPointStore,
		Workers:            o.cfg.Workers,
		Refresh:            o.refresh,
	})

	return runner.Run(ctx, wells)
}

// runAggregation loads all records and persists one summary per
// (level, group). Summaries that already exist are skipped, or replaced
// on a refresh run.
func (o *Orchestrator) runAggregation(ctx context.Context) (int, []string) {
	records, err := o.wellRecordStore.GetAll(ctx)
	if err != nil {
		return 0, []string{fmt.Sprintf("load records: %v", err)}
	}

	// Scalar record stores drop the forecast series; pull the combined
	// points back so the 2030 projections survive aggregation.
	if o.forecastPointStore != nil {
		if err := storage.RehydrateEnsembles(ctx, records, o.forecastPointStore); err != nil {
			return 0, []string{fmt.Sprintf("rehydrate forecasts: %v", err)}
		}
	}

	aggregator := aggregation.New(o.cfg.HorizonEnd)
	summaries := aggregator.AggregateAll(records)

	if o.regionSummaryStore == nil {
		return len(summaries), nil
	}

	var created int
	var errs []string
	for _, s := range summaries {
		err := o.regionSummaryStore.Insert(ctx, s)
		if errors.Is(err, storage.ErrDuplicateKey) {
			if !o.refresh {
				continue
			}
			err = o.regionSummaryStore.Upsert(ctx, s)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("summary %s/%s: %v", s.GroupLevel, s.GroupKey, err))
			continue
		}
		created++
	}

	return created, errs
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
