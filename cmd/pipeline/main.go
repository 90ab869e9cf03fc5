// Package main provides the batch pipeline entry point.
// Executes: well loading → per-well analysis → group aggregation → reporting
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/fixtures"
	"groundwater-lab/internal/orchestrator"
	"groundwater-lab/internal/reporting"
	"groundwater-lab/internal/storage"
	"groundwater-lab/internal/storage/clickhouse"
	"groundwater-lab/internal/storage/memory"
	"groundwater-lab/internal/storage/migrations"
	"groundwater-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	outputDir := flag.String("output-dir", "docs", "Output directory for generated reports")
	region := flag.String("region", "", "Restrict the run to one region (empty for all)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres DSN (empty uses in-memory stores)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN (empty uses in-memory stores)")
	useFixtures := flag.Bool("use-fixtures", false, "Seed stores with synthetic wells before running")
	workers := flag.Int("workers", 4, "Concurrent well analyses")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	cfg := domain.DefaultAnalysisConfig()
	cfg.Workers = *workers

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating stores: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if *useFixtures {
		if err := fixtures.Load(ctx, stores.wells, stores.observations, time.Now().UTC()); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading fixtures: %v\n", err)
			os.Exit(1)
		}
	}

	// Phase 1-3: analysis and aggregation
	fmt.Println("=== Groundwater Pipeline ===")
	orch := orchestrator.New(orchestrator.Options{
		WellStore:          stores.wells,
		ObservationStore:   stores.observations,
		WellRecordStore:    stores.records,
		ForecastPointStore: stores.forecasts,
		RegionSummaryStore: stores.summaries,
		Config:             cfg,
		Region:             *region,
		Verbose:            *verbose,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Orchestrator error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Orchestrator completed:\n")
	fmt.Printf("  Wells:     %d (%d invalid)\n", result.WellsProcessed, result.WellsInvalid)
	fmt.Printf("  Records:   %d\n", result.RecordsCreated)
	fmt.Printf("  Summaries: %d\n", result.SummariesCreated)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	// Phase 4: reporting
	fmt.Println("\n=== Reporting ===")
	if err := writeReports(ctx, stores, cfg.HorizonEnd, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "Reporting error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nPipeline completed successfully:")
	fmt.Printf("  - %s/REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/wells.csv\n", *outputDir)
	fmt.Printf("  - %s/summaries.csv\n", *outputDir)
}

// pipelineStores holds the store set for one run.
type pipelineStores struct {
	wells        storage.WellStore
	observations storage.ObservationStore
	records      storage.WellRecordStore
	forecasts    storage.ForecastPointStore
	summaries    storage.RegionSummaryStore
}

// createStores builds either the in-memory store set or the database-backed
// one, running migrations first. Both DSNs must be given for database mode.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string) (*pipelineStores, func(), error) {
	if postgresDSN == "" && clickhouseDSN == "" {
		return &pipelineStores{
			wells:        memory.NewWellStore(),
			observations: memory.NewObservationStore(),
			records:      memory.NewWellRecordStore(),
			forecasts:    memory.NewForecastPointStore(),
			summaries:    memory.NewRegionSummaryStore(),
		}, func() {}, nil
	}
	if postgresDSN == "" || clickhouseDSN == "" {
		return nil, nil, fmt.Errorf("database mode needs both -postgres-dsn and -clickhouse-dsn")
	}

	pool, err := postgres.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	conn, err := clickhouse.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		pool.Close()
		conn.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		conn.Close()
	}
	return &pipelineStores{
		wells:        postgres.NewWellStore(pool),
		observations: postgres.NewObservationStore(pool),
		records:      postgres.NewWellRecordStore(pool),
		forecasts:    clickhouse.NewForecastPointStore(conn),
		summaries:    clickhouse.NewRegionSummaryStore(conn),
	}, cleanup, nil
}

// writeReports renders the markdown report and CSV exports to outputDir.
func writeReports(ctx context.Context, stores *pipelineStores, horizonEnd time.Time, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	gen := reporting.NewGenerator(stores.records, stores.summaries, horizonEnd).
		WithForecasts(stores.forecasts)
	report, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	files := map[string]string{
		"REPORT.md":     reporting.RenderMarkdown(report),
		"wells.csv":     reporting.RenderWellsCSV(report.Wells),
		"summaries.csv": reporting.RenderSummariesCSV(report.LevelSummaries),
	}
	for name, content := range files {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
