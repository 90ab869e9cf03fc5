// Package main provides a unified server that runs all components together:
// - Ingestion (continuous): telemetry WebSocket feed
// - Pipeline (scheduled): validation → trend test → forecast → aggregation
// - Reporting (scheduled): REPORT.md, CSVs
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/fixtures"
	"groundwater-lab/internal/ingestion"
	"groundwater-lab/internal/observability"
	"groundwater-lab/internal/orchestrator"
	"groundwater-lab/internal/reporting"
	"groundwater-lab/internal/storage"
	chstore "groundwater-lab/internal/storage/clickhouse"
	"groundwater-lab/internal/storage/memory"
	"groundwater-lab/internal/storage/migrations"
	pgstore "groundwater-lab/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	wsEndpoint       string
	region           string
	outputDir        string
	pipelineInterval time.Duration
	reportInterval   time.Duration
	cfg              domain.AnalysisConfig

	// Stores
	stores *allStores

	logger *log.Logger

	// State
	mu              sync.Mutex
	started         time.Time
	lastPipelineRun time.Time
	lastReportRun   time.Time
	pipelineRunning bool
	reportRunning   bool

	// Stats
	pipelineRuns int
	reportRuns   int
	lastResult   *orchestrator.RunResult
}

// allStores holds all storage implementations.
type allStores struct {
	wellStore          storage.WellStore
	observationStore   storage.ObservationStore
	wellRecordStore    storage.WellRecordStore
	forecastPointStore storage.ForecastPointStore
	regionSummaryStore storage.RegionSummaryStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("TELEMETRY_WS_ENDPOINT"), "Telemetry WebSocket endpoint (empty disables live ingestion)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	region := flag.String("region", "", "Restrict analysis to one region (empty for all)")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	pipelineInterval := flag.Duration("pipeline-interval", 24*time.Hour, "Pipeline run interval")
	reportInterval := flag.Duration("report-interval", 24*time.Hour, "Report generation interval")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	useFixtures := flag.Bool("use-fixtures", false, "Seed stores with synthetic wells on startup")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for health/metrics/status")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	if *useFixtures {
		if err := fixtures.Load(ctx, stores.wellStore, stores.observationStore, time.Now().UTC()); err != nil {
			logger.Fatalf("Failed to load fixtures: %v", err)
		}
		logger.Println("Fixture wells loaded")
	}

	// Create server
	server := &Server{
		wsEndpoint:       *wsEndpoint,
		region:           *region,
		outputDir:        *outputDir,
		pipelineInterval: *pipelineInterval,
		reportInterval:   *reportInterval,
		cfg:              domain.DefaultAnalysisConfig(),
		stores:           stores,
		logger:           logger,
		started:          time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores, running migrations in
// database mode.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			wellStore:          memory.NewWellStore(),
			observationStore:   memory.NewObservationStore(),
			wellRecordStore:    memory.NewWellRecordStore(),
			forecastPointStore: memory.NewForecastPointStore(),
			regionSummaryStore: memory.NewRegionSummaryStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
		pool.Close()
		chConn.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &allStores{
		// PostgreSQL stores (registry + observations + scalar results)
		wellStore:        pgstore.NewWellStore(pool),
		observationStore: pgstore.NewObservationStore(pool),
		wellRecordStore:  pgstore.NewWellRecordStore(pool),

		// ClickHouse stores (dense forecast series + group summaries)
		forecastPointStore: chstore.NewForecastPointStore(chConn),
		regionSummaryStore: chstore.NewRegionSummaryStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the unified server with all components.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	// Create error channel for goroutines
	errCh := make(chan error, 3)

	// Start ingestion in background when a feed is configured
	if s.wsEndpoint != "" {
		go func() {
			err := s.runIngestion(ctx)
			if err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("ingestion: %w", err)
			}
		}()
	}

	// Start pipeline scheduler in background
	go func() {
		err := s.runPipelineScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("pipeline scheduler: %w", err)
		}
	}()

	// Start report scheduler in background
	go func() {
		err := s.runReportScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("report scheduler: %w", err)
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runIngestion consumes the live telemetry feed until shutdown.
func (s *Server) runIngestion(ctx context.Context) error {
	s.logger.Printf("Starting ingestion from %s...", s.wsEndpoint)

	source := ingestion.NewWSObservationSource(s.wsEndpoint, nil)
	runner := ingestion.NewRunner(s.stores.observationStore)

	stats, err := runner.Consume(ctx, source)
	if stats != nil {
		s.logger.Printf("Ingestion stopped: %d received, %d inserted, %d duplicates, %d rejected",
			stats.Received, stats.Inserted, stats.Duplicates, stats.Rejected)
	}
	return err
}

// runPipelineScheduler runs the analysis pipeline on schedule.
func (s *Server) runPipelineScheduler(ctx context.Context) error {
	s.logger.Printf("Starting pipeline scheduler (interval: %v)...", s.pipelineInterval)

	// Run immediately on start
	s.runPipeline(ctx)

	ticker := time.NewTicker(s.pipelineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPipeline(ctx)
		}
	}
}

// runPipeline executes the analysis pipeline.
func (s *Server) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.pipelineRunning {
		s.mu.Unlock()
		s.logger.Println("Pipeline already running, skipping...")
		return
	}
	s.pipelineRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pipelineRunning = false
		s.lastPipelineRun = time.Now()
		s.pipelineRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Running pipeline...")
	start := time.Now()

	orch := orchestrator.New(orchestrator.Options{
		WellStore:          s.stores.wellStore,
		ObservationStore:   s.stores.observationStore,
		WellRecordStore:    s.stores.wellRecordStore,
		ForecastPointStore: s.stores.forecastPointStore,
		RegionSummaryStore: s.stores.regionSummaryStore,
		Config:             s.cfg,
		Region:             s.region,
		Refresh:            true, // scheduled runs recompute over the growing feed
		Verbose:            true,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		s.logger.Printf("Pipeline error: %v", err)
		observability.RecordPipelineRun("orchestrator", "error", time.Since(start).Seconds())
		return
	}

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()

	s.logger.Printf("Pipeline completed in %v: %d wells (%d invalid), %d records, %d summaries",
		time.Since(start), result.WellsProcessed, result.WellsInvalid,
		result.RecordsCreated, result.SummariesCreated)

	observability.RecordPipelineRun("orchestrator", "success", time.Since(start).Seconds())
}

// runReportScheduler runs report generation on schedule.
func (s *Server) runReportScheduler(ctx context.Context) error {
	s.logger.Printf("Starting report scheduler (interval: %v)...", s.reportInterval)

	// Give the first pipeline run a head start
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(1 * time.Minute):
	}

	s.runReport(ctx)

	ticker := time.NewTicker(s.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runReport(ctx)
		}
	}
}

// runReport generates reports.
func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	if s.reportRunning {
		s.mu.Unlock()
		s.logger.Println("Report generation already running, skipping...")
		return
	}
	// Wait for pipeline to finish
	if s.pipelineRunning {
		s.mu.Unlock()
		s.logger.Println("Pipeline running, waiting before report generation...")
		time.Sleep(30 * time.Second)
		s.mu.Lock()
	}
	s.reportRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reportRunning = false
		s.lastReportRun = time.Now()
		s.reportRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Generating reports...")
	start := time.Now()

	// Ensure output directory exists
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		s.logger.Printf("Failed to create output directory: %v", err)
		return
	}

	gen := reporting.NewGenerator(s.stores.wellRecordStore, s.stores.regionSummaryStore, s.cfg.HorizonEnd).
		WithForecasts(s.stores.forecastPointStore)
	report, err := gen.Generate(ctx)
	if err != nil {
		s.logger.Printf("Report generation error: %v", err)
		return
	}

	outputs := map[string]string{
		"REPORT.md":     reporting.RenderMarkdown(report),
		"wells.csv":     reporting.RenderWellsCSV(report.Wells),
		"summaries.csv": reporting.RenderSummariesCSV(report.LevelSummaries),
	}
	for name, content := range outputs {
		path := filepath.Join(s.outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			s.logger.Printf("Failed to write %s: %v", path, err)
			return
		}
	}
	observability.DefaultMetrics.ReportsGenerated.Inc()

	s.logger.Printf("Reports generated in %v to %s/", time.Since(start), s.outputDir)
}

// startHTTPServer starts the HTTP server for health/metrics/status/API.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Read-only data API
	mux.HandleFunc("/api/wells", s.handleWells)
	mux.HandleFunc("/api/summaries", s.handleSummaries)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	LastPipelineRun time.Time `json:"last_pipeline_run,omitempty"`
	LastReportRun   time.Time `json:"last_report_run,omitempty"`
	PipelineRuns    int       `json:"pipeline_runs"`
	ReportRuns      int       `json:"report_runs"`
	PipelineRunning bool      `json:"pipeline_running"`
	ReportRunning   bool      `json:"report_running"`
	WellsProcessed  int       `json:"wells_processed"`
	WellsInvalid    int       `json:"wells_invalid"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).String(),
		LastPipelineRun: s.lastPipelineRun,
		LastReportRun:   s.lastReportRun,
		PipelineRuns:    s.pipelineRuns,
		ReportRuns:      s.reportRuns,
		PipelineRunning: s.pipelineRunning,
		ReportRunning:   s.reportRunning,
	}
	if s.lastResult != nil {
		resp.WellsProcessed = s.lastResult.WellsProcessed
		resp.WellsInvalid = s.lastResult.WellsInvalid
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleWells returns all analyzed well records as JSON. An optional
// ?region= query filters by administrative region.
func (s *Server) handleWells(w http.ResponseWriter, r *http.Request) {
	records, err := s.stores.wellRecordStore.GetAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	region := r.URL.Query().Get("region")
	if region != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Well.Region == region {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// handleSummaries returns all group summaries as JSON.
func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.stores.regionSummaryStore.GetAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
