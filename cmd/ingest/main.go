package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"groundwater-lab/internal/ingestion"
	"groundwater-lab/internal/observability"
	"groundwater-lab/internal/storage"
	"groundwater-lab/internal/storage/memory"
	"groundwater-lab/internal/storage/migrations"
	pgstore "groundwater-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "live", "Ingestion mode: live or backfill")
	wsEndpoint := flag.String("ws-endpoint", "", "Telemetry WebSocket endpoint")
	csvPath := flag.String("csv", "", "CSV export file for backfill mode")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

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

	// Run based on mode
	var err error
	switch *mode {
	case "live":
		err = runLive(ctx, logger, *wsEndpoint, *postgresDSN, *useMemory)
	case "backfill":
		err = runBackfill(ctx, logger, *csvPath, *postgresDSN, *useMemory)
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createObservationStore builds the observation store from flags,
// running migrations in database mode.
func createObservationStore(ctx context.Context, postgresDSN string, useMemory bool) (storage.ObservationStore, func(), error) {
	if useMemory {
		return memory.NewObservationStore(), func() {}, nil
	}
	if postgresDSN == "" {
		return nil, nil, fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return pgstore.NewObservationStore(pool), pool.Close, nil
}

// runLive runs continuous live ingestion from the telemetry feed.
func runLive(ctx context.Context, logger *log.Logger, wsEndpoint, postgresDSN string, useMemory bool) error {
	if wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required for live mode")
	}

	store, cleanup, err := createObservationStore(ctx, postgresDSN, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	source := ingestion.NewWSObservationSource(wsEndpoint, nil)
	runner := ingestion.NewRunner(store)

	logger.Println("Starting live ingestion...")
	stats, err := runner.Consume(ctx, source)
	if stats != nil {
		logger.Printf("Live ingestion stopped: %d received, %d inserted, %d duplicates, %d rejected",
			stats.Received, stats.Inserted, stats.Duplicates, stats.Rejected)
	}
	return err
}

// runBackfill loads a historical CSV export.
func runBackfill(ctx context.Context, logger *log.Logger, csvPath, postgresDSN string, useMemory bool) error {
	if csvPath == "" {
		return fmt.Errorf("--csv is required for backfill mode")
	}

	store, cleanup, err := createObservationStore(ctx, postgresDSN, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	source := ingestion.NewCSVSource(csvPath)
	runner := ingestion.NewRunner(store)

	logger.Printf("Backfilling from %s...", csvPath)
	stats, err := runner.Backfill(ctx, source)
	if err != nil {
		return err
	}

	logger.Printf("Backfill complete: %d received, %d inserted, %d duplicates, %d rejected",
		stats.Received, stats.Inserted, stats.Duplicates, stats.Rejected)
	return nil
}
