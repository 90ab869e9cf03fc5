package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// Stats summarizes one ingestion run.
type Stats struct {
	Received   int
	Inserted   int
	Duplicates int
	Rejected   int
}

// finalFlushTimeout bounds the commit of the last live buffer after the
// run context is cancelled.
const finalFlushTimeout = 10 * time.Second

// Runner commits observations from sources into the observation store.
type Runner struct {
	store storage.ObservationStore

	// FlushInterval bounds how long a live observation sits in the
	// buffer before being committed. Zero uses the default.
	FlushInterval time.Duration

	// BatchSize bounds the live commit buffer. Zero uses the default.
	BatchSize int
}

// NewRunner creates a Runner writing to the given store.
func NewRunner(store storage.ObservationStore) *Runner {
	return &Runner{
		store:         store,
		FlushInterval: 10 * time.Second,
		BatchSize:     500,
	}
}

// Backfill fetches everything from the source and inserts it one row at
// a time, counting duplicates instead of failing on them.
func (r *Runner) Backfill(ctx context.Context, source BackfillSource) (*Stats, error) {
	obs, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch backfill: %w", err)
	}

	stats := &Stats{Received: len(obs)}
	for _, o := range obs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		r.insert(ctx, o, stats)
	}
	return stats, nil
}

// Consume subscribes to the live source and commits observations in
// batches until the context is cancelled. Returns the accumulated stats;
// cancellation is the normal way to stop and is not an error.
func (r *Runner) Consume(ctx context.Context, source ObservationSource) (*Stats, error) {
	ch, err := source.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	stats := &Stats{}
	buffer := make([]*domain.RawObservation, 0, r.BatchSize)

	ticker := time.NewTicker(r.FlushInterval)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		for _, o := range buffer {
			r.insert(ctx, o, stats)
		}
		buffer = buffer[:0]
	}

	for {
		select {
		case o, ok := <-ch:
			if !ok {
				flush(ctx)
				return stats, nil
			}
			stats.Received++
			buffer = append(buffer, o)
			if len(buffer) >= r.BatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			// The run context is already cancelled here; committing the
			// tail needs a fresh deadline or every buffered row fails.
			flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			flush(flushCtx)
			cancel()
			return stats, nil
		}
	}
}

func (r *Runner) insert(ctx context.Context, o *domain.RawObservation, stats *Stats) {
	err := r.store.Insert(ctx, o)
	switch {
	case err == nil:
		stats.Inserted++
	case errors.Is(err, storage.ErrDuplicateKey):
		stats.Duplicates++
	case errors.Is(err, storage.ErrInvalidInput):
		stats.Rejected++
	default:
		stats.Rejected++
		log.Printf("[ingest] insert %s@%s: %v", o.WellID, o.Timestamp, err)
	}
}
