// Package ingestion brings raw level observations into storage, either
// from a live telemetry feed or from historical export files.
package ingestion

import (
	"context"

	"groundwater-lab/internal/domain"
)

// ObservationSource provides a live stream of raw observations.
type ObservationSource interface {
	// Subscribe returns a channel of observations. The channel is closed
	// when the context is cancelled or the source shuts down.
	Subscribe(ctx context.Context) (<-chan *domain.RawObservation, error)
}

// BackfillSource provides historical observations in bulk.
type BackfillSource interface {
	// Fetch returns all observations the source holds, ordered as found.
	// The validator handles duplicates and ordering downstream.
	Fetch(ctx context.Context) ([]*domain.RawObservation, error)
}
