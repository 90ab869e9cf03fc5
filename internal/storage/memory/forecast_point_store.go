package memory

import (
	"context"
	"sort"
	"sync"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

type forecastKey struct {
	wellID    string
	modelName string
	ts        int64
}

// ForecastPointStore is an in-memory implementation of storage.ForecastPointStore.
// Re-inserting a (well, model, timestamp) key replaces the earlier
// point, mirroring the ClickHouse ReplacingMergeTree behavior.
type ForecastPointStore struct {
	mu   sync.RWMutex
	data map[forecastKey]*domain.ForecastPoint
}

// NewForecastPointStore creates a new in-memory forecast point store.
func NewForecastPointStore() *ForecastPointStore {
	return &ForecastPointStore{
		data: make(map[forecastKey]*domain.ForecastPoint),
	}
}

// InsertBulk adds the forecast points produced by one (well, model) fit.
// Intra-batch duplicates are rejected; existing keys are replaced.
func (s *ForecastPointStore) InsertBulk(_ context.Context, points []*domain.ForecastPoint) error {
	seen := make(map[forecastKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.WellID == "" || p.ModelName == "" || p.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		k := forecastKey{p.WellID, p.ModelName, p.Timestamp.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		pointCopy := *p
		s.data[forecastKey{p.WellID, p.ModelName, p.Timestamp.UnixMilli()}] = &pointCopy
	}
	return nil
}

// GetByWellID retrieves all forecast points for a well, ordered by
// model_name, timestamp ASC.
func (s *ForecastPointStore) GetByWellID(_ context.Context, wellID string) ([]*domain.ForecastPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ForecastPoint
	for _, p := range s.data {
		if p.WellID == wellID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ModelName != result[j].ModelName {
			return result[i].ModelName < result[j].ModelName
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ForecastPointStore = (*ForecastPointStore)(nil)
