package memory

import (
	"context"
	"sort"
	"sync"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

type summaryKey struct {
	level domain.GroupLevel
	key   string
}

// RegionSummaryStore is an in-memory implementation of storage.RegionSummaryStore.
type RegionSummaryStore struct {
	mu   sync.RWMutex
	data map[summaryKey]*domain.RegionSummary
}

// NewRegionSummaryStore creates a new in-memory region summary store.
func NewRegionSummaryStore() *RegionSummaryStore {
	return &RegionSummaryStore{
		data: make(map[summaryKey]*domain.RegionSummary),
	}
}

// Insert adds a new summary. Returns ErrDuplicateKey if (group_level, group_key) exists.
func (s *RegionSummaryStore) Insert(_ context.Context, sum *domain.RegionSummary) error {
	if sum == nil || sum.GroupLevel == "" || sum.GroupKey == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := summaryKey{level: sum.GroupLevel, key: sum.GroupKey}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	summaryCopy := *sum
	s.data[key] = &summaryCopy
	return nil
}

// Upsert adds the summary or replaces the existing one for the
// (group_level, group_key) pair.
func (s *RegionSummaryStore) Upsert(_ context.Context, sum *domain.RegionSummary) error {
	if sum == nil || sum.GroupLevel == "" || sum.GroupKey == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	summaryCopy := *sum
	s.data[summaryKey{level: sum.GroupLevel, key: sum.GroupKey}] = &summaryCopy
	return nil
}

// GetByLevel retrieves all summaries at a grouping level, ordered by group_key ASC.
func (s *RegionSummaryStore) GetByLevel(_ context.Context, level domain.GroupLevel) ([]*domain.RegionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RegionSummary
	for _, sum := range s.data {
		if sum.GroupLevel == level {
			summaryCopy := *sum
			result = append(result, &summaryCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].GroupKey < result[j].GroupKey
	})

	return result, nil
}

// GetAll retrieves every summary, ordered by group_level, group_key ASC.
func (s *RegionSummaryStore) GetAll(_ context.Context) ([]*domain.RegionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RegionSummary, 0, len(s.data))
	for _, sum := range s.data {
		summaryCopy := *sum
		result = append(result, &summaryCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].GroupLevel != result[j].GroupLevel {
			return result[i].GroupLevel < result[j].GroupLevel
		}
		return result[i].GroupKey < result[j].GroupKey
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.RegionSummaryStore = (*RegionSummaryStore)(nil)
