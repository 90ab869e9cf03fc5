package memory

import (
	"context"
	"sort"
	"sync"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// WellStore is an in-memory implementation of storage.WellStore.
type WellStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Well // keyed by well_id
}

// NewWellStore creates a new in-memory well store.
func NewWellStore() *WellStore {
	return &WellStore{
		data: make(map[string]*domain.Well),
	}
}

// Insert adds a new well. Returns ErrDuplicateKey if well_id exists.
func (s *WellStore) Insert(_ context.Context, w *domain.Well) error {
	if w == nil || w.WellID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[w.WellID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	wellCopy := *w
	s.data[w.WellID] = &wellCopy
	return nil
}

// GetByID retrieves a well by its ID. Returns ErrNotFound if not exists.
func (s *WellStore) GetByID(_ context.Context, wellID string) (*domain.Well, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[wellID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	wellCopy := *w
	return &wellCopy, nil
}

// GetByRegion retrieves all wells in a region, ordered by well_id ASC.
func (s *WellStore) GetByRegion(_ context.Context, region string) ([]*domain.Well, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Well
	for _, w := range s.data {
		if w.Region == region {
			wellCopy := *w
			result = append(result, &wellCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WellID < result[j].WellID
	})

	return result, nil
}

// GetAll retrieves every registered well, ordered by well_id ASC.
func (s *WellStore) GetAll(_ context.Context) ([]*domain.Well, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Well, 0, len(s.data))
	for _, w := range s.data {
		wellCopy := *w
		result = append(result, &wellCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WellID < result[j].WellID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.WellStore = (*WellStore)(nil)
