package memory

import (
	"context"
	"sort"
	"sync"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

// WellRecordStore is an in-memory implementation of storage.WellRecordStore.
type WellRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WellRecord // keyed by well_id
}

// NewWellRecordStore creates a new in-memory well record store.
func NewWellRecordStore() *WellRecordStore {
	return &WellRecordStore{
		data: make(map[string]*domain.WellRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if well_id exists.
func (s *WellRecordStore) Insert(_ context.Context, r *domain.WellRecord) error {
	if r == nil || r.Well.WellID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Well.WellID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *r
	s.data[r.Well.WellID] = &recordCopy
	return nil
}

// Upsert adds the record or replaces the existing one for the well.
func (s *WellRecordStore) Upsert(_ context.Context, r *domain.WellRecord) error {
	if r == nil || r.Well.WellID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *r
	s.data[r.Well.WellID] = &recordCopy
	return nil
}

// GetByWellID retrieves the record for a well. Returns ErrNotFound if not exists.
func (s *WellRecordStore) GetByWellID(_ context.Context, wellID string) (*domain.WellRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[wellID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *r
	return &recordCopy, nil
}

// GetValid retrieves all records that passed validation, ordered by well_id ASC.
func (s *WellRecordStore) GetValid(_ context.Context) ([]*domain.WellRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WellRecord
	for _, r := range s.data {
		if r.Invalid {
			continue
		}
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sortRecords(result)
	return result, nil
}

// GetAll retrieves every record, ordered by well_id ASC.
func (s *WellRecordStore) GetAll(_ context.Context) ([]*domain.WellRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WellRecord, 0, len(s.data))
	for _, r := range s.data {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sortRecords(result)
	return result, nil
}

func sortRecords(records []*domain.WellRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Well.WellID < records[j].Well.WellID
	})
}

// Verify interface compliance at compile time.
var _ storage.WellRecordStore = (*WellRecordStore)(nil)
