package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"groundwater-lab/internal/domain"
	"groundwater-lab/internal/storage"
)

type observationKey struct {
	wellID    string
	timestamp int64 // unix nanos
}

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[observationKey]*domain.RawObservation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[observationKey]*domain.RawObservation),
	}
}

func obsKey(o *domain.RawObservation) observationKey {
	return observationKey{wellID: o.WellID, timestamp: o.Timestamp.UnixNano()}
}

// Insert adds a new observation. Returns ErrDuplicateKey if (well_id, timestamp) exists.
func (s *ObservationStore) Insert(_ context.Context, o *domain.RawObservation) error {
	if o == nil || o.WellID == "" || o.Timestamp.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(o)
}

// InsertBulk adds multiple observations atomically. Fails the entire batch
// on any duplicate or invalid entry.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.RawObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before mutating
	seen := make(map[observationKey]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.WellID == "" || o.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		key := obsKey(o)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, o := range obs {
		if err := s.insertLocked(o); err != nil {
			return err
		}
	}
	return nil
}

func (s *ObservationStore) insertLocked(o *domain.RawObservation) error {
	key := obsKey(o)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	obsCopy := *o
	s.data[key] = &obsCopy
	return nil
}

// GetByWellID retrieves all observations for a well, ordered by timestamp ASC.
func (s *ObservationStore) GetByWellID(_ context.Context, wellID string) ([]*domain.RawObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RawObservation
	for _, o := range s.data {
		if o.WellID == wellID {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// GetByTimeRange retrieves observations for a well within [start, end] (inclusive).
func (s *ObservationStore) GetByTimeRange(_ context.Context, wellID string, start, end time.Time) ([]*domain.RawObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RawObservation
	for _, o := range s.data {
		if o.WellID != wellID {
			continue
		}
		if o.Timestamp.Before(start) || o.Timestamp.After(end) {
			continue
		}
		obsCopy := *o
		result = append(result, &obsCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ObservationStore = (*ObservationStore)(nil)
