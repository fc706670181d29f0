package memory

import (
	"context"
	"sort"
	"sync"

	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/storage"
)

// PenaltyEventStore is an in-memory implementation of storage.PenaltyEventStore.
type PenaltyEventStore struct {
	mu     sync.RWMutex
	events []domain.PenaltyEvent
}

// NewPenaltyEventStore creates a new in-memory penalty event store.
func NewPenaltyEventStore() *PenaltyEventStore {
	return &PenaltyEventStore{}
}

// Insert appends an event.
func (s *PenaltyEventStore) Insert(_ context.Context, e *domain.PenaltyEvent) error {
	if e == nil || e.PoolIdentity == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, *e)
	return nil
}

// GetByPool retrieves all events for a pool, ordered by event_time ASC.
func (s *PenaltyEventStore) GetByPool(_ context.Context, identity string) ([]*domain.PenaltyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PenaltyEvent
	for i := range s.events {
		if s.events[i].PoolIdentity == identity {
			eventCopy := s.events[i]
			result = append(result, &eventCopy)
		}
	}

	// Stable keeps insertion order for equal timestamps
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EventTime < result[j].EventTime
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PenaltyEventStore = (*PenaltyEventStore)(nil)
