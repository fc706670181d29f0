package memory

import (
	"context"
	"sort"
	"sync"

	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Pool // keyed by identity
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		data: make(map[string]*domain.Pool),
	}
}

// Insert adds a new pool. Returns ErrDuplicateKey if identity exists.
func (s *PoolStore) Insert(_ context.Context, p *domain.Pool) error {
	if p == nil || p.Identity == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.Identity]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	s.data[p.Identity] = p.Clone()
	return nil
}

// GetByID retrieves a pool by identity. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(_ context.Context, identity string) (*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[identity]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return p.Clone(), nil
}

// GetAll retrieves all pools ordered by identity.
func (s *PoolStore) GetAll(_ context.Context) ([]*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Pool, 0, len(s.data))
	for _, p := range s.data {
		result = append(result, p.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Identity < result[j].Identity
	})

	return result, nil
}

// UpdateRewardPool replaces one sub-pool if it still equals prev.
func (s *PoolStore) UpdateRewardPool(_ context.Context, identity string, prev, next domain.RewardSubPool) error {
	if prev.Index != next.Index {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[identity]
	if !exists || uint64(next.Index) >= uint64(len(p.RewardPools)) {
		return storage.ErrNotFound
	}
	if p.RewardPools[next.Index] != prev {
		return storage.ErrConflict
	}

	p.RewardPools[next.Index] = next
	return nil
}

// Verify interface compliance at compile time.
var _ storage.PoolStore = (*PoolStore)(nil)
