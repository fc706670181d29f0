package memory

import (
	"context"
	"sort"
	"sync"

	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/storage"
)

// ReceiptStore is an in-memory implementation of storage.ReceiptStore.
type ReceiptStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransferReceipt // keyed by receipt_id
}

// NewReceiptStore creates a new in-memory receipt store.
func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{
		data: make(map[string]*domain.TransferReceipt),
	}
}

// Insert adds a new receipt. Returns ErrDuplicateKey if receipt_id exists.
func (s *ReceiptStore) Insert(_ context.Context, r *domain.TransferReceipt) error {
	if r == nil || r.ReceiptID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ReceiptID]; exists {
		return storage.ErrDuplicateKey
	}

	receiptCopy := *r
	s.data[r.ReceiptID] = &receiptCopy
	return nil
}

// GetByID retrieves a receipt by its ID. Returns ErrNotFound if not exists.
func (s *ReceiptStore) GetByID(_ context.Context, receiptID string) (*domain.TransferReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[receiptID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	receiptCopy := *r
	return &receiptCopy, nil
}

// GetByPool retrieves all receipts for a pool, ordered by executed_at ASC.
func (s *ReceiptStore) GetByPool(_ context.Context, identity string) ([]*domain.TransferReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferReceipt
	for _, r := range s.data {
		if r.PoolIdentity == identity {
			receiptCopy := *r
			result = append(result, &receiptCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ExecutedAt != result[j].ExecutedAt {
			return result[i].ExecutedAt < result[j].ExecutedAt
		}
		return result[i].ReceiptID < result[j].ReceiptID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ReceiptStore = (*ReceiptStore)(nil)
