package storage

import (
	"context"

	"stakepool-custody/internal/domain"
)

// PoolStore provides access to pools and reward_pools storage.
type PoolStore interface {
	// Insert adds a new pool with its reward sub-pools. Returns ErrDuplicateKey if identity exists.
	Insert(ctx context.Context, p *domain.Pool) error

	// GetByID retrieves a pool by identity. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, identity string) (*domain.Pool, error)

	// GetAll retrieves all pools ordered by identity.
	GetAll(ctx context.Context) ([]*domain.Pool, error)

	// UpdateRewardPool replaces the lock state and forfeitable balance of sub-pool
	// prev.Index with next, only if the stored state still equals prev.
	// Returns ErrNotFound if the pool or the index does not exist, ErrConflict if
	// the stored state differs from prev and ErrInvalidInput if the indexes differ.
	UpdateRewardPool(ctx context.Context, identity string, prev, next domain.RewardSubPool) error
}

// ReceiptStore provides access to penalty_receipts storage.
type ReceiptStore interface {
	// Insert adds a new receipt. Returns ErrDuplicateKey if receipt_id exists.
	Insert(ctx context.Context, r *domain.TransferReceipt) error

	// GetByID retrieves a receipt by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, receiptID string) (*domain.TransferReceipt, error)

	// GetByPool retrieves all receipts for a pool, ordered by executed_at ASC.
	GetByPool(ctx context.Context, identity string) ([]*domain.TransferReceipt, error)
}

// PenaltyEventStore provides access to penalty_events storage.
type PenaltyEventStore interface {
	// Insert appends an event.
	Insert(ctx context.Context, e *domain.PenaltyEvent) error

	// GetByPool retrieves all events for a pool, ordered by event_time ASC.
	GetByPool(ctx context.Context, identity string) ([]*domain.PenaltyEvent, error)
}
