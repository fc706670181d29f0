// Package accounts resolves pool records and guards the relationship between a
// pool and the vault and mint references supplied alongside it.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/storage"
)

var (
	// ErrVaultMismatch is returned when a supplied vault differs from Pool.Vault.
	ErrVaultMismatch = errors.New("vault does not belong to pool")

	// ErrMintMismatch is returned when a supplied mint differs from Pool.Mint.
	ErrMintMismatch = errors.New("mint does not belong to pool")
)

// Model is the account model over a pool store.
type Model struct {
	pools storage.PoolStore
}

// NewModel creates a new Model.
func NewModel(pools storage.PoolStore) *Model {
	return &Model{pools: pools}
}

// Resolve returns the pool for identity. Wraps storage.ErrNotFound if missing.
func (m *Model) Resolve(ctx context.Context, identity string) (*domain.Pool, error) {
	p, err := m.pools.GetByID(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("resolve pool %s: %w", identity, err)
	}
	return p, nil
}

// RewardPool reads the current state of one sub-pool.
func (m *Model) RewardPool(ctx context.Context, identity string, index uint64) (domain.RewardSubPool, error) {
	p, err := m.Resolve(ctx, identity)
	if err != nil {
		return domain.RewardSubPool{}, err
	}
	sub, ok := p.SubPool(index)
	if !ok {
		return domain.RewardSubPool{}, fmt.Errorf("reward pool %d of %s: %w", index, identity, storage.ErrNotFound)
	}
	return sub, nil
}

// WriteRewardPool is the only mutation entry point for reward sub-pools.
// It replaces prev with next and fails with storage.ErrConflict if the stored
// state is no longer prev. Callers outside the reward-pool state machine must
// not use it.
func (m *Model) WriteRewardPool(ctx context.Context, identity string, prev, next domain.RewardSubPool) error {
	if err := m.pools.UpdateRewardPool(ctx, identity, prev, next); err != nil {
		return fmt.Errorf("write reward pool %d of %s: %w", next.Index, identity, err)
	}
	return nil
}

// CheckBinding compares caller-supplied vault and mint against the pool record.
func CheckBinding(p *domain.Pool, vault, mint string) error {
	if vault != p.Vault {
		return ErrVaultMismatch
	}
	if mint != p.Mint {
		return ErrMintMismatch
	}
	return nil
}
