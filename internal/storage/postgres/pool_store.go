package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Insert adds a pool and its reward sub-pools in one transaction.
// Returns ErrDuplicateKey if identity or vault exists.
func (s *PoolStore) Insert(ctx context.Context, p *domain.Pool) (err error) {
	if p == nil || p.Identity == "" {
		return storage.ErrInvalidInput
	}
	defer observe("insert_pool", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO pools (identity, vault, mint, admin, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.Identity, p.Vault, p.Mint, p.Admin, p.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool: %w", err)
	}

	for _, rp := range p.RewardPools {
		balance, err := toBigint(rp.ForfeitableBalance)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO reward_pools (pool_identity, pool_index, is_locked, forfeitable_balance)
			VALUES ($1, $2, $3, $4)
		`, p.Identity, int64(rp.Index), rp.IsLocked, balance)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert reward pool %d: %w", rp.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit pool: %w", err)
	}
	return nil
}

// GetByID retrieves a pool by identity. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(ctx context.Context, identity string) (p *domain.Pool, err error) {
	defer observe("get_pool", time.Now(), &err)

	row := s.pool.QueryRow(ctx, `
		SELECT identity, vault, mint, admin, created_at
		FROM pools
		WHERE identity = $1
	`, identity)
	p, err = scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by id: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT pool_identity, pool_index, is_locked, forfeitable_balance
		FROM reward_pools
		WHERE pool_identity = $1
		ORDER BY pool_index ASC
	`, identity)
	if err != nil {
		return nil, fmt.Errorf("query reward pools: %w", err)
	}
	defer rows.Close()

	if err := attachRewardPools(rows, map[string]*domain.Pool{p.Identity: p}); err != nil {
		return nil, err
	}
	return p, nil
}

// GetAll retrieves all pools ordered by identity.
func (s *PoolStore) GetAll(ctx context.Context) (_ []*domain.Pool, err error) {
	defer observe("get_all_pools", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT identity, vault, mint, admin, created_at
		FROM pools
		ORDER BY identity ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}

	var result []*domain.Pool
	byID := make(map[string]*domain.Pool)
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		result = append(result, p)
		byID[p.Identity] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pools: %w", err)
	}

	subRows, err := s.pool.Query(ctx, `
		SELECT pool_identity, pool_index, is_locked, forfeitable_balance
		FROM reward_pools
		ORDER BY pool_identity ASC, pool_index ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query reward pools: %w", err)
	}
	defer subRows.Close()

	if err := attachRewardPools(subRows, byID); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateRewardPool replaces lock state and forfeitable balance of one sub-pool
// if the row still holds prev. The condition makes concurrent writers from
// other processes fail with ErrConflict instead of losing a debit.
func (s *PoolStore) UpdateRewardPool(ctx context.Context, identity string, prev, next domain.RewardSubPool) (err error) {
	defer observe("update_reward_pool", time.Now(), &err)

	if prev.Index != next.Index {
		return storage.ErrInvalidInput
	}
	prevBalance, err := toBigint(prev.ForfeitableBalance)
	if err != nil {
		return err
	}
	nextBalance, err := toBigint(next.ForfeitableBalance)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE reward_pools
		SET is_locked = $3, forfeitable_balance = $4
		WHERE pool_identity = $1 AND pool_index = $2
		  AND is_locked = $5 AND forfeitable_balance = $6
	`, identity, int64(next.Index), next.IsLocked, nextBalance, prev.IsLocked, prevBalance)
	if err != nil {
		return fmt.Errorf("update reward pool: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM reward_pools WHERE pool_identity = $1 AND pool_index = $2)
	`, identity, int64(next.Index)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check reward pool: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

// scanPool scans a pools row without its reward sub-pools.
func scanPool(row pgx.Row) (*domain.Pool, error) {
	var p domain.Pool
	err := row.Scan(
		&p.Identity,
		&p.Vault,
		&p.Mint,
		&p.Admin,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// attachRewardPools appends reward_pools rows, ordered by index, to their pools.
func attachRewardPools(rows pgx.Rows, pools map[string]*domain.Pool) error {
	for rows.Next() {
		var (
			identity string
			index    int64
			locked   bool
			balance  int64
		)
		if err := rows.Scan(&identity, &index, &locked, &balance); err != nil {
			return fmt.Errorf("scan reward pool: %w", err)
		}
		p, ok := pools[identity]
		if !ok {
			continue
		}
		p.RewardPools = append(p.RewardPools, domain.RewardSubPool{
			Index:              uint32(index),
			IsLocked:           locked,
			ForfeitableBalance: uint64(balance),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate reward pools: %w", err)
	}
	return nil
}
