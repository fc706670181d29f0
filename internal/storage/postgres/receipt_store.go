package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/storage"
)

// ReceiptStore implements storage.ReceiptStore using PostgreSQL.
type ReceiptStore struct {
	pool *Pool
}

// NewReceiptStore creates a new ReceiptStore.
func NewReceiptStore(pool *Pool) *ReceiptStore {
	return &ReceiptStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReceiptStore = (*ReceiptStore)(nil)

// Insert adds a new receipt. Returns ErrDuplicateKey if receipt_id exists.
func (s *ReceiptStore) Insert(ctx context.Context, r *domain.TransferReceipt) (err error) {
	if r == nil || r.ReceiptID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("insert_receipt", time.Now(), &err)

	amount, err := toBigint(r.Amount)
	if err != nil {
		return err
	}
	after, err := toBigint(r.ForfeitableAfter)
	if err != nil {
		return err
	}
	index, err := toBigint(r.PoolIndex)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO penalty_receipts (
			receipt_id, pool_identity, pool_index, action, amount,
			destination, new_lock_state, forfeitable_after, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ReceiptID,
		r.PoolIdentity,
		index,
		string(r.Action),
		amount,
		r.Destination,
		r.NewLockState,
		after,
		r.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// GetByID retrieves a receipt by its ID. Returns ErrNotFound if not exists.
func (s *ReceiptStore) GetByID(ctx context.Context, receiptID string) (_ *domain.TransferReceipt, err error) {
	defer observe("get_receipt", time.Now(), &err)

	query := `
		SELECT receipt_id, pool_identity, pool_index, action, amount,
		       destination, new_lock_state, forfeitable_after, executed_at
		FROM penalty_receipts
		WHERE receipt_id = $1
	`

	r, err := scanReceipt(s.pool.QueryRow(ctx, query, receiptID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get receipt by id: %w", err)
	}
	return r, nil
}

// GetByPool retrieves all receipts for a pool, ordered by executed_at ASC.
func (s *ReceiptStore) GetByPool(ctx context.Context, identity string) (_ []*domain.TransferReceipt, err error) {
	defer observe("get_receipts_by_pool", time.Now(), &err)

	query := `
		SELECT receipt_id, pool_identity, pool_index, action, amount,
		       destination, new_lock_state, forfeitable_after, executed_at
		FROM penalty_receipts
		WHERE pool_identity = $1
		ORDER BY executed_at ASC, receipt_id ASC
	`

	rows, err := s.pool.Query(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("query receipts by pool: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransferReceipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return result, nil
}

// scanReceipt scans a single row into TransferReceipt.
func scanReceipt(row pgx.Row) (*domain.TransferReceipt, error) {
	var (
		r      domain.TransferReceipt
		action string
		index  int64
		amount int64
		after  int64
	)

	err := row.Scan(
		&r.ReceiptID,
		&r.PoolIdentity,
		&index,
		&action,
		&amount,
		&r.Destination,
		&r.NewLockState,
		&after,
		&r.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	r.PoolIndex = uint64(index)
	r.Action = domain.Action(action)
	r.Amount = uint64(amount)
	r.ForfeitableAfter = uint64(after)
	return &r, nil
}
