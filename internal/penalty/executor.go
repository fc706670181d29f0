// Package penalty executes validated penalty requests: it reserves the
// reward pool transition, moves tokens with the pool's derived authority and
// rolls the reservation back if the transfer fails.
package penalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stakepool-custody/internal/authz"
	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/idhash"
	"stakepool-custody/internal/ledger"
	"stakepool-custody/internal/observability"
	"stakepool-custody/internal/rewardpool"
	"stakepool-custody/internal/signer"
	"stakepool-custody/internal/storage"
)

// RewardPoolReader reads the current state of a sub-pool.
type RewardPoolReader interface {
	RewardPool(ctx context.Context, identity string, index uint64) (domain.RewardSubPool, error)
}

// AuthorityDeriver derives a pool's signing authority.
type AuthorityDeriver interface {
	Derive(identity string) (signer.Authority, error)
}

// Executor is the single path by which tokens leave custody.
type Executor struct {
	pools    RewardPoolReader
	machine  *rewardpool.Machine
	signer   AuthorityDeriver
	ledger   ledger.Ledger
	receipts storage.ReceiptStore
	now      func() time.Time
	newID    func() string
	log      *logrus.Entry
}

// ExecutorOption configures Executor.
type ExecutorOption func(*Executor)

// WithReceiptStore journals every receipt.
func WithReceiptStore(s storage.ReceiptStore) ExecutorOption {
	return func(e *Executor) {
		e.receipts = s
	}
}

// WithClock overrides the receipt timestamp source.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.now = now
	}
}

// WithLogger sets the executor logger.
func WithLogger(log *logrus.Entry) ExecutorOption {
	return func(e *Executor) {
		e.log = log
	}
}

// NewExecutor creates a new Executor.
func NewExecutor(pools RewardPoolReader, machine *rewardpool.Machine, deriver AuthorityDeriver, l ledger.Ledger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		pools:   pools,
		machine: machine,
		signer:  deriver,
		ledger:  l,
		now:     time.Now,
		newID:   uuid.NewString,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "executor")
	return e
}

// Execute applies a validated request. The caller must hold the pool lock.
//
// The amount is checked against a fresh read of the sub-pool, the transition
// is reserved, and only then is the transfer invoked. If the transfer fails
// the reservation is restored to the pre-call snapshot.
func (e *Executor) Execute(ctx context.Context, v *authz.ValidatedRequest) (*domain.TransferReceipt, error) {
	req := v.Request
	identity := v.Pool.Identity

	snapshot, err := e.pools.RewardPool(ctx, identity, req.PoolIndex)
	if err != nil {
		return nil, fmt.Errorf("read reward pool: %w", err)
	}

	next, err := rewardpool.Transition(snapshot, req.Action, req.Amount)
	if err != nil {
		if errors.Is(err, rewardpool.ErrInsufficientForfeitable) {
			return nil, &ExecError{Kind: KindInsufficientForfeitable, Cause: err}
		}
		return nil, err
	}

	var authority signer.Authority
	if req.Action.MovesFunds() {
		authority, err = e.signer.Derive(identity)
		if err != nil {
			return nil, fmt.Errorf("derive authority: %w", err)
		}
	}

	// Last point at which cancellation is honored.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	if err := e.machine.Apply(ctx, identity, snapshot, next); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, &ExecError{Kind: KindConcurrentUpdate, Cause: err, retryable: true}
		}
		return nil, fmt.Errorf("reserve reward pool: %w", err)
	}

	if req.Action.MovesFunds() {
		if err := e.transfer(ctx, v.Pool, req, authority); err != nil {
			return nil, e.rollback(ctx, identity, next, snapshot, err)
		}
	}

	receipt := e.receipt(req, next)
	if e.receipts != nil {
		if err := e.receipts.Insert(ctx, receipt); err != nil {
			e.log.WithFields(logrus.Fields{
				"pool":       identity,
				"receipt_id": receipt.ReceiptID,
			}).WithError(err).Warn("receipt journal write failed")
		}
	}
	return receipt, nil
}

func (e *Executor) transfer(ctx context.Context, pool *domain.Pool, req domain.PenaltyRequest, authority signer.Authority) error {
	start := time.Now()
	err := e.ledger.Transfer(ctx, ledger.Transfer{
		Source:      pool.Vault,
		Destination: req.Destination,
		Mint:        pool.Mint,
		Amount:      req.Amount,
		Authority:   authority,
	})
	observability.RecordTransferLatency(time.Since(start).Seconds())
	return err
}

func (e *Executor) rollback(ctx context.Context, identity string, applied, snapshot domain.RewardSubPool, cause error) error {
	if rbErr := e.machine.Restore(ctx, identity, applied, snapshot); rbErr != nil {
		observability.RecordRollback(false)
		e.log.WithFields(logrus.Fields{
			"pool":         identity,
			"pool_index":   snapshot.Index,
			"needs_repair": true,
		}).WithError(rbErr).Error("rollback failed after transfer failure")
		return &ExecError{Kind: KindRollbackFailed, Cause: cause, RollbackErr: rbErr}
	}
	observability.RecordRollback(true)
	return &ExecError{Kind: KindTransferFailed, Cause: cause, retryable: ledger.IsRetryable(cause)}
}

func (e *Executor) receipt(req domain.PenaltyRequest, next domain.RewardSubPool) *domain.TransferReceipt {
	executedAt := e.now().UnixMilli()
	return &domain.TransferReceipt{
		ReceiptID:        idhash.ComputeReceiptID(e.newID(), req.PoolIdentity, req.PoolIndex, req.Action, req.Amount, req.Destination, next.ForfeitableBalance, executedAt),
		PoolIdentity:     req.PoolIdentity,
		PoolIndex:        req.PoolIndex,
		Action:           req.Action,
		Amount:           req.Amount,
		Destination:      req.Destination,
		NewLockState:     next.IsLocked,
		ForfeitableAfter: next.ForfeitableBalance,
		ExecutedAt:       executedAt,
	}
}
