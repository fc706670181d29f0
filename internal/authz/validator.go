// Package authz validates a penalty request against the pool record before
// anything is mutated.
package authz

import (
	"context"
	"errors"
	"fmt"

	"stakepool-custody/internal/accounts"
	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/storage"
)

// PoolResolver resolves pool records by identity.
type PoolResolver interface {
	Resolve(ctx context.Context, identity string) (*domain.Pool, error)
}

// ValidatedRequest is a request that passed every check, with the pool
// snapshot it was validated against.
type ValidatedRequest struct {
	Request domain.PenaltyRequest
	Pool    *domain.Pool
	SubPool domain.RewardSubPool
}

// Validator runs the authorization checks in a fixed order.
type Validator struct {
	pools PoolResolver
}

// NewValidator creates a new Validator.
func NewValidator(pools PoolResolver) *Validator {
	return &Validator{pools: pools}
}

// Validate checks, in order: pool exists, vault and mint binding, caller
// capability, index bounds, destination. Action and amount shape are checked
// last. The first failing check is returned.
func (v *Validator) Validate(ctx context.Context, req domain.PenaltyRequest) (*ValidatedRequest, error) {
	pool, err := v.pools.Resolve(ctx, req.PoolIdentity)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, reject(KindUnknownPool, req.PoolIdentity, nil)
		}
		return nil, fmt.Errorf("resolve pool: %w", err)
	}

	if err := accounts.CheckBinding(pool, req.Vault, req.Mint); err != nil {
		if errors.Is(err, accounts.ErrVaultMismatch) {
			return nil, reject(KindVaultMismatch, req.Vault, err)
		}
		return nil, reject(KindMintMismatch, req.Mint, err)
	}

	if !req.Action.IsValid() {
		return nil, reject(KindInvalidAction, string(req.Action), nil)
	}

	if !hasCapability(pool, req.Caller, req.Action) {
		return nil, reject(KindUnauthorized, req.Caller, nil)
	}

	if req.IndexInvalid {
		return nil, reject(KindIndexOutOfRange, "index is not an unsigned 64-bit integer", nil)
	}
	sub, ok := pool.SubPool(req.PoolIndex)
	if !ok {
		return nil, reject(KindIndexOutOfRange, fmt.Sprintf("%d not in [0, %d)", req.PoolIndex, pool.Len()), nil)
	}

	if err := checkDestination(pool, req); err != nil {
		return nil, err
	}

	if err := checkAmount(req); err != nil {
		return nil, err
	}

	return &ValidatedRequest{Request: req, Pool: pool, SubPool: sub}, nil
}

// hasCapability reports whether caller may perform action on pool.
// Every action in the closed set is administrative.
func hasCapability(pool *domain.Pool, caller string, action domain.Action) bool {
	switch action {
	case domain.ActionPenalty, domain.ActionForfeitToVault, domain.ActionRelease:
		return caller != "" && caller == pool.Admin
	}
	return false
}

// checkDestination rejects vault self-transfers unless the action credits the
// vault by design, in which case the destination must be the vault.
func checkDestination(pool *domain.Pool, req domain.PenaltyRequest) error {
	if err := domain.ValidateAddress(req.Destination); err != nil {
		return reject(KindInvalidDestination, req.Destination, err)
	}
	if req.Action.CreditsVault() {
		if req.Destination != pool.Vault {
			return reject(KindInvalidDestination, "same-vault credit must target the pool vault", nil)
		}
		return nil
	}
	if req.Destination == pool.Vault {
		return reject(KindInvalidDestination, "destination is the pool vault", nil)
	}
	return nil
}

func checkAmount(req domain.PenaltyRequest) error {
	if req.AmountInvalid {
		return reject(KindInvalidAmount, "amount is not an unsigned 64-bit integer", nil)
	}
	if req.Action.Debits() && req.Amount == 0 {
		return reject(KindInvalidAmount, "amount must be positive", nil)
	}
	if !req.Action.Debits() && req.Amount != 0 {
		return reject(KindInvalidAmount, "release carries no amount", nil)
	}
	return nil
}
