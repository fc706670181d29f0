// Package rewardpool holds the reward sub-pool state machine. Lock state is
// derived from the action; balances never go below zero.
package rewardpool

import (
	"context"
	"errors"
	"fmt"

	"stakepool-custody/internal/domain"
)

var (
	// ErrInsufficientForfeitable is returned when amount exceeds the forfeitable balance.
	ErrInsufficientForfeitable = errors.New("amount exceeds forfeitable balance")

	// ErrUnknownAction is returned for actions outside the closed set.
	ErrUnknownAction = errors.New("unknown action")
)

// Transition computes the next state of sub for action. It is pure: sub is
// not modified and nothing is written.
func Transition(sub domain.RewardSubPool, action domain.Action, amount uint64) (domain.RewardSubPool, error) {
	if !action.IsValid() {
		return sub, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	next := sub
	if action.Debits() {
		if amount > sub.ForfeitableBalance {
			return sub, fmt.Errorf("%w: %d > %d", ErrInsufficientForfeitable, amount, sub.ForfeitableBalance)
		}
		next.ForfeitableBalance = sub.ForfeitableBalance - amount
	}
	next.IsLocked = action.TargetLocked()
	return next, nil
}

// Writer persists a reward sub-pool if it still holds prev. Implemented by
// accounts.Model.
type Writer interface {
	WriteRewardPool(ctx context.Context, identity string, prev, next domain.RewardSubPool) error
}

// Machine applies transitions through the account model.
type Machine struct {
	writer Writer
}

// NewMachine creates a new Machine.
func NewMachine(writer Writer) *Machine {
	return &Machine{writer: writer}
}

// Apply replaces prev, the state next was computed from, with next.
func (m *Machine) Apply(ctx context.Context, identity string, prev, next domain.RewardSubPool) error {
	return m.writer.WriteRewardPool(ctx, identity, prev, next)
}

// Restore writes snapshot back over applied, undoing a previous Apply.
func (m *Machine) Restore(ctx context.Context, identity string, applied, snapshot domain.RewardSubPool) error {
	if err := m.writer.WriteRewardPool(ctx, identity, applied, snapshot); err != nil {
		return fmt.Errorf("restore reward pool %d: %w", snapshot.Index, err)
	}
	return nil
}
