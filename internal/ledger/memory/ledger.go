// Package memory provides an in-process token ledger for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"stakepool-custody/internal/ledger"
	"stakepool-custody/internal/signer"
)

type account struct {
	mint    string
	owner   signer.Authority
	balance uint64
}

// Ledger is an in-memory implementation of ledger.Ledger.
type Ledger struct {
	mu        sync.Mutex
	accounts  map[string]*account
	failNext  []error
	transfers []ledger.Transfer
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{accounts: make(map[string]*account)}
}

// OpenAccount creates or replaces a token account. A zero owner means the
// account cannot be debited.
func (l *Ledger) OpenAccount(address, mint string, owner signer.Authority, balance uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[address] = &account{mint: mint, owner: owner, balance: balance}
}

// Balance returns the balance of address and whether the account exists.
func (l *Ledger) Balance(address string) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[address]
	if !ok {
		return 0, false
	}
	return a.balance, true
}

// FailNext queues err to be returned by the next Transfer call without
// touching any balance.
func (l *Ledger) FailNext(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = append(l.failNext, err)
}

// Transfers returns the transfers applied so far.
func (l *Ledger) Transfers() []ledger.Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ledger.Transfer, len(l.transfers))
	copy(out, l.transfers)
	return out
}

// Transfer implements ledger.Ledger.
func (l *Ledger) Transfer(ctx context.Context, t ledger.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.failNext) > 0 {
		err := l.failNext[0]
		l.failNext = l.failNext[1:]
		return err
	}

	if t.Amount == 0 {
		return ledger.ErrInvalidAmount
	}
	src, ok := l.accounts[t.Source]
	if !ok {
		return fmt.Errorf("source %s: %w", t.Source, ledger.ErrAccountNotFound)
	}
	dst, ok := l.accounts[t.Destination]
	if !ok {
		return fmt.Errorf("destination %s: %w", t.Destination, ledger.ErrAccountNotFound)
	}
	if src.mint != t.Mint || dst.mint != t.Mint {
		return ledger.ErrMintMismatch
	}
	if !src.owner.Equal(t.Authority) {
		return ledger.ErrOwnerMismatch
	}
	if src.balance < t.Amount {
		return fmt.Errorf("%w: %d < %d", ledger.ErrInsufficientFunds, src.balance, t.Amount)
	}

	src.balance -= t.Amount
	dst.balance += t.Amount
	l.transfers = append(l.transfers, t)
	return nil
}

// Verify interface compliance at compile time.
var _ ledger.Ledger = (*Ledger)(nil)
