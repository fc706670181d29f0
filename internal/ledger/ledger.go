// Package ledger defines the token transfer primitive the executor drives.
package ledger

import (
	"context"
	"errors"

	"stakepool-custody/internal/signer"
)

// Transfer errors. Only ErrTransient is retryable.
var (
	ErrAccountNotFound   = errors.New("token account not found")
	ErrMintMismatch      = errors.New("token account mint mismatch")
	ErrInsufficientFunds = errors.New("insufficient funds in source account")
	ErrOwnerMismatch     = errors.New("authority does not own source account")
	ErrInvalidAmount     = errors.New("transfer amount must be positive")
	ErrTransient         = errors.New("transient ledger failure")
)

// Transfer moves Amount of Mint from Source to Destination, signed by Authority.
type Transfer struct {
	Source      string
	Destination string
	Mint        string
	Amount      uint64
	Authority   signer.Authority
}

// Ledger executes token transfers. Transfer is atomic: on error no balance changed.
type Ledger interface {
	Transfer(ctx context.Context, t Transfer) error
}

// IsRetryable reports whether a transfer error may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, context.DeadlineExceeded)
}
