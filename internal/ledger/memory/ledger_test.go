package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakepool-custody/internal/ledger"
	"stakepool-custody/internal/signer"
)

func addr(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, 32))
}

func authorities(t *testing.T) (signer.Authority, signer.Authority) {
	t.Helper()
	s, err := signer.New(bytes.Repeat([]byte{9}, signer.MinTagLength), addr(0xAB))
	require.NoError(t, err)
	a, err := s.Derive(addr(1))
	require.NoError(t, err)
	b, err := s.Derive(addr(2))
	require.NoError(t, err)
	return a, b
}

func TestLedger_Transfer(t *testing.T) {
	owner, other := authorities(t)
	vault, dest, mint := addr(10), addr(11), addr(12)

	tests := []struct {
		name    string
		setup   func(l *Ledger)
		tr      ledger.Transfer
		wantErr error
	}{
		{
			name: "ok",
			tr:   ledger.Transfer{Source: vault, Destination: dest, Mint: mint, Amount: 40, Authority: owner},
		},
		{
			name:    "wrong authority",
			tr:      ledger.Transfer{Source: vault, Destination: dest, Mint: mint, Amount: 40, Authority: other},
			wantErr: ledger.ErrOwnerMismatch,
		},
		{
			name:    "zero authority",
			tr:      ledger.Transfer{Source: vault, Destination: dest, Mint: mint, Amount: 40},
			wantErr: ledger.ErrOwnerMismatch,
		},
		{
			name:    "wrong mint",
			tr:      ledger.Transfer{Source: vault, Destination: dest, Mint: addr(13), Amount: 40, Authority: owner},
			wantErr: ledger.ErrMintMismatch,
		},
		{
			name:    "missing destination",
			tr:      ledger.Transfer{Source: vault, Destination: addr(14), Mint: mint, Amount: 40, Authority: owner},
			wantErr: ledger.ErrAccountNotFound,
		},
		{
			name:    "insufficient funds",
			tr:      ledger.Transfer{Source: vault, Destination: dest, Mint: mint, Amount: 1001, Authority: owner},
			wantErr: ledger.ErrInsufficientFunds,
		},
		{
			name:    "zero amount",
			tr:      ledger.Transfer{Source: vault, Destination: dest, Mint: mint, Authority: owner},
			wantErr: ledger.ErrInvalidAmount,
		},
		{
			name:    "injected failure",
			setup:   func(l *Ledger) { l.FailNext(ledger.ErrTransient) },
			tr:      ledger.Transfer{Source: vault, Destination: dest, Mint: mint, Amount: 40, Authority: owner},
			wantErr: ledger.ErrTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			l.OpenAccount(vault, mint, owner, 1000)
			l.OpenAccount(dest, mint, signer.Authority{}, 0)
			if tt.setup != nil {
				tt.setup(l)
			}

			err := l.Transfer(context.Background(), tt.tr)

			vb, _ := l.Balance(vault)
			db, _ := l.Balance(dest)
			assert.Equal(t, uint64(1000), vb+db, "supply must be conserved")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, uint64(1000), vb)
				assert.Empty(t, l.Transfers())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(960), vb)
			assert.Equal(t, uint64(40), db)
			assert.Len(t, l.Transfers(), 1)
		})
	}
}

func TestLedger_FailNextConsumedOnce(t *testing.T) {
	owner, _ := authorities(t)
	l := New()
	l.OpenAccount(addr(10), addr(12), owner, 10)
	l.OpenAccount(addr(11), addr(12), signer.Authority{}, 0)
	l.FailNext(errors.New("boom"))

	tr := ledger.Transfer{Source: addr(10), Destination: addr(11), Mint: addr(12), Amount: 1, Authority: owner}
	assert.Error(t, l.Transfer(context.Background(), tr))
	assert.NoError(t, l.Transfer(context.Background(), tr))
}

func TestLedger_CancelledContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Transfer(ctx, ledger.Transfer{}), context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, ledger.IsRetryable(ledger.ErrTransient))
	assert.True(t, ledger.IsRetryable(context.DeadlineExceeded))
	assert.False(t, ledger.IsRetryable(ledger.ErrInsufficientFunds))
	assert.False(t, ledger.IsRetryable(ledger.ErrOwnerMismatch))
}
