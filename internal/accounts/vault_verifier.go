package accounts

import (
	"context"
	"errors"
	"fmt"

	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/solana"
)

var (
	// ErrVaultNotFound is returned when the vault account does not exist on chain.
	ErrVaultNotFound = errors.New("vault account not found on chain")

	// ErrVaultNotCustodied is returned when the vault is not owned by the pool's derived authority.
	ErrVaultNotCustodied = errors.New("vault is not owned by the pool authority")
)

// TokenAccountFetcher loads SPL token accounts.
type TokenAccountFetcher interface {
	GetTokenAccount(ctx context.Context, address string) (*solana.TokenAccount, error)
}

// CustodyChecker reports whether address is the derived authority of a pool.
type CustodyChecker interface {
	Custodies(identity, address string) (bool, error)
}

// VaultVerifier checks the on-chain custody of a pool vault before the pool is served.
type VaultVerifier struct {
	rpc     TokenAccountFetcher
	custody CustodyChecker
}

// NewVaultVerifier creates a new VaultVerifier.
func NewVaultVerifier(rpc TokenAccountFetcher, custody CustodyChecker) *VaultVerifier {
	return &VaultVerifier{rpc: rpc, custody: custody}
}

// Verify confirms the vault holds the pool mint and is owned by the derived authority.
func (v *VaultVerifier) Verify(ctx context.Context, p *domain.Pool) error {
	acct, err := v.rpc.GetTokenAccount(ctx, p.Vault)
	if err != nil {
		return fmt.Errorf("fetch vault %s: %w", p.Vault, err)
	}
	if acct == nil {
		return ErrVaultNotFound
	}
	if acct.Mint != p.Mint {
		return ErrMintMismatch
	}

	owned, err := v.custody.Custodies(p.Identity, acct.Owner)
	if err != nil {
		return fmt.Errorf("derive authority: %w", err)
	}
	if !owned {
		return ErrVaultNotCustodied
	}
	return nil
}
