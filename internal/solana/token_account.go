package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// SPL token program IDs.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// tokenAccountMinLen covers mint(32) | owner(32) | amount(8).
const tokenAccountMinLen = 72

// ErrNotTokenAccount is returned when an account is not owned by an SPL token program.
var ErrNotTokenAccount = errors.New("account is not an spl token account")

// TokenAccount is a decoded SPL token account.
type TokenAccount struct {
	Address string
	Mint    string
	Owner   string // token account authority, not the owning program
	Amount  uint64
}

// ParseTokenAccount decodes base64 SPL token account data.
// Token account layout: mint(32) | owner(32) | amount(8) | ...
func ParseTokenAccount(address, data string) (*TokenAccount, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode token account data: %w", err)
	}
	if len(decoded) < tokenAccountMinLen {
		return nil, fmt.Errorf("token account data too short: %d", len(decoded))
	}

	return &TokenAccount{
		Address: address,
		Mint:    base58.Encode(decoded[0:32]),
		Owner:   base58.Encode(decoded[32:64]),
		Amount:  binary.LittleEndian.Uint64(decoded[64:72]),
	}, nil
}

// GetTokenAccount retrieves and decodes an SPL token account.
// Returns nil if account not found.
func (c *HTTPClient) GetTokenAccount(ctx context.Context, address string) (*TokenAccount, error) {
	info, err := c.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}
	if info.Owner != TokenProgramID && info.Owner != Token2022ProgramID {
		return nil, ErrNotTokenAccount
	}
	return ParseTokenAccount(address, info.Data)
}
