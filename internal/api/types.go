package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"stakepool-custody/internal/domain"
)

// penaltyBody is the inbound request. The pool identity comes from the path.
// Numbers are decoded as json.Number so that negative and oversized values
// reach the validator and are rejected in check order instead of failing the
// decode.
type penaltyBody struct {
	Vault       string      `json:"vault"`
	Mint        string      `json:"mint"`
	Caller      string      `json:"caller"`
	PoolIndex   json.Number `json:"pool_index"`
	Amount      json.Number `json:"amount"`
	Destination string      `json:"destination"`
	Action      string      `json:"action"`
}

// checkComplete rejects bodies with absent or empty fields.
func (b penaltyBody) checkComplete() error {
	missing := make([]string, 0)
	for name, v := range map[string]string{
		"vault":       b.Vault,
		"mint":        b.Mint,
		"caller":      b.Caller,
		"pool_index":  b.PoolIndex.String(),
		"amount":      b.Amount.String(),
		"destination": b.Destination,
		"action":      b.Action,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return badRequest(fmt.Errorf("missing fields: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// signingMessage is SigningMessage over the numbers exactly as sent.
func (b penaltyBody) signingMessage(pool string) []byte {
	return signingMessage(pool, b.Vault, b.Mint, b.Caller,
		b.PoolIndex.String(), b.Amount.String(), b.Destination, strings.ToUpper(b.Action))
}

func (b penaltyBody) toRequest(pool string) domain.PenaltyRequest {
	index, indexErr := parseUnsigned(b.PoolIndex)
	amount, amountErr := parseUnsigned(b.Amount)
	return domain.PenaltyRequest{
		PoolIdentity:  pool,
		Vault:         b.Vault,
		Mint:          b.Mint,
		Caller:        b.Caller,
		PoolIndex:     index,
		Amount:        amount,
		Destination:   b.Destination,
		Action:        domain.Action(strings.ToUpper(b.Action)),
		IndexInvalid:  indexErr != nil,
		AmountInvalid: amountErr != nil,
	}
}

var errNegative = errors.New("negative value")

func parseUnsigned(n json.Number) (uint64, error) {
	s := n.String()
	if strings.HasPrefix(s, "-") {
		return 0, errNegative
	}
	return strconv.ParseUint(s, 10, 64)
}

type receiptResponse struct {
	ReceiptID        string `json:"receipt_id"`
	PoolIdentity     string `json:"pool_identity"`
	PoolIndex        uint64 `json:"pool_index"`
	Action           string `json:"action"`
	Amount           uint64 `json:"amount"`
	Destination      string `json:"destination"`
	NewLockState     bool   `json:"new_lock_state"`
	ForfeitableAfter uint64 `json:"forfeitable_after"`
	ExecutedAt       int64  `json:"executed_at"`
}

func newReceiptResponse(r *domain.TransferReceipt) receiptResponse {
	return receiptResponse{
		ReceiptID:        r.ReceiptID,
		PoolIdentity:     r.PoolIdentity,
		PoolIndex:        r.PoolIndex,
		Action:           string(r.Action),
		Amount:           r.Amount,
		Destination:      r.Destination,
		NewLockState:     r.NewLockState,
		ForfeitableAfter: r.ForfeitableAfter,
		ExecutedAt:       r.ExecutedAt,
	}
}

type rewardPoolResponse struct {
	Index              uint32 `json:"index"`
	IsLocked           bool   `json:"is_locked"`
	ForfeitableBalance uint64 `json:"forfeitable_balance"`
}

// poolResponse is the public view of a pool. The derived authority is never part of it.
type poolResponse struct {
	Identity    string               `json:"identity"`
	Vault       string               `json:"vault"`
	Mint        string               `json:"mint"`
	Admin       string               `json:"admin"`
	RewardPools []rewardPoolResponse `json:"reward_pools"`
	CreatedAt   int64                `json:"created_at"`
}

func newPoolResponse(p *domain.Pool) poolResponse {
	resp := poolResponse{
		Identity:    p.Identity,
		Vault:       p.Vault,
		Mint:        p.Mint,
		Admin:       p.Admin,
		RewardPools: make([]rewardPoolResponse, len(p.RewardPools)),
		CreatedAt:   p.CreatedAt,
	}
	for i, rp := range p.RewardPools {
		resp.RewardPools[i] = rewardPoolResponse{
			Index:              rp.Index,
			IsLocked:           rp.IsLocked,
			ForfeitableBalance: rp.ForfeitableBalance,
		}
	}
	return resp
}
