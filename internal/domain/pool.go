package domain

// Pool is the custody record binding a vault, a mint and a fixed set of reward sub-pools.
// Corresponds to pools + reward_pools tables in PostgreSQL.
type Pool struct {
	Identity    string          // base58 pool address, seed material for the derived authority
	Vault       string          // custodial token account, immutable after creation
	Mint        string          // token mint held by Vault, immutable after creation
	Admin       string          // identity permitted to invoke administrative actions
	RewardPools []RewardSubPool // fixed length, set at creation
	CreatedAt   int64           // record creation timestamp (ms)
}

// RewardSubPool is one weighting bucket inside a pool.
type RewardSubPool struct {
	Index              uint32 // position in Pool.RewardPools
	IsLocked           bool   // accrual uses max weight when locked
	ForfeitableBalance uint64 // upper bound on tokens that may be penalized out
}

// Len returns the number of reward sub-pools.
func (p *Pool) Len() int {
	return len(p.RewardPools)
}

// SubPool returns the reward sub-pool at index.
// The second return value is false when index is out of range.
func (p *Pool) SubPool(index uint64) (RewardSubPool, bool) {
	if index >= uint64(len(p.RewardPools)) {
		return RewardSubPool{}, false
	}
	return p.RewardPools[index], true
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	c := *p
	c.RewardPools = make([]RewardSubPool, len(p.RewardPools))
	copy(c.RewardPools, p.RewardPools)
	return &c
}

// Validate checks structural invariants of a pool record.
func (p *Pool) Validate() error {
	for _, addr := range []string{p.Identity, p.Vault, p.Mint, p.Admin} {
		if err := ValidateAddress(addr); err != nil {
			return err
		}
	}
	if len(p.RewardPools) == 0 {
		return ErrNoRewardPools
	}
	for i, rp := range p.RewardPools {
		if rp.Index != uint32(i) {
			return ErrRewardPoolIndex
		}
	}
	return nil
}
