package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"stakepool-custody/internal/domain"
	ledgermem "stakepool-custody/internal/ledger/memory"
	"stakepool-custody/internal/signer"
	"stakepool-custody/internal/storage"
)

// fixture describes the pools served by this process and the token accounts
// of the in-memory ledger. Pools are never created through the API.
type fixture struct {
	Pools    []poolFixture    `yaml:"pools"`
	Accounts []accountFixture `yaml:"accounts"`
}

type poolFixture struct {
	Identity     string              `yaml:"identity"`
	Vault        string              `yaml:"vault"`
	Mint         string              `yaml:"mint"`
	Admin        string              `yaml:"admin"`
	VaultBalance uint64              `yaml:"vault_balance"`
	RewardPools  []rewardPoolFixture `yaml:"reward_pools"`
}

type rewardPoolFixture struct {
	IsLocked           bool   `yaml:"is_locked"`
	ForfeitableBalance uint64 `yaml:"forfeitable_balance"`
}

// accountFixture is a non-custodial token account, typically a penalty destination.
type accountFixture struct {
	Address string `yaml:"address"`
	Mint    string `yaml:"mint"`
	Balance uint64 `yaml:"balance"`
}

func loadFixture(path string) (*fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pools file: %w", err)
	}
	defer f.Close()
	return parseFixture(f)
}

func parseFixture(r io.Reader) (*fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parse pools file: %w", err)
	}
	if len(fx.Pools) == 0 {
		return nil, errors.New("pools file declares no pools")
	}
	return &fx, nil
}

// domainPools converts and validates the declared pools.
func (fx *fixture) domainPools(createdAt int64) ([]*domain.Pool, error) {
	pools := make([]*domain.Pool, 0, len(fx.Pools))
	seen := make(map[string]bool, len(fx.Pools))
	for i, pf := range fx.Pools {
		p := &domain.Pool{
			Identity:    pf.Identity,
			Vault:       pf.Vault,
			Mint:        pf.Mint,
			Admin:       pf.Admin,
			RewardPools: make([]domain.RewardSubPool, len(pf.RewardPools)),
			CreatedAt:   createdAt,
		}
		for j, rp := range pf.RewardPools {
			p.RewardPools[j] = domain.RewardSubPool{
				Index:              uint32(j),
				IsLocked:           rp.IsLocked,
				ForfeitableBalance: rp.ForfeitableBalance,
			}
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("pool %d (%s): %w", i, pf.Identity, err)
		}
		if seen[p.Identity] || seen[p.Vault] {
			return nil, fmt.Errorf("pool %d (%s): identity or vault declared twice", i, pf.Identity)
		}
		seen[p.Identity], seen[p.Vault] = true, true
		pools = append(pools, p)
	}
	return pools, nil
}

// seedPools inserts pools that are not stored yet. Stored pools keep their
// persisted reward sub-pool state.
func seedPools(ctx context.Context, store storage.PoolStore, pools []*domain.Pool, log *logrus.Entry) error {
	for _, p := range pools {
		err := store.Insert(ctx, p)
		switch {
		case err == nil:
			log.WithField("pool", p.Identity).Info("pool seeded")
		case errors.Is(err, storage.ErrDuplicateKey):
			stored, err := store.GetByID(ctx, p.Identity)
			if err != nil {
				return fmt.Errorf("read stored pool %s: %w", p.Identity, err)
			}
			if err := matchStored(stored, p); err != nil {
				return err
			}
			log.WithField("pool", p.Identity).Debug("pool already stored")
		default:
			return fmt.Errorf("seed pool %s: %w", p.Identity, err)
		}
	}
	return nil
}

var errFixtureDrift = errors.New("fixture disagrees with stored pool")

// matchStored checks that a declared pool still describes the stored one.
// Lock state and balances are runtime state and may differ.
func matchStored(stored, declared *domain.Pool) error {
	var field string
	switch {
	case stored.Vault != declared.Vault:
		field = "vault"
	case stored.Mint != declared.Mint:
		field = "mint"
	case stored.Admin != declared.Admin:
		field = "admin"
	case stored.Len() != declared.Len():
		field = "reward_pools"
	default:
		return nil
	}
	return fmt.Errorf("%w: pool %s: %s changed", errFixtureDrift, declared.Identity, field)
}

// authorityDeriver derives the custody authority of a pool.
type authorityDeriver interface {
	Derive(identity string) (signer.Authority, error)
}

// openLedger builds the in-memory ledger. Every pool vault is owned by the
// pool's derived authority; declared accounts have no spending authority.
func openLedger(fx *fixture, pools []*domain.Pool, deriver authorityDeriver) (*ledgermem.Ledger, error) {
	l := ledgermem.New()
	for i, p := range pools {
		authority, err := deriver.Derive(p.Identity)
		if err != nil {
			return nil, fmt.Errorf("derive authority for %s: %w", p.Identity, err)
		}
		l.OpenAccount(p.Vault, p.Mint, authority, fx.Pools[i].VaultBalance)
	}
	for _, a := range fx.Accounts {
		if err := domain.ValidateAddress(a.Address); err != nil {
			return nil, fmt.Errorf("account %s: %w", a.Address, err)
		}
		l.OpenAccount(a.Address, a.Mint, signer.Authority{}, a.Balance)
	}
	return l, nil
}
