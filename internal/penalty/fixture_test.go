package penalty

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"stakepool-custody/internal/accounts"
	"stakepool-custody/internal/authz"
	"stakepool-custody/internal/domain"
	ledgermem "stakepool-custody/internal/ledger/memory"
	"stakepool-custody/internal/rewardpool"
	"stakepool-custody/internal/signer"
	"stakepool-custody/internal/storage/memory"
)

func addr(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, domain.AddressLength))
}

var (
	poolID    = addr(1)
	vault     = addr(2)
	mint      = addr(3)
	admin     = addr(4)
	userX     = addr(5)
	programID = addr(0xAB)
)

const vaultFunds = 1000

type fixture struct {
	store    *memory.PoolStore
	model    *accounts.Model
	ledger   *ledgermem.Ledger
	signer   *signer.Service
	receipts *memory.ReceiptStore
	events   *memory.PenaltyEventStore
	notifier *recordingNotifier
	logs     *test.Hook
	engine   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewPoolStore()
	require.NoError(t, store.Insert(ctx, &domain.Pool{
		Identity: poolID,
		Vault:    vault,
		Mint:     mint,
		Admin:    admin,
		RewardPools: []domain.RewardSubPool{
			{Index: 0, ForfeitableBalance: 10},
			{Index: 1, ForfeitableBalance: 100},
		},
	}))

	svc, err := signer.New(bytes.Repeat([]byte{0x5A}, signer.MinTagLength), programID)
	require.NoError(t, err)
	authority, err := svc.Derive(poolID)
	require.NoError(t, err)

	l := ledgermem.New()
	l.OpenAccount(vault, mint, authority, vaultFunds)
	l.OpenAccount(userX, mint, signer.Authority{}, 0)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	log := logrus.NewEntry(logger)

	f := &fixture{
		store:    store,
		model:    accounts.NewModel(store),
		ledger:   l,
		signer:   svc,
		receipts: memory.NewReceiptStore(),
		events:   memory.NewPenaltyEventStore(),
		notifier: &recordingNotifier{},
		logs:     hook,
	}
	clock := steppingClock(time.UnixMilli(1_700_000_000_000))
	exec := NewExecutor(f.model, rewardpool.NewMachine(f.model), svc, l,
		WithReceiptStore(f.receipts),
		WithClock(clock),
		WithLogger(log),
	)
	f.engine = NewEngine(authz.NewValidator(f.model), exec,
		WithEventStore(f.events),
		WithNotifier(f.notifier),
		WithEngineLogger(log),
	)
	return f
}

func (f *fixture) subPool(t *testing.T, index uint64) domain.RewardSubPool {
	t.Helper()
	sub, err := f.model.RewardPool(context.Background(), poolID, index)
	require.NoError(t, err)
	return sub
}

func (f *fixture) vaultBalance(t *testing.T) uint64 {
	t.Helper()
	b, ok := f.ledger.Balance(vault)
	require.True(t, ok)
	return b
}

func penaltyRequest(index, amount uint64) domain.PenaltyRequest {
	return domain.PenaltyRequest{
		PoolIdentity: poolID,
		Vault:        vault,
		Mint:         mint,
		Caller:       admin,
		PoolIndex:    index,
		Amount:       amount,
		Destination:  userX,
		Action:       domain.ActionPenalty,
	}
}

// steppingClock advances by one millisecond per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	receipts []*domain.TransferReceipt
}

func (n *recordingNotifier) Publish(r *domain.TransferReceipt) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipts = append(n.receipts, r)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.receipts)
}
