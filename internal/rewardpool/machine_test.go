package rewardpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakepool-custody/internal/accounts"
	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/storage"
	"stakepool-custody/internal/storage/memory"
)

func TestTransition(t *testing.T) {
	unlocked := domain.RewardSubPool{Index: 1, ForfeitableBalance: 100}
	locked := domain.RewardSubPool{Index: 1, IsLocked: true, ForfeitableBalance: 100}

	tests := []struct {
		name        string
		sub         domain.RewardSubPool
		action      domain.Action
		amount      uint64
		wantLocked  bool
		wantBalance uint64
		wantErr     error
	}{
		{"penalty locks and debits", unlocked, domain.ActionPenalty, 40, true, 60, nil},
		{"penalty full balance", unlocked, domain.ActionPenalty, 100, true, 0, nil},
		{"penalty on locked pool", locked, domain.ActionPenalty, 1, true, 99, nil},
		{"forfeit locks and debits", unlocked, domain.ActionForfeitToVault, 25, true, 75, nil},
		{"release unlocks", locked, domain.ActionRelease, 0, false, 100, nil},
		{"release on unlocked pool", unlocked, domain.ActionRelease, 0, false, 100, nil},
		{"over balance", unlocked, domain.ActionPenalty, 101, false, 100, ErrInsufficientForfeitable},
		{"forfeit over balance", unlocked, domain.ActionForfeitToVault, 101, false, 100, ErrInsufficientForfeitable},
		{"unknown action", unlocked, domain.Action("LOCKED"), 0, false, 100, ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.sub
			next, err := Transition(tt.sub, tt.action, tt.amount)
			assert.Equal(t, before, tt.sub)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.sub, next)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLocked, next.IsLocked)
			assert.Equal(t, tt.wantBalance, next.ForfeitableBalance)
			assert.Equal(t, tt.sub.Index, next.Index)
		})
	}
}

func TestTransition_NeverUnderflows(t *testing.T) {
	sub := domain.RewardSubPool{ForfeitableBalance: 0}
	_, err := Transition(sub, domain.ActionPenalty, ^uint64(0))
	assert.ErrorIs(t, err, ErrInsufficientForfeitable)
}

func TestMachine_ApplyRestore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPoolStore()
	require.NoError(t, store.Insert(ctx, &domain.Pool{
		Identity:    "pool",
		RewardPools: []domain.RewardSubPool{{Index: 0}, {Index: 1, ForfeitableBalance: 100}},
	}))
	model := accounts.NewModel(store)
	m := NewMachine(model)

	snapshot, err := model.RewardPool(ctx, "pool", 1)
	require.NoError(t, err)

	next, err := Transition(snapshot, domain.ActionPenalty, 40)
	require.NoError(t, err)
	require.NoError(t, m.Apply(ctx, "pool", snapshot, next))

	got, err := model.RewardPool(ctx, "pool", 1)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	require.NoError(t, m.Restore(ctx, "pool", next, snapshot))
	got, err = model.RewardPool(ctx, "pool", 1)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)
}

func TestMachine_ApplyFromStaleState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPoolStore()
	require.NoError(t, store.Insert(ctx, &domain.Pool{
		Identity:    "pool",
		RewardPools: []domain.RewardSubPool{{Index: 0, ForfeitableBalance: 100}},
	}))
	model := accounts.NewModel(store)
	m := NewMachine(model)

	stale := domain.RewardSubPool{Index: 0, ForfeitableBalance: 90}
	next, err := Transition(stale, domain.ActionPenalty, 40)
	require.NoError(t, err)

	err = m.Apply(ctx, "pool", stale, next)
	assert.ErrorIs(t, err, storage.ErrConflict)

	got, err := model.RewardPool(ctx, "pool", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got.ForfeitableBalance)
	assert.False(t, got.IsLocked)
}

func TestMachine_RestoreUnknownPool(t *testing.T) {
	m := NewMachine(accounts.NewModel(memory.NewPoolStore()))
	err := m.Restore(context.Background(), "missing", domain.RewardSubPool{}, domain.RewardSubPool{})
	assert.Error(t, err)
}
