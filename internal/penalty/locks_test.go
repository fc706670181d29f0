package penalty

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolLocks_SerializesSameKey(t *testing.T) {
	locks := newPoolLocks()
	unlock, err := locks.acquire(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := locks.acquire(context.Background(), "a")
	require.NoError(t, err)
	unlock2()
	assert.Equal(t, 0, locks.size())
}

func TestPoolLocks_DistinctKeysIndependent(t *testing.T) {
	locks := newPoolLocks()
	unlockA, err := locks.acquire(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locks.acquire(ctx, "b")
	require.NoError(t, err)
	unlockB()
	assert.Equal(t, 1, locks.size())
}
