package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coastalkit/nestor/internal/adapters/redis"
	"github.com/coastalkit/nestor/pkg/domain"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*miniredis.Miniredis, *redis.Locker) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	locker := redis.NewLocker(client, "test:")
	locker.Poll = 5 * time.Millisecond
	return mr, locker
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, locker := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "/data/cases/sub-01", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:/data/cases/sub-01"), "lock key should be set")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:/data/cases/sub-01"), "lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	_, locker := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "case", 5*time.Second)
	require.NoError(t, err)

	// Second holder gives up when its context expires.
	short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "case", 5*time.Second)
	assert.ErrorIs(t, err, domain.ErrCaseLocked)

	// After release the second holder succeeds.
	require.NoError(t, unlock(ctx))
	unlock2, err := locker.Lock(ctx, "case", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_UnlockOnlyReleasesOwnLock(t *testing.T) {
	mr, locker := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "case", time.Second)
	require.NoError(t, err)

	// Simulate TTL expiry plus reacquisition by another run.
	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "case", time.Second)
	require.NoError(t, err)

	// The stale holder's unlock must not delete the new lock.
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("test:lock:case"), "new holder's lock survives stale unlock")

	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("test:lock:case"))
}
