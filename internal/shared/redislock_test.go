package shared

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestDistLockAcquireRelease(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lock := NewDistLock(client)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, ReconcileLockKey(1), time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, ReconcileLockKey(1), time.Minute)
	require.ErrorIs(t, err, ErrLockHeld)

	// A different account is independent.
	release2, err := lock.Acquire(ctx, ReconcileLockKey(2), time.Minute)
	require.NoError(t, err)
	release2()

	release()
	release3, err := lock.Acquire(ctx, ReconcileLockKey(1), time.Minute)
	require.NoError(t, err)
	release3()
}

func TestDistLockNilIsNoop(t *testing.T) {
	var lock *DistLock
	release, err := lock.Acquire(context.Background(), "anything", time.Minute)
	require.NoError(t, err)
	release()
}
