package locker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestAcquireRelease(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "video:mirror:up-1", time.Minute)
	require.NoError(t, err)
	require.True(t, mr.Exists("lock:video:mirror:up-1"))

	release()
	require.False(t, mr.Exists("lock:video:mirror:up-1"))
}

func TestAcquire_HeldLockTimesOut(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLocker(client)
	l.Wait = 50 * time.Millisecond
	l.Retry = 10 * time.Millisecond
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = l.Acquire(ctx, "k", time.Minute)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLocker(client)
	l.Retry = 5 * time.Millisecond
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	second, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	second()
}

func TestRelease_DoesNotDropForeignLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	// the lock expired and someone else took it
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("lock:k", "other-owner"))

	release()
	got, err := mr.Get("lock:k")
	require.NoError(t, err)
	require.Equal(t, "other-owner", got)
}

func TestAcquire_ContextCanceled(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLocker(client)
	l.Retry = 10 * time.Millisecond

	release, err := l.Acquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k", time.Minute)
	require.Error(t, err)
}
