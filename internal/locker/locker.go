package locker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrTimeout is returned when the lock is still held by someone else after the wait deadline.
var ErrTimeout = errors.New("lock wait timed out")

// releaseScript deletes the key only while it still holds our token, so an expired lock taken over by
// another worker is never released by us.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker is a per-key mutex shared across processes through Redis SET NX.
type RedisLocker struct {
	redis *redis.Client
	// Wait bounds how long Acquire polls for a held lock.
	Wait  time.Duration
	Retry time.Duration
}

func NewRedisLocker(redisClient *redis.Client) *RedisLocker {
	return &RedisLocker{
		redis: redisClient,
		Wait:  30 * time.Second,
		Retry: 100 * time.Millisecond,
	}
}

// Acquire blocks until key is free, ctx is done or Wait elapses. The lock expires on its own after ttl.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	key = "lock:" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.Wait)

	for {
		ok, err := l.redis.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, ErrTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Retry):
		}
	}

	release := func() {
		if err := releaseScript.Run(context.Background(), l.redis, []string{key}, token).Err(); err != nil {
			slog.Warn("Failed to release lock", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return release, nil
}
