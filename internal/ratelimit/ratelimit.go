package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// takeScript refills the bucket for the elapsed time and takes one token when available.
// It returns {allowed, remaining}.
var takeScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])
	local take = tonumber(ARGV[5])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local tokens_to_add = math.floor(((now - last_refill) / window) * refill_rate)
	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
		last_refill = now
	end

	local allowed = 0
	if take == 1 and tokens > 0 then
		tokens = tokens - 1
		allowed = 1
	end

	if take == 1 then
		redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
		redis.call('EXPIRE', key, window * 2)
	end
	return {allowed, tokens}
`)

// TokenBucket is a per-user token bucket kept in Redis
type TokenBucket struct {
	redis    *redis.Client
	action   string
	capacity int64
	refill   int64 // tokens added per window
	window   time.Duration
}

// NewTokenBucket creates a limiter for one action with the given burst capacity and per-minute refill.
func NewTokenBucket(redisClient *redis.Client, action string, capacity, refillPerMinute int64) *TokenBucket {
	return &TokenBucket{
		redis:    redisClient,
		action:   action,
		capacity: capacity,
		refill:   refillPerMinute,
		window:   time.Minute,
	}
}

func (tb *TokenBucket) Limit() int64 { return tb.capacity }

func (tb *TokenBucket) Window() time.Duration { return tb.window }

func (tb *TokenBucket) key(userID string) string {
	return fmt.Sprintf("rate_limit:%s:%s", userID, tb.action)
}

func (tb *TokenBucket) run(ctx context.Context, userID string, take int) (bool, int64, error) {
	result, err := takeScript.Run(ctx, tb.redis, []string{tb.key(userID)},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), time.Now().Unix(), take).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected result from rate limit script: %v", result)
	}
	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	return allowed == 1, remaining, nil
}

// Allow takes a token for userID. It reports whether the action may proceed and how many tokens remain.
func (tb *TokenBucket) Allow(ctx context.Context, userID string) (bool, int64, error) {
	return tb.run(ctx, userID, 1)
}

// GetRemaining returns the tokens currently available to userID without taking one.
func (tb *TokenBucket) GetRemaining(ctx context.Context, userID string) (int64, error) {
	_, remaining, err := tb.run(ctx, userID, 0)
	return remaining, err
}

// Reset clears the bucket of userID
func (tb *TokenBucket) Reset(ctx context.Context, userID string) error {
	return tb.redis.Del(ctx, tb.key(userID)).Err()
}
