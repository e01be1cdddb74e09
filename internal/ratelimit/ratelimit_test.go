package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("Failed to connect to test Redis: %v", err)
	}

	t.Cleanup(func() {
		redisClient.Close()
		mr.Close()
	})
	return redisClient
}

func TestTokenBucket_Allow(t *testing.T) {
	bucket := NewTokenBucket(setupTestRedis(t), "uploads", 5, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, remaining, err := bucket.Allow(ctx, "creator")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
		if remaining != int64(4-i) {
			t.Fatalf("Expected %d remaining tokens, got %d", 4-i, remaining)
		}
	}

	allowed, remaining, err := bucket.Allow(ctx, "creator")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("Expected request to be denied after limit reached")
	}
	if remaining != 0 {
		t.Fatalf("Expected 0 remaining tokens, got %d", remaining)
	}

	// another user has its own bucket
	allowed, _, err = bucket.Allow(ctx, "other-creator")
	if err != nil || !allowed {
		t.Fatalf("Expected other user to be allowed, got allowed=%v err=%v", allowed, err)
	}
}

func TestTokenBucket_GetRemaining(t *testing.T) {
	bucket := NewTokenBucket(setupTestRedis(t), "writes", 10, 10)
	ctx := context.Background()

	remaining, err := bucket.GetRemaining(ctx, "creator")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 10 {
		t.Fatalf("Expected 10 remaining tokens, got %d", remaining)
	}

	for i := 0; i < 3; i++ {
		bucket.Allow(ctx, "creator")
	}

	remaining, err = bucket.GetRemaining(ctx, "creator")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 7 {
		t.Fatalf("Expected 7 remaining tokens, got %d", remaining)
	}
}

func TestTokenBucket_Reset(t *testing.T) {
	bucket := NewTokenBucket(setupTestRedis(t), "uploads", 5, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		bucket.Allow(ctx, "creator")
	}

	if err := bucket.Reset(ctx, "creator"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	remaining, err := bucket.GetRemaining(ctx, "creator")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("Expected 5 remaining tokens after reset, got %d", remaining)
	}
}
