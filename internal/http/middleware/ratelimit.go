package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/video-service/internal/config"
	"github.com/princekumarofficial/video-service/internal/ratelimit"
	"github.com/princekumarofficial/video-service/internal/utils/response"
)

// Rate limited actions
const (
	ActionUploads = "uploads"
	ActionWrites  = "writes"
)

type RateLimitConfig struct {
	limiters map[string]*ratelimit.TokenBucket
}

func NewRateLimitConfig(redisClient *redis.Client, cfg config.RateLimit) *RateLimitConfig {
	return &RateLimitConfig{
		limiters: map[string]*ratelimit.TokenBucket{
			ActionUploads: ratelimit.NewTokenBucket(redisClient, ActionUploads, cfg.UploadsPerMinute, cfg.UploadsPerMinute),
			ActionWrites:  ratelimit.NewTokenBucket(redisClient, ActionWrites, cfg.WritesPerMinute, cfg.WritesPerMinute),
		},
	}
}

// RateLimitMiddleware limits an authenticated action per user. It must run after AuthMiddleware.
func (rlc *RateLimitConfig) RateLimitMiddleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				response.WriteError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
				return
			}

			limiter, exists := rlc.limiters[action]
			if !exists {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, err := limiter.Allow(r.Context(), userID)
			if err != nil {
				slog.Error("Rate limit check failed", slog.String("action", action), slog.String("error", err.Error()))
				response.WriteError(w, http.StatusServiceUnavailable, errors.New("rate limiter unavailable"))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limiter.Limit(), 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(limiter.Window().Seconds())))

			if !allowed {
				response.WriteError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitedHandler wraps a handler with rate limiting for a specific action
func (rlc *RateLimitConfig) RateLimitedHandler(action string, handler http.HandlerFunc) http.Handler {
	return rlc.RateLimitMiddleware(action)(handler)
}
