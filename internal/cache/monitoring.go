package cache

import (
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/video-service/internal/utils/response"
)

// CacheStats represents cache performance statistics
type CacheStats struct {
	RedisConnected bool     `json:"redis_connected"`
	VideoKeys      int      `json:"video_keys"`
	WebhookKeys    int      `json:"webhook_keys"`
	CacheKeys      []string `json:"cache_keys_sample"`
	KeyCount       int      `json:"total_keys"`
}

func countKeys(r *http.Request, redisClient *redis.Client, pattern string) ([]string, int) {
	var (
		sample []string
		total  int
	)
	iter := redisClient.Scan(r.Context(), 0, pattern, 100).Iterator()
	for iter.Next(r.Context()) {
		total++
		if len(sample) < 10 {
			sample = append(sample, iter.Val())
		}
	}
	return sample, total
}

// GetCacheStats returns cache statistics
// @Summary Cache statistics
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response "Cache stats retrieved"
// @Failure 401 {object} response.Response "Unauthorized"
// @Security BearerAuth
// @Router /admin/cache/stats [get]
func GetCacheStats(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		stats := CacheStats{RedisConnected: true}

		if err := redisClient.Ping(ctx).Err(); err != nil {
			stats.RedisConnected = false
			response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache stats retrieved", stats))
			return
		}

		stats.CacheKeys, stats.VideoKeys = countKeys(r, redisClient, "video:*")
		_, stats.WebhookKeys = countKeys(r, redisClient, "webhook:seen:*")

		if dbSize := redisClient.DBSize(ctx); dbSize.Err() == nil {
			stats.KeyCount = int(dbSize.Val())
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache stats retrieved", stats))
	}
}

// ClearCache drops cached video rows. Locks and rate limit buckets are never touched.
// @Summary Clear cache
// @Tags admin
// @Produce json
// @Param type query string false "videos (default) or webhooks"
// @Success 200 {object} response.Response "Cache cleared"
// @Failure 401 {object} response.Response "Unauthorized"
// @Security BearerAuth
// @Router /admin/cache [delete]
func ClearCache(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var pattern string
		switch r.URL.Query().Get("type") {
		case "webhooks":
			pattern = "webhook:seen:*"
		default:
			pattern = "video:*"
		}

		var keys []string
		iter := redisClient.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		var deleted int64
		if len(keys) > 0 {
			n, err := redisClient.Del(ctx, keys...).Result()
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
				return
			}
			deleted = n
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache cleared", map[string]interface{}{
			"pattern":      pattern,
			"deleted_keys": deleted,
		}))
	}
}
