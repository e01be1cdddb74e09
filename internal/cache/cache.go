package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/video-service/internal/storage"
	"github.com/princekumarofficial/video-service/internal/types"
)

// CacheService wraps storage with Redis caching of video rows. Every write through it drops the
// cached row, so readers never see state older than the last committed write.
type CacheService struct {
	storage storage.Storage
	redis   *redis.Client
}

func NewCacheService(storage storage.Storage, redisClient *redis.Client) *CacheService {
	return &CacheService{
		storage: storage,
		redis:   redisClient,
	}
}

// Cache key patterns
const (
	VideoKey        = "video:%s"        // video:videoID
	WebhookDelivery = "webhook:seen:%s" // webhook:seen:bodyHash
)

const (
	VideoCacheDuration   = 5 * time.Minute
	WebhookSeenRetention = 24 * time.Hour
)

// cachedVideo keeps the storage keys that types.Video hides from JSON.
type cachedVideo struct {
	types.Video
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
	PreviewKey   string `json:"preview_key,omitempty"`
}

func encodeVideo(v *types.Video) ([]byte, error) {
	c := cachedVideo{Video: *v}
	if v.Thumbnail != nil {
		c.ThumbnailKey = v.Thumbnail.Key
	}
	if v.Preview != nil {
		c.PreviewKey = v.Preview.Key
	}
	return json.Marshal(c)
}

func decodeVideo(data []byte) (*types.Video, error) {
	var c cachedVideo
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	v := c.Video
	if v.Thumbnail != nil {
		v.Thumbnail.Key = c.ThumbnailKey
	}
	if v.Preview != nil {
		v.Preview.Key = c.PreviewKey
	}
	return &v, nil
}

// CacheVideo stores a video row.
func (c *CacheService) CacheVideo(ctx context.Context, video *types.Video) {
	data, err := encodeVideo(video)
	if err != nil {
		return
	}
	c.redis.Set(ctx, fmt.Sprintf(VideoKey, video.ID), data, VideoCacheDuration)
}

// InvalidateVideo clears the cached row of a video.
func (c *CacheService) InvalidateVideo(ctx context.Context, videoID string) {
	if err := c.redis.Del(ctx, fmt.Sprintf(VideoKey, videoID)).Err(); err != nil {
		slog.Warn("Failed to invalidate video cache", slog.String("video_id", videoID), slog.String("error", err.Error()))
	}
}

// GetCachedVideo returns a cached video or fetches it from the database
func (c *CacheService) GetCachedVideo(ctx context.Context, videoID string) (*types.Video, error) {
	key := fmt.Sprintf(VideoKey, videoID)

	cached, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		if video, err := decodeVideo(cached); err == nil {
			return video, nil
		}
	}

	video, err := c.storage.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	c.CacheVideo(ctx, video)
	return video, nil
}

// MarkWebhookSeen remembers a processed webhook delivery by its body hash.
func (c *CacheService) MarkWebhookSeen(ctx context.Context, hash string) error {
	return c.redis.Set(ctx, fmt.Sprintf(WebhookDelivery, hash), 1, WebhookSeenRetention).Err()
}

// WebhookSeen reports whether a delivery with this body hash was already processed.
func (c *CacheService) WebhookSeen(ctx context.Context, hash string) (bool, error) {
	n, err := c.redis.Exists(ctx, fmt.Sprintf(WebhookDelivery, hash)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Methods below implement storage.Storage.

func (c *CacheService) CreateUser(ctx context.Context, name, email, password string) (string, error) {
	return c.storage.CreateUser(ctx, name, email, password)
}

func (c *CacheService) GetUserByEmail(ctx context.Context, email string) (string, string, error) {
	return c.storage.GetUserByEmail(ctx, email)
}

func (c *CacheService) CreateVideo(ctx context.Context, ownerID, uploadToken string) (*types.Video, error) {
	return c.storage.CreateVideo(ctx, ownerID, uploadToken)
}

func (c *CacheService) GetVideo(ctx context.Context, id string) (*types.Video, error) {
	return c.GetCachedVideo(ctx, id)
}

// GetVideoByUploadToken always reads through. The reconciler decides transitions from this row and
// must not act on a stale copy.
func (c *CacheService) GetVideoByUploadToken(ctx context.Context, uploadToken string) (*types.Video, error) {
	return c.storage.GetVideoByUploadToken(ctx, uploadToken)
}

func (c *CacheService) ListVideos(ctx context.Context, query types.ListVideosQuery) ([]types.Video, error) {
	return c.storage.ListVideos(ctx, query)
}

func (c *CacheService) UpdateVideoMetadata(ctx context.Context, id, ownerID string, req types.VideoUpdateRequest) (*types.Video, error) {
	video, err := c.storage.UpdateVideoMetadata(ctx, id, ownerID, req)
	if err != nil {
		return nil, err
	}
	c.InvalidateVideo(ctx, id)
	return video, nil
}

func (c *CacheService) UpdateVideoByUploadToken(ctx context.Context, uploadToken string, update storage.VideoUpdate) (*types.Video, error) {
	video, err := c.storage.UpdateVideoByUploadToken(ctx, uploadToken, update)
	if err != nil {
		return nil, err
	}
	c.InvalidateVideo(ctx, video.ID)
	return video, nil
}

func (c *CacheService) UpdateVideo(ctx context.Context, id string, update storage.VideoUpdate) (*types.Video, error) {
	video, err := c.storage.UpdateVideo(ctx, id, update)
	if err != nil {
		return nil, err
	}
	c.InvalidateVideo(ctx, id)
	return video, nil
}

func (c *CacheService) DeleteVideo(ctx context.Context, id string) error {
	err := c.storage.DeleteVideo(ctx, id)
	c.InvalidateVideo(ctx, id)
	return err
}

func (c *CacheService) DeleteVideoByUploadToken(ctx context.Context, uploadToken string) error {
	video, lookupErr := c.storage.GetVideoByUploadToken(ctx, uploadToken)
	err := c.storage.DeleteVideoByUploadToken(ctx, uploadToken)
	if lookupErr == nil {
		c.InvalidateVideo(ctx, video.ID)
	}
	return err
}

func (c *CacheService) ListStaleUploads(ctx context.Context, createdBefore time.Time, limit int) ([]types.Video, error) {
	return c.storage.ListStaleUploads(ctx, createdBefore, limit)
}

func (c *CacheService) IsObjectKeyReferenced(ctx context.Context, key string) (bool, error) {
	return c.storage.IsObjectKeyReferenced(ctx, key)
}
