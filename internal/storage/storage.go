package storage

import (
	"context"
	"errors"
	"time"

	"github.com/princekumarofficial/video-service/internal/types"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrDuplicateUpload = errors.New("upload token already used")
)

// VideoUpdate is a target-state write. Nil fields are left untouched. PlaybackID only applies while
// the stored playback id is still unset.
type VideoUpdate struct {
	ProviderAssetID *string
	PlaybackID      *string
	Status          *types.VideoStatus
	DurationMillis  *int64
	Thumbnail       *types.DerivativeAsset
	Preview         *types.DerivativeAsset
}

// IsEmpty reports whether the update would change nothing but updated_at.
func (u VideoUpdate) IsEmpty() bool {
	return u.ProviderAssetID == nil && u.PlaybackID == nil && u.Status == nil &&
		u.DurationMillis == nil && u.Thumbnail == nil && u.Preview == nil
}

type Storage interface {
	CreateUser(ctx context.Context, name, email, password string) (string, error)
	GetUserByEmail(ctx context.Context, email string) (string, string, error)

	CreateVideo(ctx context.Context, ownerID, uploadToken string) (*types.Video, error)
	GetVideo(ctx context.Context, id string) (*types.Video, error)
	GetVideoByUploadToken(ctx context.Context, uploadToken string) (*types.Video, error)
	// ListVideos returns at most query.Limit+1 rows so callers can tell whether another page exists.
	ListVideos(ctx context.Context, query types.ListVideosQuery) ([]types.Video, error)
	UpdateVideoMetadata(ctx context.Context, id, ownerID string, req types.VideoUpdateRequest) (*types.Video, error)
	UpdateVideoByUploadToken(ctx context.Context, uploadToken string, update VideoUpdate) (*types.Video, error)
	UpdateVideo(ctx context.Context, id string, update VideoUpdate) (*types.Video, error)
	DeleteVideo(ctx context.Context, id string) error
	DeleteVideoByUploadToken(ctx context.Context, uploadToken string) error

	ListStaleUploads(ctx context.Context, createdBefore time.Time, limit int) ([]types.Video, error)
	IsObjectKeyReferenced(ctx context.Context, key string) (bool, error)
}
