package videos

import (
	"context"
	"time"

	"github.com/princekumarofficial/video-service/internal/services/mux"
	"github.com/princekumarofficial/video-service/internal/types"
	"github.com/princekumarofficial/video-service/internal/types/media"
)

// TranscodingService is the hosted transcoder that owns upload sessions and assets.
type TranscodingService interface {
	CreateUpload(ctx context.Context, params mux.CreateUploadParams) (*mux.Upload, error)
	RetrieveUpload(ctx context.Context, uploadID string) (*mux.Upload, error)
	RetrieveAsset(ctx context.Context, assetID string) (*mux.Asset, error)
}

// ObjectStore is the owned file storage derivative images are mirrored into.
type ObjectStore interface {
	ImportFromURL(ctx context.Context, sourceURL string) (*media.StoredFile, error)
	Delete(ctx context.Context, key string) error
}

// ThumbnailStore adds the direct-upload path used for creator supplied thumbnails.
type ThumbnailStore interface {
	ObjectStore
	PresignThumbnailUpload(ctx context.Context, videoID, contentType string) (*media.ThumbnailUploadInfo, error)
	StatUploaded(ctx context.Context, key string) (*media.StoredFile, error)
}

// Locker serializes work for one key across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Notifier is told about state changes the owner may want to see live.
type Notifier interface {
	VideoStatusChanged(video *types.Video)
	VideoRemoved(ownerID, videoID string)
}

type noopNotifier struct{}

func (noopNotifier) VideoStatusChanged(*types.Video) {}
func (noopNotifier) VideoRemoved(string, string)     {}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}
