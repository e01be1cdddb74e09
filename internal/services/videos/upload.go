package videos

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/princekumarofficial/video-service/internal/services/mux"
	"github.com/princekumarofficial/video-service/internal/storage"
	"github.com/princekumarofficial/video-service/internal/types"
)

// Uploader opens upload sessions with the transcoder and records the matching video.
type Uploader struct {
	store      storage.Storage
	transcoder TranscodingService
	corsOrigin string
	logger     *slog.Logger
}

func NewUploader(store storage.Storage, transcoder TranscodingService, corsOrigin string, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{store: store, transcoder: transcoder, corsOrigin: corsOrigin, logger: logger}
}

// Begin requests a one-time upload URL and stores a preparing video keyed by the session id. The row is
// written in a single insert only after the transcoder answered.
func (u *Uploader) Begin(ctx context.Context, ownerID string) (*types.UploadSession, error) {
	upload, err := u.transcoder.CreateUpload(ctx, mux.CreateUploadParams{
		CORSOrigin:     u.corsOrigin,
		PlaybackPolicy: mux.PlaybackPolicyPublic,
	})
	if err != nil {
		u.logger.Error("Failed to create upload session", slog.String("owner_id", ownerID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: create upload: %v", ErrUpstreamUnavailable, err)
	}

	video, err := u.store.CreateVideo(ctx, ownerID, upload.ID)
	if err != nil {
		return nil, fmt.Errorf("create video for upload %s: %w", upload.ID, err)
	}

	u.logger.Info("Upload session created", slog.String("video_id", video.ID), slog.String("upload_id", upload.ID))

	return &types.UploadSession{VideoID: video.ID, UploadURL: upload.URL}, nil
}
