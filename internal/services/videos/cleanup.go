package videos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/princekumarofficial/video-service/internal/storage"
	"github.com/princekumarofficial/video-service/internal/types"
)

// Cleanup removes a video together with the files it owns. File deletion is best-effort and runs first;
// the row is deleted regardless of its outcome.
type Cleanup struct {
	store    storage.Storage
	mirror   *Mirror
	notifier Notifier
	logger   *slog.Logger
}

func NewCleanup(store storage.Storage, mirror *Mirror, notifier Notifier, logger *slog.Logger) *Cleanup {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleanup{store: store, mirror: mirror, notifier: notifier, logger: logger}
}

// Remove deletes a video on behalf of its owner. Nothing is touched when ownerID does not own it.
func (c *Cleanup) Remove(ctx context.Context, videoID, ownerID string) error {
	video, err := c.store.GetVideo(ctx, videoID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load video %s: %w", videoID, err)
	}
	if video.OwnerID != ownerID {
		return ErrForbidden
	}

	c.mirror.Release(ctx, video.OwnedKeys()...)

	err = c.store.DeleteVideo(ctx, videoID)
	if errors.Is(err, storage.ErrNotFound) {
		// a concurrent delete won
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete video %s: %w", videoID, err)
	}

	c.removed(video)
	return nil
}

// RemoveByToken deletes the video for an upload token. A missing video is success.
func (c *Cleanup) RemoveByToken(ctx context.Context, uploadToken string) error {
	video, err := c.store.GetVideoByUploadToken(ctx, uploadToken)
	if errors.Is(err, storage.ErrNotFound) {
		c.logger.Info("No video for deleted upload, nothing to clean up", slog.String("upload_id", uploadToken))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load video for upload %s: %w", uploadToken, err)
	}

	c.mirror.Release(ctx, video.OwnedKeys()...)

	err = c.store.DeleteVideoByUploadToken(ctx, uploadToken)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete video for upload %s: %w", uploadToken, err)
	}

	c.removed(video)
	return nil
}

func (c *Cleanup) removed(video *types.Video) {
	c.logger.Info("Deleted video", slog.String("video_id", video.ID), slog.String("upload_id", video.UploadToken))
	c.notifier.VideoRemoved(video.OwnerID, video.ID)
}
