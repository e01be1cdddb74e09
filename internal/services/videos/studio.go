package videos

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/princekumarofficial/video-service/internal/storage"
	"github.com/princekumarofficial/video-service/internal/types"
	"github.com/princekumarofficial/video-service/internal/types/media"
)

// Studio holds the creator-facing operations on a video: metadata edits, thumbnail management and reads.
type Studio struct {
	store    storage.Storage
	thumbs   ThumbnailStore
	mirror   *Mirror
	locker   Locker
	notifier Notifier
	logger   *slog.Logger
}

func NewStudio(store storage.Storage, thumbs ThumbnailStore, mirror *Mirror, opts ReconcilerOptions) *Studio {
	s := &Studio{
		store:    store,
		thumbs:   thumbs,
		mirror:   mirror,
		locker:   opts.Locker,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
	if s.locker == nil {
		s.locker = noopLocker{}
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// owned loads videoID and checks that ownerID owns it.
func (s *Studio) owned(ctx context.Context, videoID, ownerID string) (*types.Video, error) {
	video, err := s.store.GetVideo(ctx, videoID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load video %s: %w", videoID, err)
	}
	if video.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return video, nil
}

// UpdateMetadata edits the creator-controlled fields. Processing state is never touched here.
func (s *Studio) UpdateMetadata(ctx context.Context, videoID, ownerID string, req types.VideoUpdateRequest) (*types.Video, error) {
	if _, err := s.owned(ctx, videoID, ownerID); err != nil {
		return nil, err
	}

	video, err := s.store.UpdateVideoMetadata(ctx, videoID, ownerID, req)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update video %s: %w", videoID, err)
	}
	return video, nil
}

// RestoreThumbnail replaces the current thumbnail with a fresh copy of the transcoder's default one.
func (s *Studio) RestoreThumbnail(ctx context.Context, videoID, ownerID string) (*types.Video, error) {
	video, err := s.owned(ctx, videoID, ownerID)
	if err != nil {
		return nil, err
	}
	if video.PlaybackID == "" {
		return nil, fmt.Errorf("%w: video has no playback id yet", ErrBadRequest)
	}

	release, err := s.locker.Acquire(ctx, mirrorLockKey(video.UploadToken), mirrorLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: lock upload %s: %v", ErrUpstreamUnavailable, video.UploadToken, err)
	}
	defer release()

	video, err = s.reload(ctx, video)
	if err != nil {
		return nil, err
	}

	thumbnail, err := s.mirror.MirrorThumbnail(ctx, video.PlaybackID)
	if err != nil {
		return nil, err
	}

	return s.replaceThumbnail(ctx, video, thumbnail)
}

// ThumbnailUploadURL hands out a presigned URL the creator uploads a custom thumbnail to.
func (s *Studio) ThumbnailUploadURL(ctx context.Context, videoID, ownerID, contentType string) (*media.ThumbnailUploadInfo, error) {
	if _, err := s.owned(ctx, videoID, ownerID); err != nil {
		return nil, err
	}

	info, err := s.thumbs.PresignThumbnailUpload(ctx, videoID, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return info, nil
}

// ConfirmThumbnail points the video at a custom thumbnail the creator has uploaded.
func (s *Studio) ConfirmThumbnail(ctx context.Context, videoID, ownerID, objectKey, keyPrefix string) (*types.Video, error) {
	video, err := s.owned(ctx, videoID, ownerID)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(objectKey, keyPrefix) {
		return nil, ErrForbidden
	}

	release, err := s.locker.Acquire(ctx, mirrorLockKey(video.UploadToken), mirrorLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: lock upload %s: %v", ErrUpstreamUnavailable, video.UploadToken, err)
	}
	defer release()

	video, err = s.reload(ctx, video)
	if err != nil {
		return nil, err
	}

	file, err := s.thumbs.StatUploaded(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	return s.replaceThumbnail(ctx, video, &types.DerivativeAsset{URL: file.URL, Key: file.Key})
}

// reload reads the row again, bypassing any cache, once the upload lock is held. Keys to release come from
// this copy.
func (s *Studio) reload(ctx context.Context, video *types.Video) (*types.Video, error) {
	current, err := s.store.GetVideoByUploadToken(ctx, video.UploadToken)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reload video %s: %w", video.ID, err)
	}
	return current, nil
}

func (s *Studio) replaceThumbnail(ctx context.Context, video *types.Video, thumbnail *types.DerivativeAsset) (*types.Video, error) {
	s.mirror.Release(ctx, replacedKeys(video, thumbnail, nil)...)

	updated, err := s.store.UpdateVideo(ctx, video.ID, storage.VideoUpdate{Thumbnail: thumbnail})
	if err != nil {
		s.mirror.Release(context.WithoutCancel(ctx), thumbnail.Key)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update thumbnail of %s: %w", video.ID, err)
	}

	s.logger.Info("Thumbnail replaced", slog.String("video_id", video.ID))
	s.notifier.VideoStatusChanged(updated)
	return updated, nil
}

// Get returns a video visible to viewerID. Private videos are only visible to their owner.
func (s *Studio) Get(ctx context.Context, videoID, viewerID string) (*types.Video, error) {
	video, err := s.store.GetVideo(ctx, videoID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load video %s: %w", videoID, err)
	}
	if video.Visibility != types.VisibilityPublic && video.OwnerID != viewerID {
		return nil, ErrNotFound
	}
	return video, nil
}

// List returns one page ordered by (updated_at, id) descending.
func (s *Studio) List(ctx context.Context, query types.ListVideosQuery) (*types.VideoPage, error) {
	rows, err := s.store.ListVideos(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	hasMore := len(rows) > query.Limit
	if hasMore {
		rows = rows[:query.Limit]
	}

	page := &types.VideoPage{Items: make([]types.VideoResponse, 0, len(rows))}
	for i := range rows {
		page.Items = append(page.Items, rows[i].Response())
	}
	if hasMore {
		last := rows[len(rows)-1]
		page.NextCursor = EncodeCursor(types.Cursor{UpdatedAt: last.UpdatedAt, ID: last.ID})
	}
	return page, nil
}

// EncodeCursor renders a cursor as an opaque URL-safe string.
func EncodeCursor(c types.Cursor) string {
	buf, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(buf)
}

func DecodeCursor(s string) (*types.Cursor, error) {
	buf, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid cursor", ErrBadRequest)
	}
	var c types.Cursor
	if err := json.Unmarshal(buf, &c); err != nil || c.ID == "" || c.UpdatedAt.IsZero() {
		return nil, fmt.Errorf("%w: invalid cursor", ErrBadRequest)
	}
	return &c, nil
}
