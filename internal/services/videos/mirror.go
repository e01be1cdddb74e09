package videos

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/princekumarofficial/video-service/internal/types"
)

// Mirrored holds the owned copies of the transcoder's preview imagery for one playback id.
type Mirrored struct {
	Thumbnail types.DerivativeAsset
	Preview   types.DerivativeAsset
}

// Mirror copies derivative images rendered by the transcoder into owned storage.
type Mirror struct {
	store        ObjectStore
	imageBaseURL string
	logger       *slog.Logger
}

func NewMirror(store ObjectStore, imageBaseURL string, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		store:        store,
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		logger:       logger,
	}
}

func (m *Mirror) ThumbnailURL(playbackID string) string {
	return m.imageBaseURL + "/" + url.PathEscape(playbackID) + "/thumbnail.jpg"
}

func (m *Mirror) PreviewURL(playbackID string) string {
	return m.imageBaseURL + "/" + url.PathEscape(playbackID) + "/animated.gif"
}

// Mirror imports the thumbnail and animated preview for playbackID. Both succeed or the call fails with
// ErrUpstreamUnavailable; a file imported before its sibling failed is deleted again.
func (m *Mirror) Mirror(ctx context.Context, playbackID string) (*Mirrored, error) {
	var thumbnail, preview *types.DerivativeAsset

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		asset, err := m.importOne(gctx, m.ThumbnailURL(playbackID))
		thumbnail = asset
		return err
	})
	g.Go(func() error {
		asset, err := m.importOne(gctx, m.PreviewURL(playbackID))
		preview = asset
		return err
	})

	if err := g.Wait(); err != nil {
		var leftovers []string
		if thumbnail != nil {
			leftovers = append(leftovers, thumbnail.Key)
		}
		if preview != nil {
			leftovers = append(leftovers, preview.Key)
		}
		// ctx may already be done; cleanup gets its own lifetime.
		m.Release(context.WithoutCancel(ctx), leftovers...)
		return nil, fmt.Errorf("%w: mirror derivatives for %s: %v", ErrUpstreamUnavailable, playbackID, err)
	}

	return &Mirrored{Thumbnail: *thumbnail, Preview: *preview}, nil
}

// MirrorThumbnail imports only the still thumbnail, used when a creator restores the default image.
func (m *Mirror) MirrorThumbnail(ctx context.Context, playbackID string) (*types.DerivativeAsset, error) {
	asset, err := m.importOne(ctx, m.ThumbnailURL(playbackID))
	if err != nil {
		return nil, fmt.Errorf("%w: mirror thumbnail for %s: %v", ErrUpstreamUnavailable, playbackID, err)
	}
	return asset, nil
}

func (m *Mirror) importOne(ctx context.Context, sourceURL string) (*types.DerivativeAsset, error) {
	file, err := m.store.ImportFromURL(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if file == nil || file.Key == "" || file.URL == "" {
		return nil, fmt.Errorf("import %s returned no file", sourceURL)
	}
	return &types.DerivativeAsset{URL: file.URL, Key: file.Key}, nil
}

// Release deletes previously owned files. Failures are logged and swallowed; the asset sweeper collects
// whatever is left behind.
func (m *Mirror) Release(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := m.store.Delete(ctx, key); err != nil {
			m.logger.Warn("Failed to delete owned file", slog.String("key", key), slog.String("error", err.Error()))
			continue
		}
		m.logger.Info("Deleted owned file", slog.String("key", key))
	}
}

// replacedKeys lists the keys of current that the new pair would overwrite.
func replacedKeys(current *types.Video, thumbnail, preview *types.DerivativeAsset) []string {
	var keys []string
	if thumbnail != nil && current.Thumbnail != nil && current.Thumbnail.Key != thumbnail.Key {
		keys = append(keys, current.Thumbnail.Key)
	}
	if preview != nil && current.Preview != nil && current.Preview.Key != preview.Key {
		keys = append(keys, current.Preview.Key)
	}
	return keys
}
