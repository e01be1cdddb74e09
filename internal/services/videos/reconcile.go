package videos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/princekumarofficial/video-service/internal/storage"
	"github.com/princekumarofficial/video-service/internal/types"
)

const mirrorLockTTL = 2 * time.Minute

type TransitionKind int

const (
	TransitionIgnore TransitionKind = iota
	TransitionUpdate
	TransitionDelete
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionUpdate:
		return "update"
	case TransitionDelete:
		return "delete"
	default:
		return "ignore"
	}
}

// Transition is the outcome of applying one event to the current video.
type Transition struct {
	Kind   TransitionKind
	Update storage.VideoUpdate
	// Release lists owned keys that Update overwrites. They are deleted before the write.
	Release []string
}

// Apply computes the transition an event causes on current, which is nil when no video matches the
// event's upload token. Ready events need the mirrored derivatives for the effective playback id.
// Apply performs no I/O.
func Apply(current *types.Video, ev Event, mirrored *Mirrored) (Transition, error) {
	if current == nil {
		return Transition{Kind: TransitionIgnore}, nil
	}

	switch e := ev.(type) {
	case CreatedEvent:
		if e.AssetID == "" {
			return Transition{}, fmt.Errorf("%w: created event without asset id", ErrBadRequest)
		}
		update := storage.VideoUpdate{ProviderAssetID: stringPtr(e.AssetID)}
		// created never moves a finished video back to processing
		if current.Status == types.StatusPreparing || current.Status == types.StatusProcessing {
			update.Status = statusPtr(types.StatusProcessing)
		}
		return Transition{Kind: TransitionUpdate, Update: update}, nil

	case ReadyEvent:
		if e.AssetID == "" || e.PlaybackID == "" {
			return Transition{}, fmt.Errorf("%w: ready event without asset or playback id", ErrBadRequest)
		}
		if mirrored == nil {
			return Transition{}, fmt.Errorf("%w: ready event applied without mirrored derivatives", ErrUpstreamUnavailable)
		}
		thumbnail, preview := mirrored.Thumbnail, mirrored.Preview
		update := storage.VideoUpdate{
			ProviderAssetID: stringPtr(e.AssetID),
			Status:          statusPtr(types.StatusReady),
			DurationMillis:  int64Ptr(e.DurationMillis()),
			Thumbnail:       &thumbnail,
			Preview:         &preview,
		}
		if current.PlaybackID == "" {
			update.PlaybackID = stringPtr(e.PlaybackID)
		}
		return Transition{
			Kind:    TransitionUpdate,
			Update:  update,
			Release: replacedKeys(current, &thumbnail, &preview),
		}, nil

	case ErroredEvent:
		return Transition{Kind: TransitionUpdate, Update: storage.VideoUpdate{Status: statusPtr(types.StatusErrored)}}, nil

	case DeletedEvent:
		return Transition{Kind: TransitionDelete}, nil

	default:
		return Transition{}, fmt.Errorf("%w: unknown event %T", ErrBadRequest, ev)
	}
}

// EffectivePlaybackID is the playback id derivatives are rendered from. A video keeps the first playback
// id it was given, so re-processing mirrors against that one.
func EffectivePlaybackID(current *types.Video, ev ReadyEvent) string {
	if current != nil && current.PlaybackID != "" {
		return current.PlaybackID
	}
	return ev.PlaybackID
}

// Reconciler drives videos through their lifecycle from transcoder events. Every write is a target-state
// update keyed by upload token, so replays converge on the same row.
type Reconciler struct {
	store      storage.Storage
	transcoder TranscodingService
	mirror     *Mirror
	cleanup    *Cleanup
	locker     Locker
	notifier   Notifier
	logger     *slog.Logger
}

type ReconcilerOptions struct {
	Locker   Locker
	Notifier Notifier
	Logger   *slog.Logger
}

func NewReconciler(store storage.Storage, transcoder TranscodingService, mirror *Mirror, cleanup *Cleanup, opts ReconcilerOptions) *Reconciler {
	r := &Reconciler{
		store:      store,
		transcoder: transcoder,
		mirror:     mirror,
		cleanup:    cleanup,
		locker:     opts.Locker,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
	}
	if r.locker == nil {
		r.locker = noopLocker{}
	}
	if r.notifier == nil {
		r.notifier = noopNotifier{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Handle applies ev to the matching video. Events for unknown upload tokens are dropped without error.
func (r *Reconciler) Handle(ctx context.Context, ev Event) error {
	token := ev.UploadToken()
	logger := r.logger.With(slog.String("event", ev.Type()), slog.String("upload_id", token))

	if _, ok := ev.(DeletedEvent); ok {
		return r.cleanup.RemoveByToken(ctx, token)
	}

	if ready, ok := ev.(ReadyEvent); ok {
		release, err := r.locker.Acquire(ctx, mirrorLockKey(token), mirrorLockTTL)
		if err != nil {
			return fmt.Errorf("%w: lock upload %s: %v", ErrUpstreamUnavailable, token, err)
		}
		defer release()

		current, err := r.load(ctx, token)
		if err != nil {
			return err
		}
		if current == nil {
			logger.Info("No video matches upload, ignoring event")
			return nil
		}

		mirrored, err := r.mirror.Mirror(ctx, EffectivePlaybackID(current, ready))
		if err != nil {
			logger.Error("Failed to mirror derivatives", slog.String("error", err.Error()))
			return err
		}

		tr, err := Apply(current, ev, mirrored)
		if err != nil {
			r.mirror.Release(context.WithoutCancel(ctx), mirrored.Thumbnail.Key, mirrored.Preview.Key)
			return err
		}
		return r.commit(ctx, logger, current, tr, mirrored)
	}

	current, err := r.load(ctx, token)
	if err != nil {
		return err
	}
	if current == nil {
		logger.Info("No video matches upload, ignoring event")
		return nil
	}

	tr, err := Apply(current, ev, nil)
	if err != nil {
		return err
	}
	return r.commit(ctx, logger, current, tr, nil)
}

func (r *Reconciler) load(ctx context.Context, token string) (*types.Video, error) {
	video, err := r.store.GetVideoByUploadToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load video for upload %s: %w", token, err)
	}
	return video, nil
}

func (r *Reconciler) commit(ctx context.Context, logger *slog.Logger, current *types.Video, tr Transition, mirrored *Mirrored) error {
	switch tr.Kind {
	case TransitionIgnore:
		return nil
	case TransitionDelete:
		return r.cleanup.RemoveByToken(ctx, current.UploadToken)
	}

	r.mirror.Release(ctx, tr.Release...)

	updated, err := r.store.UpdateVideoByUploadToken(ctx, current.UploadToken, tr.Update)
	if err != nil {
		if mirrored != nil {
			r.mirror.Release(context.WithoutCancel(ctx), mirrored.Thumbnail.Key, mirrored.Preview.Key)
		}
		if errors.Is(err, storage.ErrNotFound) {
			logger.Info("Video deleted while event was processed, ignoring")
			return nil
		}
		return fmt.Errorf("update video for upload %s: %w", current.UploadToken, err)
	}

	logger.Info("Video updated",
		slog.String("video_id", updated.ID),
		slog.String("status", string(updated.Status)))

	if updated.Status != current.Status || mirrored != nil {
		r.notifier.VideoStatusChanged(updated)
	}
	return nil
}

// Revalidate pulls the asset state from the transcoder and reconciles it through the same transitions
// webhooks use. It recovers videos whose events were lost.
func (r *Reconciler) Revalidate(ctx context.Context, videoID, ownerID string) (*types.Video, error) {
	video, err := r.store.GetVideo(ctx, videoID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load video %s: %w", videoID, err)
	}
	if video.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	upload, err := r.transcoder.RetrieveUpload(ctx, video.UploadToken)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve upload: %v", ErrUpstreamUnavailable, err)
	}
	if upload.AssetID == "" {
		return nil, fmt.Errorf("%w: upload has no asset yet", ErrBadRequest)
	}

	asset, err := r.transcoder.RetrieveAsset(ctx, upload.AssetID)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve asset: %v", ErrUpstreamUnavailable, err)
	}

	var ev Event
	switch asset.Status {
	case "ready":
		ev = ReadyEvent{
			Token:           video.UploadToken,
			AssetID:         asset.ID,
			PlaybackID:      asset.FirstPlaybackID(),
			DurationSeconds: asset.Duration,
		}
	case "errored":
		ev = ErroredEvent{Token: video.UploadToken}
	default:
		ev = CreatedEvent{Token: video.UploadToken, AssetID: asset.ID}
	}

	if ready, ok := ev.(ReadyEvent); ok && ready.PlaybackID == "" {
		return nil, fmt.Errorf("%w: asset has no playback id", ErrBadRequest)
	}

	if err := r.Handle(ctx, ev); err != nil {
		return nil, err
	}

	updated, err := r.store.GetVideo(ctx, videoID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return updated, err
}

func mirrorLockKey(uploadToken string) string {
	return "video:mirror:" + uploadToken
}

func stringPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func statusPtr(s types.VideoStatus) *types.VideoStatus { return &s }
