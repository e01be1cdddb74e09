package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/princekumarofficial/video-service/internal/config"
	"github.com/princekumarofficial/video-service/internal/types"
)

const (
	staleBatchSize = 100
	// ObjectPrefix covers every file the service owns.
	ObjectPrefix = "videos/"
)

// Store is what the sweeper reads from the database.
type Store interface {
	ListStaleUploads(ctx context.Context, createdBefore time.Time, limit int) ([]types.Video, error)
	IsObjectKeyReferenced(ctx context.Context, key string) (bool, error)
}

// Objects lists and deletes owned files.
type Objects interface {
	ListObjects(ctx context.Context, prefix string) ([]minio.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Remover deletes a video with its files.
type Remover interface {
	RemoveByToken(ctx context.Context, uploadToken string) error
}

// Report summarizes one sweep.
type Report struct {
	StaleUploads   int
	OrphanedFiles  int
	ObjectsScanned int
}

// Sweeper collects what the request path leaves behind: uploads that were never sent and files whose
// best-effort deletion failed.
type Sweeper struct {
	store   Store
	objects Objects
	remover Remover
	cfg     config.Sweeper
	logger  *slog.Logger
	now     func() time.Time
}

func New(store Store, objects Objects, remover Remover, cfg config.Sweeper, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:   store,
		objects: objects,
		remover: remover,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Start sweeps once immediately and then on every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("Asset sweeper started", slog.String("interval", s.cfg.Interval.String()))

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Asset sweeper shutting down")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	startTime := time.Now()
	report, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("Sweep failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(startTime).Milliseconds()))
		return
	}
	s.logger.Info("Sweep completed",
		slog.Int("stale_uploads", report.StaleUploads),
		slog.Int("orphaned_files", report.OrphanedFiles),
		slog.Int("objects_scanned", report.ObjectsScanned),
		slog.Int64("duration_ms", time.Since(startTime).Milliseconds()))
}

// Sweep runs one pass. Individual deletions that fail are logged and retried on the next pass.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	var report Report

	stale, err := s.store.ListStaleUploads(ctx, s.now().Add(-s.cfg.StaleUploadAfter), staleBatchSize)
	if err != nil {
		return report, err
	}
	for _, video := range stale {
		if err := s.remover.RemoveByToken(ctx, video.UploadToken); err != nil {
			s.logger.Warn("Failed to remove stale upload", slog.String("video_id", video.ID), slog.String("error", err.Error()))
			continue
		}
		report.StaleUploads++
	}

	objects, err := s.objects.ListObjects(ctx, ObjectPrefix)
	if err != nil {
		return report, err
	}
	report.ObjectsScanned = len(objects)

	cutoff := s.now().Add(-s.cfg.OrphanGrace)
	for _, object := range objects {
		if object.LastModified.After(cutoff) {
			continue
		}
		referenced, err := s.store.IsObjectKeyReferenced(ctx, object.Key)
		if err != nil {
			return report, err
		}
		if referenced {
			continue
		}
		if err := s.objects.Delete(ctx, object.Key); err != nil {
			s.logger.Warn("Failed to delete orphaned file", slog.String("key", object.Key), slog.String("error", err.Error()))
			continue
		}
		s.logger.Info("Deleted orphaned file", slog.String("key", object.Key))
		report.OrphanedFiles++
	}

	return report, nil
}
