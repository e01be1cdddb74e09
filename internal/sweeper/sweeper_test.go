package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/video-service/internal/config"
	"github.com/princekumarofficial/video-service/internal/types"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	stale      []types.Video
	before     time.Time
	referenced map[string]bool
}

func (s *fakeStore) ListStaleUploads(_ context.Context, before time.Time, _ int) ([]types.Video, error) {
	s.before = before
	return s.stale, nil
}

func (s *fakeStore) IsObjectKeyReferenced(_ context.Context, key string) (bool, error) {
	return s.referenced[key], nil
}

type fakeObjects struct {
	objects   []minio.ObjectInfo
	deleted   []string
	deleteErr map[string]error
}

func (o *fakeObjects) ListObjects(context.Context, string) ([]minio.ObjectInfo, error) {
	return o.objects, nil
}

func (o *fakeObjects) Delete(_ context.Context, key string) error {
	if err := o.deleteErr[key]; err != nil {
		return err
	}
	o.deleted = append(o.deleted, key)
	return nil
}

type fakeRemover struct {
	removed []string
	fail    map[string]bool
}

func (r *fakeRemover) RemoveByToken(_ context.Context, token string) error {
	if r.fail[token] {
		return errors.New("db down")
	}
	r.removed = append(r.removed, token)
	return nil
}

func newSweeper(store Store, objects Objects, remover Remover) *Sweeper {
	s := New(store, objects, remover, config.Sweeper{
		Interval:         time.Minute,
		StaleUploadAfter: 24 * time.Hour,
		OrphanGrace:      time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return now }
	return s
}

func TestSweep_StaleUploads(t *testing.T) {
	store := &fakeStore{stale: []types.Video{{ID: "v1", UploadToken: "up-1"}, {ID: "v2", UploadToken: "up-2"}}}
	remover := &fakeRemover{fail: map[string]bool{"up-2": true}}
	s := newSweeper(store, &fakeObjects{}, remover)

	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, now.Add(-24*time.Hour), store.before)
	require.Equal(t, []string{"up-1"}, remover.removed)
	require.Equal(t, 1, report.StaleUploads)
}

func TestSweep_OrphanedFiles(t *testing.T) {
	store := &fakeStore{referenced: map[string]bool{"videos/derivatives/kept.jpg": true}}
	objects := &fakeObjects{
		objects: []minio.ObjectInfo{
			{Key: "videos/derivatives/kept.jpg", LastModified: now.Add(-48 * time.Hour)},
			{Key: "videos/derivatives/orphan.jpg", LastModified: now.Add(-2 * time.Hour)},
			{Key: "videos/derivatives/fresh.gif", LastModified: now.Add(-time.Minute)},
			{Key: "videos/thumbnails/v1/abandoned.png", LastModified: now.Add(-3 * time.Hour)},
			{Key: "videos/derivatives/stuck.jpg", LastModified: now.Add(-3 * time.Hour)},
		},
		deleteErr: map[string]error{"videos/derivatives/stuck.jpg": errors.New("denied")},
	}
	s := newSweeper(store, objects, &fakeRemover{})

	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"videos/derivatives/orphan.jpg", "videos/thumbnails/v1/abandoned.png"}, objects.deleted)
	require.Equal(t, 2, report.OrphanedFiles)
	require.Equal(t, 5, report.ObjectsScanned)
}
