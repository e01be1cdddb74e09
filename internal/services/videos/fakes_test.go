package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/princekumarofficial/video-service/internal/services/mux"
	"github.com/princekumarofficial/video-service/internal/storage"
	"github.com/princekumarofficial/video-service/internal/types"
	"github.com/princekumarofficial/video-service/internal/types/media"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// callLog records side effects across fakes so tests can assert ordering.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) index(call string) int {
	for i, c := range l.all() {
		if c == call {
			return i
		}
	}
	return -1
}

func (l *callLog) count(prefix string) int {
	n := 0
	for _, c := range l.all() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeStore struct {
	mu        sync.Mutex
	log       *callLog
	seq       int
	videos    map[string]*types.Video
	updateErr error
	createErr error
	now       time.Time
}

func newFakeStore(log *callLog) *fakeStore {
	return &fakeStore{log: log, videos: map[string]*types.Video{}, now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *fakeStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func copyVideo(v *types.Video) *types.Video {
	c := *v
	if v.Thumbnail != nil {
		t := *v.Thumbnail
		c.Thumbnail = &t
	}
	if v.Preview != nil {
		p := *v.Preview
		c.Preview = &p
	}
	return &c
}

// put seeds a video directly.
func (s *fakeStore) put(v *types.Video) *types.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.Status == "" {
		v.Status = types.StatusPreparing
	}
	if v.Visibility == "" {
		v.Visibility = types.VisibilityPrivate
	}
	if v.UpdatedAt.IsZero() {
		v.CreatedAt = s.tick()
		v.UpdatedAt = v.CreatedAt
	}
	s.videos[v.ID] = copyVideo(v)
	return copyVideo(v)
}

func (s *fakeStore) byToken(token string) *types.Video {
	for _, v := range s.videos {
		if v.UploadToken == token {
			return v
		}
	}
	return nil
}

func (s *fakeStore) get(id string) *types.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok {
		return copyVideo(v)
	}
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.videos)
}

func (s *fakeStore) CreateUser(context.Context, string, string, string) (string, error) {
	return "", errors.New("not implemented")
}

func (s *fakeStore) GetUserByEmail(context.Context, string) (string, string, error) {
	return "", "", storage.ErrNotFound
}

func (s *fakeStore) CreateVideo(_ context.Context, ownerID, uploadToken string) (*types.Video, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.mu.Lock()
	if s.byToken(uploadToken) != nil {
		s.mu.Unlock()
		return nil, storage.ErrDuplicateUpload
	}
	s.seq++
	id := fmt.Sprintf("video-%d", s.seq)
	s.mu.Unlock()
	s.log.add("create-row:%s", uploadToken)
	return s.put(&types.Video{ID: id, OwnerID: ownerID, UploadToken: uploadToken}), nil
}

func (s *fakeStore) GetVideo(_ context.Context, id string) (*types.Video, error) {
	if v := s.get(id); v != nil {
		return v, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) GetVideoByUploadToken(_ context.Context, token string) (*types.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.byToken(token); v != nil {
		return copyVideo(v), nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) ListVideos(_ context.Context, q types.ListVideosQuery) ([]types.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Video
	for _, v := range s.videos {
		if q.PublicOnly && v.Visibility != types.VisibilityPublic {
			continue
		}
		if q.OwnerID != "" && v.OwnerID != q.OwnerID {
			continue
		}
		if q.Cursor != nil {
			if v.UpdatedAt.After(q.Cursor.UpdatedAt) ||
				(v.UpdatedAt.Equal(q.Cursor.UpdatedAt) && v.ID >= q.Cursor.ID) {
				continue
			}
		}
		out = append(out, *copyVideo(v))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > q.Limit+1 {
		out = out[:q.Limit+1]
	}
	return out, nil
}

func (s *fakeStore) UpdateVideoMetadata(_ context.Context, id, ownerID string, req types.VideoUpdateRequest) (*types.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok || v.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	v.Title, v.Description, v.CategoryID, v.Visibility = req.Title, req.Description, req.CategoryID, req.Visibility
	v.UpdatedAt = s.tick()
	return copyVideo(v), nil
}

func (s *fakeStore) apply(v *types.Video, u storage.VideoUpdate) {
	if u.ProviderAssetID != nil {
		v.ProviderAssetID = *u.ProviderAssetID
	}
	if u.PlaybackID != nil && v.PlaybackID == "" {
		v.PlaybackID = *u.PlaybackID
	}
	if u.Status != nil {
		v.Status = *u.Status
	}
	if u.DurationMillis != nil {
		v.DurationMillis = *u.DurationMillis
	}
	if u.Thumbnail != nil {
		t := *u.Thumbnail
		v.Thumbnail = &t
	}
	if u.Preview != nil {
		p := *u.Preview
		v.Preview = &p
	}
	v.UpdatedAt = s.tick()
}

func (s *fakeStore) UpdateVideoByUploadToken(_ context.Context, token string, u storage.VideoUpdate) (*types.Video, error) {
	s.log.add("update-row:%s", token)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.byToken(token)
	if v == nil {
		return nil, storage.ErrNotFound
	}
	s.apply(v, u)
	return copyVideo(v), nil
}

func (s *fakeStore) UpdateVideo(_ context.Context, id string, u storage.VideoUpdate) (*types.Video, error) {
	s.log.add("update-row:%s", id)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	s.apply(v, u)
	return copyVideo(v), nil
}

func (s *fakeStore) DeleteVideo(_ context.Context, id string) error {
	s.log.add("delete-row:%s", id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *fakeStore) DeleteVideoByUploadToken(_ context.Context, token string) error {
	s.log.add("delete-row:%s", token)
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.byToken(token)
	if v == nil {
		return storage.ErrNotFound
	}
	delete(s.videos, v.ID)
	return nil
}

func (s *fakeStore) ListStaleUploads(context.Context, time.Time, int) ([]types.Video, error) {
	return nil, nil
}

func (s *fakeStore) IsObjectKeyReferenced(context.Context, string) (bool, error) {
	return false, nil
}

// fakeObjects is an in-memory ObjectStore and ThumbnailStore.
type fakeObjects struct {
	mu        sync.Mutex
	log       *callLog
	seq       int
	objects   map[string]bool
	failURL   map[string]error
	deleteErr error
	uploaded  map[string]bool
}

func newFakeObjects(log *callLog) *fakeObjects {
	return &fakeObjects{log: log, objects: map[string]bool{}, failURL: map[string]error{}, uploaded: map[string]bool{}}
}

func (o *fakeObjects) ImportFromURL(_ context.Context, sourceURL string) (*media.StoredFile, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for suffix, err := range o.failURL {
		if strings.HasSuffix(sourceURL, suffix) {
			return nil, err
		}
	}
	o.seq++
	ext := ".jpg"
	if strings.HasSuffix(sourceURL, ".gif") {
		ext = ".gif"
	}
	key := fmt.Sprintf("videos/derivatives/obj-%d%s", o.seq, ext)
	o.objects[key] = true
	o.log.add("import:%s", key)
	return &media.StoredFile{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (o *fakeObjects) Delete(_ context.Context, key string) error {
	o.log.add("delete-file:%s", key)
	if o.deleteErr != nil {
		return o.deleteErr
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

func (o *fakeObjects) PresignThumbnailUpload(_ context.Context, videoID, contentType string) (*media.ThumbnailUploadInfo, error) {
	if contentType != "image/jpeg" && contentType != "image/png" {
		return nil, errors.New("content type not allowed")
	}
	key := "videos/thumbnails/" + videoID + "/custom.jpg"
	return &media.ThumbnailUploadInfo{ObjectKey: key, UploadURL: "https://upload.test/" + key, ContentType: contentType}, nil
}

func (o *fakeObjects) StatUploaded(_ context.Context, key string) (*media.StoredFile, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.uploaded[key] {
		return nil, errors.New("object not found")
	}
	o.objects[key] = true
	return &media.StoredFile{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (o *fakeObjects) has(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.objects[key]
}

func (o *fakeObjects) size() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.objects)
}

type fakeTranscoder struct {
	upload    *mux.Upload
	asset     *mux.Asset
	createErr error
	getErr    error
}

func (t *fakeTranscoder) CreateUpload(context.Context, mux.CreateUploadParams) (*mux.Upload, error) {
	if t.createErr != nil {
		return nil, t.createErr
	}
	return t.upload, nil
}

func (t *fakeTranscoder) RetrieveUpload(context.Context, string) (*mux.Upload, error) {
	if t.getErr != nil {
		return nil, t.getErr
	}
	return t.upload, nil
}

func (t *fakeTranscoder) RetrieveAsset(context.Context, string) (*mux.Asset, error) {
	if t.getErr != nil {
		return nil, t.getErr
	}
	return t.asset, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	changed []types.VideoStatus
	removed []string
}

func (n *fakeNotifier) VideoStatusChanged(v *types.Video) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, v.Status)
}

func (n *fakeNotifier) VideoRemoved(_, videoID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed = append(n.removed, videoID)
}

type failingLocker struct{}

func (failingLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, errors.New("redis unavailable")
}

// harness wires a pipeline over fakes.
type harness struct {
	log        *callLog
	store      *fakeStore
	objects    *fakeObjects
	transcoder *fakeTranscoder
	notifier   *fakeNotifier
	mirror     *Mirror
	cleanup    *Cleanup
	reconciler *Reconciler
	studio     *Studio
}

func newHarness() *harness {
	log := &callLog{}
	h := &harness{
		log:        log,
		store:      newFakeStore(log),
		objects:    newFakeObjects(log),
		transcoder: &fakeTranscoder{},
		notifier:   &fakeNotifier{},
	}
	opts := ReconcilerOptions{Notifier: h.notifier, Logger: discardLogger}
	h.mirror = NewMirror(h.objects, "https://image.mux.test", discardLogger)
	h.cleanup = NewCleanup(h.store, h.mirror, h.notifier, discardLogger)
	h.reconciler = NewReconciler(h.store, h.transcoder, h.mirror, h.cleanup, opts)
	h.studio = NewStudio(h.store, h.objects, h.mirror, opts)
	return h
}
