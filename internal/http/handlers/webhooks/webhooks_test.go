package webhooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/video-service/internal/services/videos"
	"github.com/princekumarofficial/video-service/internal/storage"
	"github.com/princekumarofficial/video-service/internal/types"
	"github.com/princekumarofficial/video-service/internal/types/media"
)

const secret = "whsec_test"

var (
	now    = time.Unix(1_700_000_000, 0)
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

type recordingHandler struct {
	events []videos.Event
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, ev videos.Event) error {
	h.events = append(h.events, ev)
	return h.err
}

type memoryDeliveries struct {
	seen map[string]bool
	err  error
}

func (d *memoryDeliveries) WebhookSeen(_ context.Context, hash string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.seen[hash], nil
}

func (d *memoryDeliveries) MarkWebhookSeen(_ context.Context, hash string) error {
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	d.seen[hash] = true
	return nil
}

func newHandler(t *testing.T, events EventHandler, deliveries DeliveryLog) *Handler {
	t.Helper()
	h, err := New(events, Options{
		Secret:     secret,
		Tolerance:  5 * time.Minute,
		Deliveries: deliveries,
		Logger:     logger,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	return h
}

func deliver(h http.Handler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mux", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(videos.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func signed(body string) string {
	return videos.SignPayload([]byte(body), secret, now)
}

const readyBody = `{"type":"video.asset.ready","data":{"id":"a1","upload_id":"up-1","duration":12.345,"playback_ids":[{"id":"PB1"}]}}`

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(&recordingHandler{}, Options{})
	require.Error(t, err)
}

func TestWebhook_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		signature  string
		handlerErr error
		wantStatus int
		wantEvents int
	}{
		{name: "handled", body: readyBody, signature: signed(readyBody), wantStatus: http.StatusOK, wantEvents: 1},
		{name: "missing signature", body: readyBody, wantStatus: http.StatusUnauthorized},
		{name: "bad signature", body: readyBody, signature: videos.SignPayload([]byte(readyBody), "wrong", now), wantStatus: http.StatusUnauthorized},
		{name: "stale signature", body: readyBody, signature: videos.SignPayload([]byte(readyBody), secret, now.Add(-time.Hour)), wantStatus: http.StatusUnauthorized},
		{
			name:       "unsupported type",
			body:       `{"type":"video.upload.created","data":{"id":"up-1"}}`,
			signature:  signed(`{"type":"video.upload.created","data":{"id":"up-1"}}`),
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing upload id",
			body:       `{"type":"video.asset.created","data":{"id":"a1"}}`,
			signature:  signed(`{"type":"video.asset.created","data":{"id":"a1"}}`),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "ready without playback id",
			body:       `{"type":"video.asset.ready","data":{"id":"a1","upload_id":"up-1"}}`,
			signature:  signed(`{"type":"video.asset.ready","data":{"id":"a1","upload_id":"up-1"}}`),
			wantStatus: http.StatusBadRequest,
		},
		{name: "upstream down", body: readyBody, signature: signed(readyBody), handlerErr: videos.ErrUpstreamUnavailable, wantStatus: http.StatusInternalServerError, wantEvents: 1},
		{name: "store failure", body: readyBody, signature: signed(readyBody), handlerErr: errors.New("connection reset"), wantStatus: http.StatusInternalServerError, wantEvents: 1},
		{name: "rejected transition", body: readyBody, signature: signed(readyBody), handlerErr: videos.ErrBadRequest, wantStatus: http.StatusBadRequest, wantEvents: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &recordingHandler{err: tt.handlerErr}
			rec := deliver(newHandler(t, events, nil), tt.body, tt.signature)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			require.Len(t, events.events, tt.wantEvents)
		})
	}
}

func TestWebhook_PassesParsedEvent(t *testing.T) {
	events := &recordingHandler{}
	rec := deliver(newHandler(t, events, nil), readyBody, signed(readyBody))
	require.Equal(t, http.StatusOK, rec.Code)

	ready, ok := events.events[0].(videos.ReadyEvent)
	require.True(t, ok)
	require.Equal(t, "PB1", ready.PlaybackID)
	require.Equal(t, int64(12345), ready.DurationMillis())
}

func TestWebhook_ReplayIsDeduplicated(t *testing.T) {
	events := &recordingHandler{}
	deliveries := &memoryDeliveries{}
	h := newHandler(t, events, deliveries)

	require.Equal(t, http.StatusOK, deliver(h, readyBody, signed(readyBody)).Code)
	require.Equal(t, http.StatusOK, deliver(h, readyBody, signed(readyBody)).Code)
	require.Len(t, events.events, 1)
}

func TestWebhook_FailedDeliveryIsRetried(t *testing.T) {
	events := &recordingHandler{err: videos.ErrUpstreamUnavailable}
	deliveries := &memoryDeliveries{}
	h := newHandler(t, events, deliveries)

	require.Equal(t, http.StatusInternalServerError, deliver(h, readyBody, signed(readyBody)).Code)
	events.err = nil
	require.Equal(t, http.StatusOK, deliver(h, readyBody, signed(readyBody)).Code)
	require.Len(t, events.events, 2)
}

func TestWebhook_DeliveryLogDown(t *testing.T) {
	events := &recordingHandler{}
	h := newHandler(t, events, &memoryDeliveries{err: errors.New("redis down")})

	require.Equal(t, http.StatusOK, deliver(h, readyBody, signed(readyBody)).Code)
	require.Len(t, events.events, 1)
}

// emptyStore has no videos at all.
type emptyStore struct {
	storage.Storage
	writes int
}

func (s *emptyStore) GetVideoByUploadToken(context.Context, string) (*types.Video, error) {
	return nil, storage.ErrNotFound
}

func (s *emptyStore) CreateVideo(context.Context, string, string) (*types.Video, error) {
	s.writes++
	return nil, errors.New("unexpected insert")
}

func (s *emptyStore) UpdateVideoByUploadToken(context.Context, string, storage.VideoUpdate) (*types.Video, error) {
	s.writes++
	return nil, storage.ErrNotFound
}

type unusedObjects struct{}

func (unusedObjects) ImportFromURL(context.Context, string) (*media.StoredFile, error) {
	return nil, errors.New("unexpected import")
}

func (unusedObjects) Delete(context.Context, string) error {
	return errors.New("unexpected delete")
}

func TestWebhook_UnknownUploadIsSuccess(t *testing.T) {
	store := &emptyStore{}
	mirror := videos.NewMirror(unusedObjects{}, "https://image.mux.test", logger)
	cleanup := videos.NewCleanup(store, mirror, nil, logger)
	reconciler := videos.NewReconciler(store, nil, mirror, cleanup, videos.ReconcilerOptions{Logger: logger})
	h := newHandler(t, reconciler, nil)

	deleted := `{"type":"video.asset.deleted","data":{"id":"a1","upload_id":"never-created"}}`
	require.Equal(t, http.StatusOK, deliver(h, deleted, signed(deleted)).Code)

	ready := strings.ReplaceAll(readyBody, "up-1", "never-created")
	require.Equal(t, http.StatusOK, deliver(h, ready, signed(ready)).Code)

	require.Equal(t, 0, store.writes)
}
