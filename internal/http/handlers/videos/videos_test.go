package videos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/video-service/internal/http/middleware"
	videoService "github.com/princekumarofficial/video-service/internal/services/videos"
	"github.com/princekumarofficial/video-service/internal/types"
)

type stubStudio struct {
	video     *types.Video
	err       error
	lastQuery types.ListVideosQuery
}

func (s *stubStudio) UpdateMetadata(_ context.Context, _, _ string, req types.VideoUpdateRequest) (*types.Video, error) {
	if s.err != nil {
		return nil, s.err
	}
	v := *s.video
	v.Title = req.Title
	return &v, nil
}

func (s *stubStudio) Get(_ context.Context, _, _ string) (*types.Video, error) {
	return s.video, s.err
}

func (s *stubStudio) List(_ context.Context, q types.ListVideosQuery) (*types.VideoPage, error) {
	s.lastQuery = q
	return &types.VideoPage{}, s.err
}

type stubUploader struct{ err error }

func (u stubUploader) Begin(context.Context, string) (*types.UploadSession, error) {
	if u.err != nil {
		return nil, u.err
	}
	return &types.UploadSession{VideoID: "v1", UploadURL: "https://upload.test"}, nil
}

func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, userID))
}

func TestCreateUpload(t *testing.T) {
	rec := httptest.NewRecorder()
	CreateUpload(stubUploader{})(rec, httptest.NewRequest(http.MethodPost, "/studio/videos", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	CreateUpload(stubUploader{})(rec, asUser(httptest.NewRequest(http.MethodPost, "/studio/videos", nil), "u1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"upload_url":"https://upload.test"`)

	rec = httptest.NewRecorder()
	down := stubUploader{err: errors.Join(videoService.ErrUpstreamUnavailable, errors.New("dial tcp 10.0.0.1:443"))}
	CreateUpload(down)(rec, asUser(httptest.NewRequest(http.MethodPost, "/studio/videos", nil), "u1"))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestGetVideo_HidesSecrets(t *testing.T) {
	studio := &stubStudio{video: &types.Video{
		ID: "v1", UploadToken: "secret-token", Status: types.StatusReady, Visibility: types.VisibilityPublic,
		Thumbnail: &types.DerivativeAsset{URL: "https://cdn.test/t.jpg", Key: "videos/derivatives/t.jpg"},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}}
	mux := http.NewServeMux()
	mux.Handle("GET /videos/{id}", GetVideo(studio))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos/v1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "https://cdn.test/t.jpg")
	require.NotContains(t, rec.Body.String(), "secret-token")
	require.NotContains(t, rec.Body.String(), "videos/derivatives/t.jpg")

	studio.err = videoService.ErrNotFound
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos/v1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateVideo_ErrorMapping(t *testing.T) {
	studio := &stubStudio{video: &types.Video{ID: "v1"}}
	mux := http.NewServeMux()
	mux.Handle("PATCH /studio/videos/{id}", UpdateVideo(studio))
	body := `{"title":"Launch","visibility":"public"}`

	send := func(body string) int {
		rec := httptest.NewRecorder()
		req := asUser(httptest.NewRequest(http.MethodPatch, "/studio/videos/v1", strings.NewReader(body)), "u1")
		mux.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send(body))
	require.Equal(t, http.StatusBadRequest, send(`{"title":"","visibility":"public"}`))
	require.Equal(t, http.StatusBadRequest, send(`{"title":"x","visibility":"friends"}`))

	studio.err = videoService.ErrForbidden
	require.Equal(t, http.StatusForbidden, send(body))
}

func TestListVideos_Query(t *testing.T) {
	studio := &stubStudio{}
	list := ListVideos(studio)

	rec := httptest.NewRecorder()
	list(rec, httptest.NewRequest(http.MethodGet, "/videos?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 5, studio.lastQuery.Limit)
	require.True(t, studio.lastQuery.PublicOnly)

	cursor := videoService.EncodeCursor(types.Cursor{UpdatedAt: time.Unix(1_700_000_000, 0).UTC(), ID: "v9"})
	rec = httptest.NewRecorder()
	list(rec, httptest.NewRequest(http.MethodGet, "/videos?cursor="+cursor, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, defaultPageSize, studio.lastQuery.Limit)
	require.Equal(t, "v9", studio.lastQuery.Cursor.ID)

	for _, q := range []string{"limit=0", "limit=101", "limit=abc", "cursor=%21%21", "category_id=not-a-uuid"} {
		rec = httptest.NewRecorder()
		list(rec, httptest.NewRequest(http.MethodGet, "/videos?"+q, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}
