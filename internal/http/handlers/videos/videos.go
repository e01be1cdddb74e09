package videos

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/princekumarofficial/video-service/internal/http/handlers"
	"github.com/princekumarofficial/video-service/internal/http/middleware"
	videoService "github.com/princekumarofficial/video-service/internal/services/videos"
	"github.com/princekumarofficial/video-service/internal/types"
	"github.com/princekumarofficial/video-service/internal/utils/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Uploader interface {
	Begin(ctx context.Context, ownerID string) (*types.UploadSession, error)
}

type Studio interface {
	UpdateMetadata(ctx context.Context, videoID, ownerID string, req types.VideoUpdateRequest) (*types.Video, error)
	Get(ctx context.Context, videoID, viewerID string) (*types.Video, error)
	List(ctx context.Context, query types.ListVideosQuery) (*types.VideoPage, error)
}

type Remover interface {
	Remove(ctx context.Context, videoID, ownerID string) error
}

type Revalidator interface {
	Revalidate(ctx context.Context, videoID, ownerID string) (*types.Video, error)
}

// CreateUpload starts a direct upload
// @Summary Start a video upload
// @Description Creates a video in the preparing state and returns a one-time URL the client uploads the file to
// @Tags studio
// @Produce json
// @Success 201 {object} types.UploadSession "Upload session created"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 429 {object} response.Response "Rate limit exceeded"
// @Failure 502 {object} response.Response "Transcoder unavailable"
// @Security BearerAuth
// @Router /studio/videos [post]
func CreateUpload(uploader Uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := handlers.RequireUser(w, r)
		if !ok {
			return
		}

		session, err := uploader.Begin(r.Context(), userID)
		if err != nil {
			handlers.WriteServiceError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Upload session created", session))
	}
}

// ListVideos returns public videos, newest first
// @Summary List public videos
// @Tags videos
// @Produce json
// @Param limit query int false "Page size (1-100)"
// @Param cursor query string false "Cursor from the previous page"
// @Param category_id query string false "Category filter"
// @Success 200 {object} types.VideoPage "Videos"
// @Failure 400 {object} response.Response "Bad request"
// @Router /videos [get]
func ListVideos(studio Studio) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := parseListQuery(r)
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, err)
			return
		}
		query.PublicOnly = true
		query.CategoryID = r.URL.Query().Get("category_id")
		if !response.Validate(w, query) {
			return
		}

		page, err := studio.List(r.Context(), query)
		if err != nil {
			handlers.WriteServiceError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Videos fetched successfully", page))
	}
}

// ListStudioVideos returns the caller's own videos in every state
// @Summary List my videos
// @Tags studio
// @Produce json
// @Param limit query int false "Page size (1-100)"
// @Param cursor query string false "Cursor from the previous page"
// @Success 200 {object} types.VideoPage "Videos"
// @Failure 401 {object} response.Response "Unauthorized"
// @Security BearerAuth
// @Router /studio/videos [get]
func ListStudioVideos(studio Studio) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := handlers.RequireUser(w, r)
		if !ok {
			return
		}

		query, err := parseListQuery(r)
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, err)
			return
		}
		query.OwnerID = userID

		page, err := studio.List(r.Context(), query)
		if err != nil {
			handlers.WriteServiceError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Videos fetched successfully", page))
	}
}

// GetVideo returns one video
// @Summary Get a video
// @Description Private videos are only visible to their owner
// @Tags videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} types.VideoResponse "Video"
// @Failure 404 {object} response.Response "Not found"
// @Router /videos/{id} [get]
func GetVideo(studio Studio) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, _ := middleware.GetUserIDFromContext(r.Context())

		video, err := studio.Get(r.Context(), r.PathValue("id"), viewerID)
		if err != nil {
			handlers.WriteServiceError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Video fetched successfully", video.Response()))
	}
}

// UpdateVideo edits title, description, category and visibility
// @Summary Update video details
// @Tags studio
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param video body types.VideoUpdateRequest true "New details"
// @Success 200 {object} types.VideoResponse "Updated video"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 403 {object} response.Response "Not the owner"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /studio/videos/{id} [patch]
func UpdateVideo(studio Studio) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := handlers.RequireUser(w, r)
		if !ok {
			return
		}

		var req types.VideoUpdateRequest
		if !response.DecodeAndValidate(w, r, &req) {
			return
		}

		video, err := studio.UpdateMetadata(r.Context(), r.PathValue("id"), userID, req)
		if err != nil {
			handlers.WriteServiceError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Video updated successfully", video.Response()))
	}
}

// DeleteVideo removes a video and its files
// @Summary Delete a video
// @Tags studio
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} response.Response "Deleted"
// @Failure 403 {object} response.Response "Not the owner"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /studio/videos/{id} [delete]
func DeleteVideo(remover Remover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := handlers.RequireUser(w, r)
		if !ok {
			return
		}

		if err := remover.Remove(r.Context(), r.PathValue("id"), userID); err != nil {
			handlers.WriteServiceError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Video deleted successfully", nil))
	}
}

// RevalidateVideo re-reads the asset state from the transcoder
// @Summary Refresh processing state
// @Description Recovers a video whose lifecycle events were lost by asking the transcoder for the current asset state
// @Tags studio
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} types.VideoResponse "Refreshed video"
// @Failure 400 {object} response.Response "Asset not created yet"
// @Failure 403 {object} response.Response "Not the owner"
// @Failure 502 {object} response.Response "Transcoder unavailable"
// @Security BearerAuth
// @Router /studio/videos/{id}/revalidate [post]
func RevalidateVideo(revalidator Revalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := handlers.RequireUser(w, r)
		if !ok {
			return
		}

		video, err := revalidator.Revalidate(r.Context(), r.PathValue("id"), userID)
		if err != nil {
			handlers.WriteServiceError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Video revalidated", video.Response()))
	}
}

func parseListQuery(r *http.Request) (types.ListVideosQuery, error) {
	query := types.ListVideosQuery{Limit: defaultPageSize}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageSize {
			return query, errors.New("limit must be between 1 and 100")
		}
		query.Limit = limit
	}

	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor, err := videoService.DecodeCursor(raw)
		if err != nil {
			return query, err
		}
		query.Cursor = cursor
	}
	return query, nil
}
