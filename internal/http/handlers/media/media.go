package media

import (
	"context"
	"net/http"

	"github.com/princekumarofficial/video-service/internal/http/handlers"
	mediaService "github.com/princekumarofficial/video-service/internal/services/media"
	"github.com/princekumarofficial/video-service/internal/types"
	mediaTypes "github.com/princekumarofficial/video-service/internal/types/media"
	"github.com/princekumarofficial/video-service/internal/utils/response"
)

// ThumbnailEditor is the part of the studio that manages thumbnails.
type ThumbnailEditor interface {
	RestoreThumbnail(ctx context.Context, videoID, ownerID string) (*types.Video, error)
	ThumbnailUploadURL(ctx context.Context, videoID, ownerID, contentType string) (*mediaTypes.ThumbnailUploadInfo, error)
	ConfirmThumbnail(ctx context.Context, videoID, ownerID, objectKey, keyPrefix string) (*types.Video, error)
}

type MediaHandlers struct {
	editor ThumbnailEditor
}

func NewMediaHandlers(editor ThumbnailEditor) *MediaHandlers {
	return &MediaHandlers{editor: editor}
}

// GenerateUploadURL generates a presigned URL for a custom thumbnail
// @Summary Generate thumbnail upload URL
// @Description Returns a presigned PUT URL for a custom thumbnail. Confirm the upload afterwards.
// @Tags thumbnails
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param request body media.ThumbnailUploadRequest true "Upload URL request"
// @Success 200 {object} media.ThumbnailUploadInfo "Upload URL generated successfully"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 403 {object} response.Response "Not the owner"
// @Security BearerAuth
// @Router /studio/videos/{id}/thumbnail/upload-url [post]
func (h *MediaHandlers) GenerateUploadURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := handlers.RequireUser(w, r)
		if !ok {
			return
		}

		var req mediaTypes.ThumbnailUploadRequest
		if !response.DecodeAndValidate(w, r, &req) {
			return
		}

		info, err := h.editor.ThumbnailUploadURL(r.Context(), r.PathValue("id"), userID, req.ContentType)
		if err != nil {
			handlers.WriteServiceError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Upload URL generated successfully", info))
	}
}

// ConfirmUpload switches the video to an uploaded custom thumbnail
// @Summary Confirm a custom thumbnail
// @Tags thumbnails
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param request body media.ConfirmThumbnailRequest true "Uploaded object"
// @Success 200 {object} types.VideoResponse "Updated video"
// @Failure 400 {object} response.Response "Object missing or invalid"
// @Failure 403 {object} response.Response "Not the owner"
// @Security BearerAuth
// @Router /studio/videos/{id}/thumbnail/confirm [post]
func (h *MediaHandlers) ConfirmUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := handlers.RequireUser(w, r)
		if !ok {
			return
		}

		var req mediaTypes.ConfirmThumbnailRequest
		if !response.DecodeAndValidate(w, r, &req) {
			return
		}

		videoID := r.PathValue("id")
		video, err := h.editor.ConfirmThumbnail(r.Context(), videoID, userID, req.ObjectKey, mediaService.ThumbnailKeyPrefix(videoID))
		if err != nil {
			handlers.WriteServiceError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Thumbnail updated", video.Response()))
	}
}

// RestoreThumbnail goes back to the transcoder's default thumbnail
// @Summary Restore default thumbnail
// @Tags thumbnails
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} types.VideoResponse "Updated video"
// @Failure 400 {object} response.Response "Video not processed yet"
// @Failure 403 {object} response.Response "Not the owner"
// @Failure 502 {object} response.Response "Image service unavailable"
// @Security BearerAuth
// @Router /studio/videos/{id}/thumbnail/restore [post]
func (h *MediaHandlers) RestoreThumbnail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := handlers.RequireUser(w, r)
		if !ok {
			return
		}

		video, err := h.editor.RestoreThumbnail(r.Context(), r.PathValue("id"), userID)
		if err != nil {
			handlers.WriteServiceError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Thumbnail restored", video.Response()))
	}
}
