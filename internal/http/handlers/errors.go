package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/princekumarofficial/video-service/internal/http/middleware"
	"github.com/princekumarofficial/video-service/internal/services/videos"
	"github.com/princekumarofficial/video-service/internal/utils/response"
)

var (
	errInternal    = errors.New("something went wrong, please try again")
	errUnavailable = errors.New("video service is temporarily unavailable, please try again")
)

// WriteServiceError maps pipeline errors to HTTP responses. Collaborator details never reach the client.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, videos.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, videos.ErrNotFound)
	case errors.Is(err, videos.ErrForbidden):
		response.WriteError(w, http.StatusForbidden, videos.ErrForbidden)
	case errors.Is(err, videos.ErrUnauthorized):
		response.WriteError(w, http.StatusUnauthorized, videos.ErrUnauthorized)
	case errors.Is(err, videos.ErrBadRequest):
		response.WriteError(w, http.StatusBadRequest, err)
	case errors.Is(err, videos.ErrUpstreamUnavailable):
		slog.Warn("Upstream unavailable", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		response.WriteError(w, http.StatusBadGateway, errUnavailable)
	default:
		slog.Error("Request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		response.WriteError(w, http.StatusInternalServerError, errInternal)
	}
}

// RequireUser returns the authenticated caller, writing 401 when there is none.
func RequireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		response.WriteError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return "", false
	}
	return userID, true
}
