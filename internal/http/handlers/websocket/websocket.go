package websocket

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/princekumarofficial/video-service/internal/utils/jwt"
	"github.com/princekumarofficial/video-service/internal/utils/response"
	wsClient "github.com/princekumarofficial/video-service/internal/websocket"
)

func newUpgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" || allowedOrigin == "*" {
				return true
			}
			return strings.EqualFold(r.Header.Get("Origin"), allowedOrigin)
		},
	}
}

// WebSocketHandler streams video status events to the authenticated owner
// @Summary Subscribe to video status events
// @Description Upgrades to a WebSocket that receives video.status_changed and video.removed events for the caller's videos
// @Tags realtime
// @Param token query string true "JWT access token"
// @Failure 401 {object} response.Response "Unauthorized"
// @Router /ws [get]
func WebSocketHandler(hub *wsClient.Hub, jwtSecret, allowedOrigin string) http.HandlerFunc {
	upgrader := newUpgrader(allowedOrigin)

	return func(w http.ResponseWriter, r *http.Request) {
		// browsers cannot set headers on the upgrade request
		token := r.URL.Query().Get("token")
		if token == "" {
			response.WriteError(w, http.StatusUnauthorized, errors.New("token required"))
			return
		}

		userID, err := jwt.ExtractUserIDFromToken(token, jwtSecret)
		if err != nil {
			slog.Warn("WebSocket connection attempted with invalid token", slog.String("error", err.Error()))
			response.WriteError(w, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("Failed to upgrade WebSocket connection", slog.String("error", err.Error()))
			return
		}

		client := wsClient.NewClient(conn, userID, hub)
		if !hub.RegisterClient(client) {
			conn.Close()
			return
		}
		client.Start()
	}
}
