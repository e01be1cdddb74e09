package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/princekumarofficial/video-service/internal/services/videos"
	"github.com/princekumarofficial/video-service/internal/utils/response"
)

// maxPayloadBytes caps webhook bodies. Mux payloads are a few KB.
const maxPayloadBytes = 1 << 20

// EventHandler applies a verified lifecycle event.
type EventHandler interface {
	Handle(ctx context.Context, ev videos.Event) error
}

// DeliveryLog remembers deliveries that were already handled.
type DeliveryLog interface {
	WebhookSeen(ctx context.Context, hash string) (bool, error)
	MarkWebhookSeen(ctx context.Context, hash string) error
}

type Options struct {
	Secret    string
	Tolerance time.Duration
	// Deliveries is optional. Without it every delivery is handled.
	Deliveries DeliveryLog
	Logger     *slog.Logger
	Now        func() time.Time
}

type Handler struct {
	events     EventHandler
	secret     string
	tolerance  time.Duration
	deliveries DeliveryLog
	logger     *slog.Logger
	now        func() time.Time
}

// New builds the webhook endpoint. An empty secret is refused so an unconfigured deployment never
// accepts unauthenticated events.
func New(events EventHandler, opts Options) (*Handler, error) {
	if opts.Secret == "" {
		return nil, errors.New("webhook secret is not configured")
	}
	h := &Handler{
		events:     events,
		secret:     opts.Secret,
		tolerance:  opts.Tolerance,
		deliveries: opts.Deliveries,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h, nil
}

// ServeHTTP receives transcoder lifecycle events
// @Summary Receive Mux asset events
// @Description Verifies the Mux-Signature header and reconciles the matching video. Non-2xx responses make Mux retry.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Mux-Signature header string true "t=<unix>,v1=<hex hmac>"
// @Success 200 {object} response.Response "Handled or ignored"
// @Failure 400 {object} response.Response "Malformed event"
// @Failure 401 {object} response.Response "Invalid signature"
// @Failure 500 {object} response.Response "Temporary failure, retry"
// @Router /webhooks/mux [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, errors.New("failed to read body"))
		return
	}
	if len(body) > maxPayloadBytes {
		response.WriteError(w, http.StatusRequestEntityTooLarge, errors.New("payload too large"))
		return
	}

	header := r.Header.Get(videos.SignatureHeader)
	if !videos.VerifySignature(body, header, h.secret, h.now(), h.tolerance) {
		h.logger.Warn("Rejected webhook with invalid signature", slog.String("remote_addr", r.RemoteAddr))
		response.WriteError(w, http.StatusUnauthorized, videos.ErrUnauthorized)
		return
	}

	ev, err := videos.ParseEvent(body)
	if errors.Is(err, videos.ErrUnsupportedEvent) {
		h.logger.Debug("Ignoring webhook", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusOK, response.RequestOK("ignored", nil))
		return
	}
	if err != nil {
		h.logger.Warn("Rejected malformed webhook", slog.String("error", err.Error()))
		response.WriteError(w, http.StatusBadRequest, err)
		return
	}

	digest := sha256.Sum256(body)
	hash := hex.EncodeToString(digest[:])
	logger := h.logger.With(slog.String("event", ev.Type()), slog.String("upload_id", ev.UploadToken()))

	if h.deliveries != nil {
		seen, err := h.deliveries.WebhookSeen(r.Context(), hash)
		if err != nil {
			logger.Warn("Delivery log unavailable, handling event", slog.String("error", err.Error()))
		} else if seen {
			logger.Info("Duplicate webhook delivery")
			response.WriteJSON(w, http.StatusOK, response.RequestOK("duplicate", nil))
			return
		}
	}

	if err := h.events.Handle(r.Context(), ev); err != nil {
		if errors.Is(err, videos.ErrBadRequest) {
			logger.Warn("Rejected webhook", slog.String("error", err.Error()))
			response.WriteError(w, http.StatusBadRequest, err)
			return
		}
		logger.Error("Failed to handle webhook", slog.String("error", err.Error()))
		response.WriteError(w, http.StatusInternalServerError, errors.New("temporary failure"))
		return
	}

	if h.deliveries != nil {
		if err := h.deliveries.MarkWebhookSeen(r.Context(), hash); err != nil {
			logger.Warn("Failed to record webhook delivery", slog.String("error", err.Error()))
		}
	}

	response.WriteJSON(w, http.StatusOK, response.RequestOK("handled", nil))
}
