package events

import (
	"time"

	"github.com/princekumarofficial/video-service/internal/types"
)

// WebSocketHub interface for the WebSocket hub
type WebSocketHub interface {
	BroadcastToUser(userID string, event *types.Event)
	IsUserConnected(userID string) bool
}

// EventPublisher pushes video lifecycle changes to the owner's open studio connections.
type EventPublisher struct {
	hub WebSocketHub
	now func() time.Time
}

func NewEventPublisher(hub WebSocketHub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
		now: time.Now,
	}
}

// VideoStatusChanged notifies the owner that a video changed state or got new derivatives.
func (p *EventPublisher) VideoStatusChanged(video *types.Video) {
	if !p.hub.IsUserConnected(video.OwnerID) {
		return
	}

	data := &types.VideoStatusChangedEvent{
		VideoID:    video.ID,
		Status:     video.Status,
		PlaybackID: video.PlaybackID,
		ChangedAt:  p.now().UTC().Format(time.RFC3339),
	}
	if video.Thumbnail != nil {
		data.ThumbnailURL = video.Thumbnail.URL
	}

	p.hub.BroadcastToUser(video.OwnerID, types.NewEvent(types.EventVideoStatusChanged, data))
}

// VideoRemoved notifies the owner that a video is gone.
func (p *EventPublisher) VideoRemoved(ownerID, videoID string) {
	if !p.hub.IsUserConnected(ownerID) {
		return
	}

	data := &types.VideoRemovedEvent{
		VideoID:   videoID,
		RemovedAt: p.now().UTC().Format(time.RFC3339),
	}
	p.hub.BroadcastToUser(ownerID, types.NewEvent(types.EventVideoRemoved, data))
}
