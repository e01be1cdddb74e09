package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventVideoStatusChanged EventType = "video.status_changed"
	EventVideoRemoved       EventType = "video.removed"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// VideoStatusChangedEvent tells the owner that processing advanced.
type VideoStatusChangedEvent struct {
	VideoID      string      `json:"video_id"`
	Status       VideoStatus `json:"status"`
	PlaybackID   string      `json:"playback_id,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	ChangedAt    string      `json:"changed_at"`
}

type VideoRemovedEvent struct {
	VideoID   string `json:"video_id"`
	RemovedAt string `json:"removed_at"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
