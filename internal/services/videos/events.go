package videos

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Webhook event types sent by the transcoding service.
const (
	TypeAssetCreated = "video.asset.created"
	TypeAssetReady   = "video.asset.ready"
	TypeAssetErrored = "video.asset.errored"
	TypeAssetDeleted = "video.asset.deleted"
)

// ErrUnsupportedEvent marks a well-formed event this service does not act on.
var ErrUnsupportedEvent = errors.New("unsupported event type")

// Event is one of CreatedEvent, ReadyEvent, ErroredEvent or DeletedEvent. Each variant carries only
// the fields its transition needs, and constructing one through ParseEvent guarantees they are present.
type Event interface {
	Type() string
	UploadToken() string
	isEvent()
}

type CreatedEvent struct {
	Token   string
	AssetID string
}

type ReadyEvent struct {
	Token      string
	AssetID    string
	PlaybackID string
	// DurationSeconds is zero when the transcoder did not report one.
	DurationSeconds float64
}

type ErroredEvent struct {
	Token    string
	Messages []string
}

type DeletedEvent struct {
	Token string
}

func (CreatedEvent) Type() string { return TypeAssetCreated }
func (ReadyEvent) Type() string   { return TypeAssetReady }
func (ErroredEvent) Type() string { return TypeAssetErrored }
func (DeletedEvent) Type() string { return TypeAssetDeleted }

func (e CreatedEvent) UploadToken() string { return e.Token }
func (e ReadyEvent) UploadToken() string   { return e.Token }
func (e ErroredEvent) UploadToken() string { return e.Token }
func (e DeletedEvent) UploadToken() string { return e.Token }

func (CreatedEvent) isEvent() {}
func (ReadyEvent) isEvent()   {}
func (ErroredEvent) isEvent() {}
func (DeletedEvent) isEvent() {}

// DurationMillis rounds the reported duration to whole milliseconds.
func (e ReadyEvent) DurationMillis() int64 {
	if e.DurationSeconds <= 0 {
		return 0
	}
	return int64(math.Round(e.DurationSeconds * 1000))
}

type webhookPayload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Data struct {
		ID          string   `json:"id"`
		UploadID    string   `json:"upload_id"`
		Status      string   `json:"status"`
		Duration    *float64 `json:"duration"`
		PlaybackIDs []struct {
			ID     string `json:"id"`
			Policy string `json:"policy"`
		} `json:"playback_ids"`
		Errors struct {
			Type     string   `json:"type"`
			Messages []string `json:"messages"`
		} `json:"errors"`
	} `json:"data"`
}

// ParseEvent decodes a webhook body into its event variant. Malformed payloads and payloads missing a
// field their kind requires fail with ErrBadRequest; event types outside the asset lifecycle fail with
// ErrUnsupportedEvent.
func ParseEvent(body []byte) (Event, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrBadRequest, err)
	}

	switch p.Type {
	case TypeAssetCreated, TypeAssetReady, TypeAssetErrored, TypeAssetDeleted:
	case "":
		return nil, fmt.Errorf("%w: missing event type", ErrBadRequest)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, p.Type)
	}

	token := p.Data.UploadID
	if token == "" {
		return nil, fmt.Errorf("%w: no upload id found", ErrBadRequest)
	}

	switch p.Type {
	case TypeAssetCreated:
		if p.Data.ID == "" {
			return nil, fmt.Errorf("%w: no asset id found", ErrBadRequest)
		}
		return CreatedEvent{Token: token, AssetID: p.Data.ID}, nil

	case TypeAssetReady:
		if p.Data.ID == "" {
			return nil, fmt.Errorf("%w: no asset id found", ErrBadRequest)
		}
		var playbackID string
		if len(p.Data.PlaybackIDs) > 0 {
			playbackID = p.Data.PlaybackIDs[0].ID
		}
		if playbackID == "" {
			return nil, fmt.Errorf("%w: no playback id found", ErrBadRequest)
		}
		ev := ReadyEvent{Token: token, AssetID: p.Data.ID, PlaybackID: playbackID}
		if p.Data.Duration != nil {
			ev.DurationSeconds = *p.Data.Duration
		}
		return ev, nil

	case TypeAssetErrored:
		return ErroredEvent{Token: token, Messages: p.Data.Errors.Messages}, nil

	default:
		return DeletedEvent{Token: token}, nil
	}
}
