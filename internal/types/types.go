package types

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// VideoStatus is the processing state of a video's transcoded asset.
type VideoStatus string

const (
	StatusPreparing  VideoStatus = "preparing"
	StatusProcessing VideoStatus = "processing"
	StatusReady      VideoStatus = "ready"
	StatusErrored    VideoStatus = "errored"
)

// DerivativeAsset is a file mirrored into owned storage. URL and Key always travel together;
// a nil *DerivativeAsset means neither is set.
type DerivativeAsset struct {
	URL string `json:"url"`
	Key string `json:"-"`
}

// Video is the asset reference for one upload.
type Video struct {
	ID              string
	OwnerID         string
	UploadToken     string
	ProviderAssetID string
	PlaybackID      string
	Status          VideoStatus
	DurationMillis  int64
	Thumbnail       *DerivativeAsset
	Preview         *DerivativeAsset
	Title           string
	Description     string
	CategoryID      string
	Visibility      Visibility
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OwnedKeys returns the storage keys this video is responsible for deleting.
func (v *Video) OwnedKeys() []string {
	var keys []string
	if v.Thumbnail != nil && v.Thumbnail.Key != "" {
		keys = append(keys, v.Thumbnail.Key)
	}
	if v.Preview != nil && v.Preview.Key != "" {
		keys = append(keys, v.Preview.Key)
	}
	return keys
}

// VideoResponse is the public shape of a video. Upload tokens and deletion keys never leave the service.
type VideoResponse struct {
	ID             string      `json:"id"`
	OwnerID        string      `json:"owner_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	CategoryID     string      `json:"category_id,omitempty"`
	Visibility     Visibility  `json:"visibility"`
	Status         VideoStatus `json:"status"`
	PlaybackID     string      `json:"playback_id,omitempty"`
	DurationMillis int64       `json:"duration_millis"`
	ThumbnailURL   string      `json:"thumbnail_url,omitempty"`
	PreviewURL     string      `json:"preview_url,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (v *Video) Response() VideoResponse {
	resp := VideoResponse{
		ID:             v.ID,
		OwnerID:        v.OwnerID,
		Title:          v.Title,
		Description:    v.Description,
		CategoryID:     v.CategoryID,
		Visibility:     v.Visibility,
		Status:         v.Status,
		PlaybackID:     v.PlaybackID,
		DurationMillis: v.DurationMillis,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
	if v.Thumbnail != nil {
		resp.ThumbnailURL = v.Thumbnail.URL
	}
	if v.Preview != nil {
		resp.PreviewURL = v.Preview.URL
	}
	return resp
}

// UploadSession is returned to a creator who starts an upload. The client PUTs the file to UploadURL directly.
type UploadSession struct {
	VideoID   string `json:"video_id"`
	UploadURL string `json:"upload_url"`
}

type VideoUpdateRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=100"`
	Description string     `json:"description" validate:"max=5000"`
	CategoryID  string     `json:"category_id" validate:"omitempty,uuid"`
	Visibility  Visibility `json:"visibility" validate:"required,oneof=public private"`
}

// Cursor is the keyset position of the last item of a page, ordered by (updated_at, id) descending.
type Cursor struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
}

type ListVideosQuery struct {
	CategoryID string `validate:"omitempty,uuid"`
	OwnerID    string
	PublicOnly bool
	Limit      int `validate:"min=1,max=100"`
	Cursor     *Cursor
}

type VideoPage struct {
	Items      []VideoResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}
