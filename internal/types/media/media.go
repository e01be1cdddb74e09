package media

// ThumbnailUploadRequest asks for a presigned URL to upload a custom thumbnail.
type ThumbnailUploadRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

// ThumbnailUploadInfo is returned for a custom thumbnail upload.
type ThumbnailUploadInfo struct {
	ObjectKey   string `json:"object_key"`
	UploadURL   string `json:"upload_url"`
	ExpiresAt   int64  `json:"expires_at"`
	MaxFileSize int64  `json:"max_file_size"`
	ContentType string `json:"content_type"`
}

// ConfirmThumbnailRequest confirms that the client finished uploading to the presigned URL.
type ConfirmThumbnailRequest struct {
	ObjectKey string `json:"object_key" validate:"required"`
}

// StoredFile is a file held in owned object storage.
type StoredFile struct {
	Key string
	URL string
}
