package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/princekumarofficial/video-service/internal/config"
	mediaTypes "github.com/princekumarofficial/video-service/internal/types/media"
)

const (
	// DerivativePrefix holds files mirrored from the transcoding service.
	DerivativePrefix = "videos/derivatives/"
	// ThumbnailPrefix holds creator-uploaded thumbnails, one folder per video.
	ThumbnailPrefix = "videos/thumbnails/"

	maxImportSize = 32 << 20
)

var (
	ErrContentTypeNotAllowed = errors.New("content type is not allowed")
	ErrImportTooLarge        = errors.New("source exceeds import limit")
)

// Service is the owned object store, backed by MinIO.
type Service struct {
	client     *minio.Client
	bucketName string
	config     *config.Media
	publicBase string
	fetcher    *http.Client
}

// NewService creates a new media service instance
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	publicBase := strings.TrimRight(cfg.MinIO.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + cfg.MinIO.BucketName
	}

	service := &Service{
		client:     client,
		bucketName: cfg.MinIO.BucketName,
		config:     &cfg.Media,
		publicBase: publicBase,
		fetcher:    &http.Client{Timeout: cfg.Media.FetchTimeout},
	}

	if err := service.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return service, nil
}

func (s *Service) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// ImportFromURL downloads sourceURL and stores it under a fresh key. The returned key is never reused.
func (s *Service) ImportFromURL(ctx context.Context, sourceURL string) (*mediaTypes.StoredFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := s.fetcher.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", sourceURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	body, size, err := boundedBody(resp.Body, resp.ContentLength, maxImportSize)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sourceURL, err)
	}

	key := DerivativePrefix + uuid.New().String() + extensionFor(sourceURL, contentType)

	_, err = s.client.PutObject(ctx, s.bucketName, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}

	return &mediaTypes.StoredFile{Key: key, URL: s.GetMediaURL(key)}, nil
}

// boundedBody returns a reader of exactly size bytes. Bodies without a declared length are buffered so an
// oversize source fails instead of being stored truncated.
func boundedBody(body io.Reader, contentLength, limit int64) (io.Reader, int64, error) {
	if contentLength > limit {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrImportTooLarge, contentLength)
	}
	if contentLength >= 0 {
		return io.LimitReader(body, contentLength), contentLength, nil
	}

	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, 0, fmt.Errorf("%w: more than %d bytes", ErrImportTooLarge, limit)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
}

// ValidateContentType checks if the content type is allowed
func (s *Service) ValidateContentType(contentType string) bool {
	for _, allowed := range s.config.AllowedMimeTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

// ThumbnailKeyPrefix is the folder custom thumbnails for videoID are uploaded into.
func ThumbnailKeyPrefix(videoID string) string {
	return ThumbnailPrefix + videoID + "/"
}

// PresignThumbnailUpload creates a presigned PUT for a custom thumbnail of videoID.
func (s *Service) PresignThumbnailUpload(ctx context.Context, videoID, contentType string) (*mediaTypes.ThumbnailUploadInfo, error) {
	if !s.ValidateContentType(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrContentTypeNotAllowed, contentType)
	}

	objectKey := ThumbnailKeyPrefix(videoID) + uuid.New().String() + extensionFor("", contentType)
	expiry := time.Duration(s.config.PresignedURLTTL) * time.Second

	presignedURL, err := s.client.PresignedPutObject(ctx, s.bucketName, objectKey, expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &mediaTypes.ThumbnailUploadInfo{
		ObjectKey:   objectKey,
		UploadURL:   presignedURL.String(),
		ExpiresAt:   time.Now().Add(expiry).Unix(),
		MaxFileSize: s.config.MaxFileSize,
		ContentType: contentType,
	}, nil
}

// StatUploaded checks that key exists and respects the size limit.
func (s *Service) StatUploaded(ctx context.Context, key string) (*mediaTypes.StoredFile, error) {
	info, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.Size > s.config.MaxFileSize {
		return nil, fmt.Errorf("object %s exceeds max size of %d bytes", key, s.config.MaxFileSize)
	}

	return &mediaTypes.StoredFile{Key: key, URL: s.GetMediaURL(key)}, nil
}

// GetMediaURL returns the public URL of an object.
func (s *Service) GetMediaURL(objectKey string) string {
	return s.publicBase + "/" + objectKey
}

// ListObjects lists objects under prefix, used by the asset sweeper.
func (s *Service) ListObjects(ctx context.Context, prefix string) ([]minio.ObjectInfo, error) {
	var objects []minio.ObjectInfo
	objectsCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectsCh {
		if object.Err != nil {
			return nil, object.Err
		}
		objects = append(objects, object)
	}

	return objects, nil
}

// extensionFor picks a file extension from the source URL path, falling back to the content type.
func extensionFor(sourceURL, contentType string) string {
	if sourceURL != "" {
		path := sourceURL
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
		if slash := strings.LastIndex(path, "/"); slash >= 0 {
			path = path[slash+1:]
		}
		if dot := strings.LastIndex(path, "."); dot >= 0 && len(path)-dot <= 5 {
			return strings.ToLower(path[dot:])
		}
	}

	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}

	extensions, err := mime.ExtensionsByType(contentType)
	if err == nil && len(extensions) > 0 {
		return extensions[0]
	}
	return ""
}
