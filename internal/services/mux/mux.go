package mux

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/princekumarofficial/video-service/internal/config"
)

// ErrNotFound is returned when Mux reports 404 for an upload or asset.
var ErrNotFound = errors.New("mux: resource not found")

const (
	PlaybackPolicyPublic = "public"
)

type PlaybackID struct {
	ID     string `json:"id"`
	Policy string `json:"policy"`
}

// Upload is a direct upload session.
type Upload struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Status  string `json:"status"`
	AssetID string `json:"asset_id"`
}

type Asset struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Duration    float64      `json:"duration"`
	PlaybackIDs []PlaybackID `json:"playback_ids"`
	UploadID    string       `json:"upload_id"`
}

// FirstPlaybackID returns the first playback id, or "" when the asset has none.
func (a *Asset) FirstPlaybackID() string {
	if len(a.PlaybackIDs) == 0 {
		return ""
	}
	return a.PlaybackIDs[0].ID
}

type CreateUploadParams struct {
	CORSOrigin     string
	PlaybackPolicy string
}

type newAssetSettings struct {
	PlaybackPolicy []string `json:"playback_policy"`
}

type createUploadRequest struct {
	CORSOrigin       string           `json:"cors_origin"`
	NewAssetSettings newAssetSettings `json:"new_asset_settings"`
}

// APIError carries a non-2xx response from the Mux API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mux: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Mux video API using basic auth with an access token pair.
type Client struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	httpClient  *http.Client
}

func NewClient(cfg *config.Mux) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		tokenID:     cfg.TokenID,
		tokenSecret: cfg.TokenSecret,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// WithHTTPClient replaces the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// CreateUpload starts a direct upload session whose asset will use the given playback policy.
func (c *Client) CreateUpload(ctx context.Context, params CreateUploadParams) (*Upload, error) {
	policy := params.PlaybackPolicy
	if policy == "" {
		policy = PlaybackPolicyPublic
	}

	body := createUploadRequest{
		CORSOrigin:       params.CORSOrigin,
		NewAssetSettings: newAssetSettings{PlaybackPolicy: []string{policy}},
	}

	var upload Upload
	if err := c.do(ctx, http.MethodPost, "/video/v1/uploads", body, &upload); err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	if upload.ID == "" || upload.URL == "" {
		return nil, errors.New("create upload: response missing id or url")
	}

	return &upload, nil
}

func (c *Client) RetrieveUpload(ctx context.Context, uploadID string) (*Upload, error) {
	var upload Upload
	if err := c.do(ctx, http.MethodGet, "/video/v1/uploads/"+url.PathEscape(uploadID), nil, &upload); err != nil {
		return nil, fmt.Errorf("retrieve upload %s: %w", uploadID, err)
	}
	return &upload, nil
}

func (c *Client) RetrieveAsset(ctx context.Context, assetID string) (*Asset, error) {
	var asset Asset
	if err := c.do(ctx, http.MethodGet, "/video/v1/assets/"+url.PathEscape(assetID), nil, &asset); err != nil {
		return nil, fmt.Errorf("retrieve asset %s: %w", assetID, err)
	}
	return &asset, nil
}

// do sends a request and decodes the "data" envelope Mux wraps every response in.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.tokenID, c.tokenSecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}

	return json.Unmarshal(envelope.Data, out)
}
