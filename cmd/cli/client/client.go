package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gpusizer/gpusizer/internal/api"
	"github.com/gpusizer/gpusizer/internal/sizing"
	"github.com/gpusizer/gpusizer/internal/store"
)

// Client wraps HTTP calls to the gpusizer API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the given base URL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// Recommend submits POST /api/v1/recommend.
func (c *Client) Recommend(ctx context.Context, req api.RecommendRequest) (*api.RecommendResponse, error) {
	body, _ := json.Marshal(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/recommend", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.readError(resp)
	}

	var result api.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// ListModels queries GET /api/v1/models with an optional search query.
func (c *Client) ListModels(ctx context.Context, query string, limit int) ([]store.ModelRecord, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	u := c.baseURL + "/api/v1/models"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var records []store.ModelRecord
	if err := c.doGet(ctx, u, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetModel fetches GET /api/v1/models/{id}. The server resolves unknown
// models through the hub, so this can take a moment on a cold identifier.
func (c *Client) GetModel(ctx context.Context, id string, force bool) (*sizing.ModelDescriptor, error) {
	u := c.baseURL + "/api/v1/models/" + id
	if force {
		u += "?force=true"
	}
	var m sizing.ModelDescriptor
	if err := c.doGet(ctx, u, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListDevices fetches GET /api/v1/devices.
func (c *Client) ListDevices(ctx context.Context) (*api.DeviceList, error) {
	var list api.DeviceList
	if err := c.doGet(ctx, c.baseURL+"/api/v1/devices", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ReloadDevices submits POST /api/v1/devices/reload and returns the fresh
// snapshot.
func (c *Client) ReloadDevices(ctx context.Context) (*api.DeviceList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/devices/reload", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.readError(resp)
	}
	var list api.DeviceList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &list, nil
}

func (c *Client) doGet(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.readError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) readError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
}
