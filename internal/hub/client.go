// Package hub fetches model architecture documents from a Hugging Face
// style model hub.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gpusizer/gpusizer/internal/sizing"
)

// DefaultBaseURL is the public Hugging Face hub.
const DefaultBaseURL = "https://huggingface.co"

// Client fetches model metadata and config.json documents from a hub.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New creates a hub client. An empty baseURL targets the public hub; an
// empty token reads public models only.
func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// ModelInfo is the hub-side metadata for a model, separate from its
// architecture config.
type ModelInfo struct {
	ParameterCount int64
	Gated          bool
}

// modelResponse is the subset of the hub /api/models response we need.
type modelResponse struct {
	Safetensors *struct {
		Total int64 `json:"total"`
	} `json:"safetensors"`
	// Gated is false for public models, or "auto"/"manual" for gated models.
	Gated any `json:"gated"`
}

// FetchModelConfig fetches a model's metadata and its config.json in two
// parallel requests and returns the raw architecture document.
func (c *Client) FetchModelConfig(ctx context.Context, modelID string) (sizing.ArchConfig, *ModelInfo, error) {
	var (
		meta   modelResponse
		cfg    sizing.ArchConfig
		cfgErr error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url := fmt.Sprintf("%s/api/models/%s?expand[]=safetensors", c.baseURL, modelID)
		if err := c.doGet(ctx, url, &meta); err != nil {
			return fmt.Errorf("fetch model info: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		url := fmt.Sprintf("%s/%s/resolve/main/config.json", c.baseURL, modelID)
		// Kept out of the group error so a gated config fetch can be
		// upgraded using the metadata result below.
		cfgErr = c.doGet(ctx, url, &cfg)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if cfgErr != nil {
		if isGated(meta.Gated) {
			return nil, nil, &Error{
				StatusCode: http.StatusForbidden,
				Message:    "model is gated on the hub; supply an access token with access",
			}
		}
		return nil, nil, fmt.Errorf("fetch config.json: %w", cfgErr)
	}

	info := &ModelInfo{Gated: isGated(meta.Gated)}
	if meta.Safetensors != nil {
		info.ParameterCount = meta.Safetensors.Total
	}
	return cfg, info, nil
}

func (c *Client) doGet(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Error{StatusCode: resp.StatusCode, Message: "model is gated; supply an access token with access"}
	case resp.StatusCode == http.StatusNotFound:
		return &Error{StatusCode: resp.StatusCode, Message: "model not found on the hub"}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// isGated reports whether the hub gated field marks the model as gated.
// The field is false for public models, or a string like "auto" or
// "manual" for gated models.
func isGated(v any) bool {
	switch g := v.(type) {
	case bool:
		return g
	case string:
		return g != "" && g != "false"
	default:
		return false
	}
}

// Error is a non-200 response from the hub.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("hub API %d: %s", e.StatusCode, e.Message)
}

// NotFound reports whether the error is the hub's 404 response.
func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
