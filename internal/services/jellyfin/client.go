package jellyfin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"strmrefresh/internal/config"
	"strmrefresh/internal/mediaserver"
)

// Client talks to one Jellyfin server.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	client  mediaserver.HTTPDoer
}

// New constructs a Client from configuration using a timeout-bound HTTP client.
func New(cfg config.MediaServer) (mediaserver.Server, error) {
	return NewClient(cfg.Name, cfg.URL, cfg.APIKey, &http.Client{Timeout: cfg.Timeout()}), nil
}

// NewClient constructs a Client with an explicit HTTP doer.
func NewClient(name, baseURL, apiKey string, client mediaserver.HTTPDoer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  client,
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Kind() string { return config.ServerTypeJellyfin }

func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/System/Info/Public")
	if err != nil {
		return err
	}
	return mediaserver.Send(c.client, req, "jellyfin", "ping")
}

// Refresh ignores items and rescans the whole library.
func (c *Client) Refresh(ctx context.Context, _ []mediaserver.RefreshItem) (mediaserver.Scope, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/Library/Refresh")
	if err != nil {
		return mediaserver.ScopeLibrary, err
	}
	return mediaserver.ScopeLibrary, mediaserver.Send(c.client, req, "jellyfin", "refresh")
}

func (c *Client) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build jellyfin request: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.apiKey)
	return req, nil
}
