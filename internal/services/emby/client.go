package emby

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"strmrefresh/internal/config"
	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/services"
)

// Client talks to one Emby server.
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

func (c *Client) Kind() string { return config.ServerTypeEmby }

func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/System/Info/Public", nil)
	if err != nil {
		return err
	}
	return mediaserver.Send(c.client, req, "emby", "ping")
}

type mediaUpdate struct {
	Path       string `json:"Path"`
	UpdateType string `json:"UpdateType"`
}

type mediaUpdatedRequest struct {
	Updates []mediaUpdate `json:"Updates"`
}

// Refresh reports every item's target path as created in a single request.
func (c *Client) Refresh(ctx context.Context, items []mediaserver.RefreshItem) (mediaserver.Scope, error) {
	payload := mediaUpdatedRequest{Updates: make([]mediaUpdate, 0, len(items))}
	for _, item := range items {
		if item.TargetPath == "" {
			continue
		}
		payload.Updates = append(payload.Updates, mediaUpdate{Path: item.TargetPath, UpdateType: "Created"})
	}
	if len(payload.Updates) == 0 {
		return mediaserver.ScopeItems, services.Wrap(services.ErrValidation, "emby", "refresh", "no item paths to refresh", nil)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return mediaserver.ScopeItems, fmt.Errorf("encode emby media update: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/Library/Media/Updated", bytes.NewReader(body))
	if err != nil {
		return mediaserver.ScopeItems, err
	}
	req.Header.Set("Content-Type", "application/json")
	return mediaserver.ScopeItems, mediaserver.Send(c.client, req, "emby", "refresh")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build emby request: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}
