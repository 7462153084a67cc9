package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"strmrefresh/internal/config"
	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/services"
)

const userAgent = "strmrefresh/0.1.0"

// allSections is the pseudo section key that refreshes a path across libraries.
const allSections = "all"

// sectionsTTL bounds how long a fetched section list is trusted.
const sectionsTTL = 10 * time.Minute

// Client talks to one Plex server.
type Client struct {
	name    string
	baseURL string
	token   string
	client  mediaserver.HTTPDoer

	mu        sync.Mutex
	sections  []Section
	fetchedAt time.Time
	now       func() time.Time
}

// Section is a Plex library section and the folders it scans.
type Section struct {
	Key       string
	Title     string
	Type      string
	Locations []string
}

// New constructs a Client from configuration using a timeout-bound HTTP client.
func New(cfg config.MediaServer) (mediaserver.Server, error) {
	return NewClient(cfg.Name, cfg.URL, cfg.APIKey, &http.Client{Timeout: cfg.Timeout()}), nil
}

// NewClient constructs a Client with an explicit HTTP doer.
func NewClient(name, baseURL, token string, client mediaserver.HTTPDoer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  client,
		now:     time.Now,
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Kind() string { return config.ServerTypePlex }

func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, "/identity", nil)
	if err != nil {
		return err
	}
	return mediaserver.Send(c.client, req, "plex", "ping")
}

// Refresh sends one partial scan per distinct target path.
func (c *Client) Refresh(ctx context.Context, items []mediaserver.RefreshItem) (mediaserver.Scope, error) {
	seen := make(map[string]struct{}, len(items))
	sent := 0
	for _, item := range items {
		target := strings.TrimSpace(item.TargetPath)
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}

		key, err := c.SectionFor(ctx, target)
		if err != nil {
			return mediaserver.ScopeItems, err
		}
		query := url.Values{}
		query.Set("path", target)
		req, err := c.newRequest(ctx, "/library/sections/"+url.PathEscape(key)+"/refresh", query)
		if err != nil {
			return mediaserver.ScopeItems, err
		}
		if err := mediaserver.Send(c.client, req, "plex", "refresh"); err != nil {
			return mediaserver.ScopeItems, err
		}
		sent++
	}
	if sent == 0 {
		return mediaserver.ScopeItems, services.Wrap(services.ErrValidation, "plex", "refresh", "no item paths to refresh", nil)
	}
	return mediaserver.ScopeItems, nil
}

// SectionFor returns the key of the section with the longest location that
// contains target, or "all" when none does. A miss against a cached section
// list refetches it once so libraries added since are found.
func (c *Client) SectionFor(ctx context.Context, target string) (string, error) {
	sections, fresh, err := c.loadSections(ctx, false)
	if err != nil {
		return "", err
	}
	if key, ok := matchSection(sections, target); ok {
		return key, nil
	}
	if !fresh {
		if sections, _, err = c.loadSections(ctx, true); err != nil {
			return "", err
		}
		if key, ok := matchSection(sections, target); ok {
			return key, nil
		}
	}
	return allSections, nil
}

func matchSection(sections []Section, target string) (string, bool) {
	best, bestLen := "", -1
	for _, section := range sections {
		for _, location := range section.Locations {
			if containsPath(location, target) && len(location) > bestLen {
				best, bestLen = section.Key, len(location)
			}
		}
	}
	return best, bestLen >= 0
}

func containsPath(location, target string) bool {
	location = strings.TrimRight(path.Clean(location), "/")
	target = path.Clean(target)
	if location == "" {
		return false
	}
	return target == location || strings.HasPrefix(target, location+"/")
}

// loadSections returns the section list, fetching it when forced, never
// fetched, or older than sectionsTTL. fresh reports whether it was fetched
// by this call.
func (c *Client) loadSections(ctx context.Context, force bool) (sections []Section, fresh bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < sectionsTTL {
		return c.sections, false, nil
	}
	sections, err = c.fetchSections(ctx)
	if err != nil {
		return nil, false, err
	}
	c.sections, c.fetchedAt = sections, c.now()
	return sections, true, nil
}

func (c *Client) fetchSections(ctx context.Context) ([]Section, error) {
	req, err := c.newRequest(ctx, "/library/sections", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, mediaserver.TransportError("plex", "sections", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, mediaserver.CheckStatus(resp, "plex", "sections")
	}

	type location struct {
		Path string `xml:"path,attr"`
	}
	type directory struct {
		Key       string     `xml:"key,attr"`
		Title     string     `xml:"title,attr"`
		Type      string     `xml:"type,attr"`
		Locations []location `xml:"Location"`
	}
	type mediaContainer struct {
		Directories []directory `xml:"Directory"`
	}

	var container mediaContainer
	if err := xml.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "plex", "sections", "decode response", err)
	}

	sections := make([]Section, 0, len(container.Directories))
	for _, dir := range container.Directories {
		if dir.Key == "" {
			continue
		}
		section := Section{Key: dir.Key, Title: dir.Title, Type: dir.Type}
		for _, loc := range dir.Locations {
			if loc.Path != "" {
				section.Locations = append(section.Locations, loc.Path)
			}
		}
		sections = append(sections, section)
	}
	return sections, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string, query url.Values) (*http.Request, error) {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build plex request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}
