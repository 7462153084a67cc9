package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"strmrefresh/internal/config"
)

const userAgent = "strmrefresh/0.1.0"

// Service defines the notification surface used by the transfer handler.
type Service interface {
	NotifyStrmFailed(ctx context.Context, title, path string, err error) error
	NotifyRefreshFailed(ctx context.Context, title, server string, err error) error
	NotifyCompleted(ctx context.Context, title, strmPath string, servers []string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		strmErrors:    cfg.Notifications.StrmErrors,
		refreshErrors: cfg.Notifications.RefreshErrors,
		completed:     cfg.Notifications.Completed,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	strmErrors    bool
	refreshErrors bool
	completed     bool
}

func displayTitle(title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	return "unknown title"
}

func errorText(err error) string {
	if err == nil {
		return "unknown"
	}
	return strings.TrimSpace(err.Error())
}

func (n *ntfyService) NotifyStrmFailed(ctx context.Context, title, path string, err error) error {
	if !n.strmErrors {
		return nil
	}
	data := payload{
		title:    "strmrefresh - STRM Failed",
		message:  fmt.Sprintf("❌ Could not write strm for %s\nPath: %s\nError: %s", displayTitle(title), path, errorText(err)),
		tags:     []string{"strmrefresh", "strm", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRefreshFailed(ctx context.Context, title, server string, err error) error {
	if !n.refreshErrors {
		return nil
	}
	data := payload{
		title:    "strmrefresh - Refresh Failed",
		message:  fmt.Sprintf("❌ %s did not refresh for %s\nError: %s", server, displayTitle(title), errorText(err)),
		tags:     []string{"strmrefresh", "refresh", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCompleted(ctx context.Context, title, strmPath string, servers []string) error {
	if !n.completed {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "✅ Library updated: %s", displayTitle(title))
	if strmPath != "" {
		fmt.Fprintf(&builder, "\nSTRM: %s", strmPath)
	}
	if len(servers) > 0 {
		fmt.Fprintf(&builder, "\nRefreshed: %s", strings.Join(servers, ", "))
	}
	data := payload{
		title:   "strmrefresh - Library Updated",
		message: builder.String(),
		tags:    []string{"strmrefresh", "library", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "strmrefresh - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"strmrefresh", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyStrmFailed(context.Context, string, string, error) error    { return nil }
func (noopService) NotifyRefreshFailed(context.Context, string, string, error) error { return nil }
func (noopService) NotifyCompleted(context.Context, string, string, []string) error  { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }

// Enabled reports whether svc actually delivers notifications.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}
