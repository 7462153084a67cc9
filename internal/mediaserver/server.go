package mediaserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"strmrefresh/internal/services"
)

// Scope is the breadth of a refresh.
type Scope string

const (
	// ScopeItems refreshed only the described items.
	ScopeItems Scope = "items"
	// ScopeLibrary rescanned the whole library.
	ScopeLibrary Scope = "library"
)

// RefreshItem describes one transferred item for per-item refreshes.
type RefreshItem struct {
	Title      string `json:"title"`
	Year       string `json:"year,omitempty"`
	Type       string `json:"type,omitempty"`
	Category   string `json:"category,omitempty"`
	TargetPath string `json:"target_path"`
}

// Server is a media-server connection able to refresh its library.
type Server interface {
	Name() string
	Kind() string
	// Ping checks that the server is reachable.
	Ping(ctx context.Context) error
	// Refresh asks the server to pick up items. Backends without a per-item
	// API rescan their library instead and report ScopeLibrary.
	Refresh(ctx context.Context, items []RefreshItem) (Scope, error)
}

// HTTPDoer describes the HTTP client used by server connections.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Send executes req and converts transport failures and non-2xx statuses into
// categorized errors. The response body is drained and closed.
func Send(client HTTPDoer, req *http.Request, component, operation string) error {
	resp, err := client.Do(req)
	if err != nil {
		return TransportError(component, operation, err)
	}
	defer resp.Body.Close()
	return CheckStatus(resp, component, operation)
}

// CheckStatus returns an error for non-2xx responses. It does not close the body.
func CheckStatus(resp *http.Response, component, operation string) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	message := fmt.Sprintf("returned %d", resp.StatusCode)
	if text := strings.TrimSpace(string(body)); text != "" {
		message += ": " + text
	}
	marker := services.ErrExternalService
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		marker = services.ErrConfiguration
		message += " (check api_key)"
	case http.StatusNotFound:
		marker = services.ErrNotFound
	}
	return services.Wrap(marker, component, operation, message, nil)
}

// TransportError classifies a failed round trip.
func TransportError(component, operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return services.Wrap(services.ErrTimeout, component, operation, "request timed out", err)
	}
	return services.Wrap(services.ErrExternalService, component, operation, "request failed", err)
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
