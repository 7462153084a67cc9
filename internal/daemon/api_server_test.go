package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"strmrefresh/internal/config"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/testsupport"
)

type refreshFailingServer struct{ name string }

func (s refreshFailingServer) Name() string               { return s.name }
func (s refreshFailingServer) Kind() string               { return "emby" }
func (s refreshFailingServer) Ping(context.Context) error { return nil }
func (s refreshFailingServer) Refresh(context.Context, []mediaserver.RefreshItem) (mediaserver.Scope, error) {
	return mediaserver.ScopeItems, errors.New("server exploded")
}

type countingServer struct {
	refreshes atomic.Int32
}

func (s *countingServer) Name() string               { return "emby" }
func (s *countingServer) Kind() string               { return "emby" }
func (s *countingServer) Ping(context.Context) error { return nil }
func (s *countingServer) Refresh(context.Context, []mediaserver.RefreshItem) (mediaserver.Scope, error) {
	s.refreshes.Add(1)
	return mediaserver.ScopeItems, nil
}

func newTestAPI(t *testing.T, opts ...testsupport.ConfigOption) (*apiServer, *Daemon) {
	t.Helper()
	return newTestAPIWith(t, func(c config.MediaServer) (mediaserver.Server, error) {
		return refreshFailingServer{name: c.Name}, nil
	}, opts...)
}

func newTestAPIWith(t *testing.T, build mediaserver.Builder, opts ...testsupport.ConfigOption) (*apiServer, *Daemon) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	builders := map[string]mediaserver.Builder{config.ServerTypeEmby: build}
	registry, err := mediaserver.NewRegistry(cfg.MediaServers, builders, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	d, err := New(cfg, logging.NewNop(), registry, testsupport.MustOpenHistory(t, cfg), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.api == nil {
		t.Fatal("expected api server")
	}
	return d.api, d
}

func serve(srv *apiServer, method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestTransferCompleteRejectsInvalidJSON(t *testing.T) {
	srv, _ := newTestAPI(t)
	w := serve(srv, http.MethodPost, "/api/events/transfer-complete", "{nope", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestTransferCompleteSkippedEvent(t *testing.T) {
	srv, _ := newTestAPI(t, testsupport.WithPluginDisabled())
	w := serve(srv, http.MethodPost, "/api/events/transfer-complete", `{"id":"x"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp EventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Result.Skipped == "" {
		t.Fatalf("expected skipped result, got %+v", resp.Result)
	}
}

func TestTransferCompleteRefreshFailure(t *testing.T) {
	srv, _ := newTestAPI(t, testsupport.WithoutStrm(), testsupport.WithMediaServer(config.MediaServer{Name: "emby", Type: config.ServerTypeEmby}))
	body := string(testsupport.TransferPayload(t, "evt-1", "/Movie/", "Movie.mkv", "movie", nil))
	w := serve(srv, http.MethodPost, "/api/events/transfer-complete", body, "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
	var resp EventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Error, "refresh emby") || len(resp.Result.Refreshed) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	srv, _ := newTestAPI(t, testsupport.WithAPIToken("s3cret"))

	if w := serve(srv, http.MethodGet, "/api/status", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := serve(srv, http.MethodGet, "/api/status", "", "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	w := serve(srv, http.MethodGet, "/api/status", "", "s3cret")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	var status Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.PluginEnabled {
		t.Fatal("expected plugin enabled in status")
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t, testsupport.WithPluginDisabled())
	serve(srv, http.MethodPost, "/api/events/transfer-complete", `{"id":"one"}`, "")
	serve(srv, http.MethodPost, "/api/events/transfer-complete", `{"id":"two"}`, "")

	w := serve(srv, http.MethodGet, "/api/history?limit=1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].EventID != "two" {
		t.Fatalf("expected newest entry only, got %+v", resp.Entries)
	}

	if w := serve(srv, http.MethodGet, "/api/history?limit=zero", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestServersEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t, testsupport.WithMediaServer(config.MediaServer{Name: "living-room", Type: config.ServerTypeEmby}))
	w := serve(srv, http.MethodGet, "/api/servers", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ServersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Servers) != 1 || !resp.Servers[0].Reachable || resp.Servers[0].Name != "living-room" {
		t.Fatalf("unexpected servers: %+v", resp.Servers)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestAPI(t)
	if w := serve(srv, http.MethodGet, "/api/nope", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := serve(srv, http.MethodGet, "/api/events/transfer-complete", "", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func delayedEmbyAPI(t *testing.T, delaySeconds float64) (*apiServer, *Daemon, *countingServer) {
	t.Helper()
	server := &countingServer{}
	srv, d := newTestAPIWith(t, func(config.MediaServer) (mediaserver.Server, error) { return server, nil },
		testsupport.WithoutStrm(),
		testsupport.WithDelay(delaySeconds),
		testsupport.WithMediaServer(config.MediaServer{Name: "emby", Type: config.ServerTypeEmby}),
	)
	return srv, d, server
}

func TestTransferCompleteRefreshesAfterCallerGivesUp(t *testing.T) {
	srv, _, server := delayedEmbyAPI(t, 0.3)
	body := string(testsupport.TransferPayload(t, "evt-gone", "/Movie/", "Movie.mkv", "movie", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/events/transfer-complete", strings.NewReader(body)).WithContext(ctx)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if ctx.Err() == nil {
		t.Fatal("expected the request context to expire during the delay")
	}
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := server.refreshes.Load(); got != 1 {
		t.Fatalf("expected one refresh after the delay, got %d", got)
	}
}

func TestTransferCompleteAbortedByShutdown(t *testing.T) {
	srv, d, server := delayedEmbyAPI(t, 30)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	body := string(testsupport.TransferPayload(t, "evt-stop", "/Movie/", "Movie.mkv", "movie", nil))
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- serve(srv, http.MethodPost, "/api/events/transfer-complete", body, "")
	}()

	// Give the event time to reach the delay.
	time.Sleep(150 * time.Millisecond)
	d.Stop()

	select {
	case w := <-done:
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503 after shutdown, got %d: %s", w.Code, w.Body.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not abort the delayed event")
	}
	if got := server.refreshes.Load(); got != 0 {
		t.Fatalf("refresh must not run after shutdown, got %d", got)
	}
}
