package emby

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/services"
)

func TestRefreshPostsMediaUpdated(t *testing.T) {
	var got mediaUpdatedRequest
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Library/Media/Updated" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if token := r.Header.Get("X-Emby-Token"); token != "token-123" {
			t.Errorf("unexpected token: %q", token)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient("emby", server.URL+"/", "token-123", server.Client())
	scope, err := client.Refresh(context.Background(), []mediaserver.RefreshItem{
		{Title: "Show", Year: "2021", Type: "tv", TargetPath: "/media/Show/"},
	})
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if scope != mediaserver.ScopeItems {
		t.Fatalf("expected item scope, got %q", scope)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
	if len(got.Updates) != 1 || got.Updates[0].Path != "/media/Show/" || got.Updates[0].UpdateType != "Created" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestRefreshRequiresPaths(t *testing.T) {
	client := NewClient("emby", "http://unused", "k", nil)
	_, err := client.Refresh(context.Background(), []mediaserver.RefreshItem{{Title: "x"}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPingClassifiesAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/System/Info/Public" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer server.Close()

	err := NewClient("emby", server.URL, "bad", server.Client()).Ping(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
