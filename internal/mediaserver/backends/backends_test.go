package backends_test

import (
	"context"
	"testing"

	"strmrefresh/internal/config"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/mediaserver/backends"
	"strmrefresh/internal/testsupport"
)

func TestNewRegistryBuildsEveryType(t *testing.T) {
	cfg := config.Default()
	cfg.MediaServers = []config.MediaServer{
		{Name: "e", Type: config.ServerTypeEmby, URL: "http://e", APIKey: "k", Disabled: true},
		{Name: "j", Type: config.ServerTypeJellyfin, URL: "http://j", APIKey: "k", Disabled: true},
		{Name: "p", Type: config.ServerTypePlex, URL: "http://p", APIKey: "k", Disabled: true},
	}
	registry, err := backends.NewRegistry(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	statuses := registry.Probe(context.Background())
	want := []struct{ name, kind string }{{"e", "emby"}, {"j", "jellyfin"}, {"p", "plex"}}
	if len(statuses) != len(want) {
		t.Fatalf("expected %d statuses, got %+v", len(want), statuses)
	}
	for i, w := range want {
		if statuses[i].Name != w.name || statuses[i].Kind != w.kind {
			t.Fatalf("status %d = %+v, want %s/%s", i, statuses[i], w.name, w.kind)
		}
	}
}

func TestJellyfinRefreshIsLibraryWide(t *testing.T) {
	stub := testsupport.NewStubServer(t)

	cfg := config.Default()
	cfg.MediaServers = []config.MediaServer{{Name: "jf", Type: config.ServerTypeJellyfin, URL: stub.URL, APIKey: "k"}}
	registry, err := backends.NewRegistry(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	active := registry.Active(context.Background(), []string{"jf"})
	if len(active) != 1 {
		t.Fatalf("expected jellyfin to be active, got %d servers", len(active))
	}
	scope, err := active[0].Refresh(context.Background(), []mediaserver.RefreshItem{{TargetPath: "/a"}})
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if scope != mediaserver.ScopeLibrary {
		t.Fatalf("expected library scope, got %q", scope)
	}
	if calls := stub.Calls("/Library/Refresh"); len(calls) != 1 {
		t.Fatalf("expected one library refresh, got %+v", calls)
	}
}
