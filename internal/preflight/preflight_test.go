package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"strmrefresh/internal/config"
	"strmrefresh/internal/mediaserver"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWritableDir_Missing(t *testing.T) {
	result := CheckWritableDir("state", filepath.Join(t.TempDir(), "a", "b"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckWritableDir_Empty(t *testing.T) {
	if CheckWritableDir("state", " ").Passed {
		t.Fatal("expected failure for empty path")
	}
}

type stubProber []mediaserver.Status

func (s stubProber) Probe(context.Context) []mediaserver.Status { return s }

func TestCheckMediaServers(t *testing.T) {
	prober := stubProber{
		{Name: "emby", Kind: "emby", Enabled: true, Reachable: true, Latency: 12 * time.Millisecond},
		{Name: "jf", Kind: "jellyfin", Enabled: true, Error: "connection refused"},
		{Name: "plex", Kind: "plex", Enabled: true, Error: "timeout"},
		{Name: "old", Kind: "emby"},
	}
	results := CheckMediaServers(context.Background(), prober, []string{"emby", "jf", "ghost"})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	want := []bool{true, false, true, true, false}
	for i, r := range results {
		if r.Passed != want[i] {
			t.Errorf("result %d (%s) passed=%v, want %v: %s", i, r.Name, r.Passed, want[i], r.Detail)
		}
	}
	if !strings.Contains(results[4].Detail, "not configured") {
		t.Fatalf("unexpected detail for missing server: %q", results[4].Detail)
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Strm.Root = filepath.Join(base, "missing-root")
	cfg.Plugin.Enabled = true

	results := RunAll(context.Background(), &cfg, nil)
	if len(results) != 2 {
		t.Fatalf("expected state and strm checks, got %+v", results)
	}
	if !results[0].Passed {
		t.Fatalf("state dir should be creatable: %s", results[0].Detail)
	}
	if results[1].Passed {
		t.Fatal("missing strm root must fail")
	}
	if !Failed(results) {
		t.Fatal("Failed should report the strm root failure")
	}

	if err := os.MkdirAll(cfg.Strm.Root, 0o755); err != nil {
		t.Fatal(err)
	}
	if Failed(RunAll(context.Background(), &cfg, stubProber{})) {
		t.Fatal("expected all checks to pass")
	}
}
