package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Strm root", statusError, "missing", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Strm root:", "[ERROR] missing")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Strm root", statusOK, "ok", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "State directory", Passed: true, Detail: "/state (read/write ok)"},
		{Name: "Media server plex (plex)", Passed: true, Detail: "unreachable, not selected (timeout)"},
		{Name: "Strm root", Detail: "/strm (error: does not exist)"},
	}, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK]") {
		t.Fatalf("expected ok line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN]") {
		t.Fatalf("expected warn line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[ERROR]") {
		t.Fatalf("expected error line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "1 of 3 checks failed") {
		t.Fatalf("unexpected summary %q", lines[3])
	}
}

func TestRenderServerTable(t *testing.T) {
	out := renderServerTable([]mediaserver.Status{
		{Name: "emby", Kind: "emby", URL: "http://emby:8096", Enabled: true, Reachable: true, Latency: 12 * time.Millisecond},
		{Name: "plex", Kind: "plex", URL: "http://plex:32400", Enabled: false},
	}, []string{"emby"})
	for _, want := range []string{"emby", "reachable", "12ms", "disabled", "yes", "no"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
