package spool

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"strmrefresh/internal/event"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/transfer"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.TransferEvent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, evt *event.TransferEvent) (transfer.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
	return transfer.Result{EventID: evt.ID}, nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDrainProcessesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.json"), `{"id":"b","transferinfo":{"target_diritem":{"path":"/B/"}}}`)
	writeFile(t, filepath.Join(dir, "a.json"), `{"id":"a","transferinfo":{"target_diritem":{"path":"/A/"}}}`)
	writeFile(t, filepath.Join(dir, "broken.json"), `{not json`)
	writeFile(t, filepath.Join(dir, ".partial.json"), `{}`)
	writeFile(t, filepath.Join(dir, "notes.txt"), `ignored`)

	d := &recordingDispatcher{}
	w := New(dir, d, logging.NewNop())
	n, err := w.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 spool files, got %d", n)
	}
	if d.count() != 2 || d.events[0].ID != "a" || d.events[1].ID != "b" {
		t.Fatalf("unexpected dispatch order: %+v", d.events)
	}
	for _, name := range []string{"a.json", "b.json"} {
		if _, err := os.Stat(filepath.Join(dir, doneDir, name)); err != nil {
			t.Fatalf("expected %s under done/: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, failedDir, "broken.json")); err != nil {
		t.Fatalf("expected broken.json under failed/: %v", err)
	}
	for _, name := range []string{".partial.json", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s should be left alone: %v", name, err)
		}
	}
}

func TestProcessAvoidsOverwritingDoneFiles(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, &recordingDispatcher{}, logging.NewNop())
	if err := w.ensureDirs(); err != nil {
		t.Fatalf("ensureDirs: %v", err)
	}
	writeFile(t, filepath.Join(dir, doneDir, "evt.json"), "old")
	writeFile(t, filepath.Join(dir, "evt.json"), `{"transferinfo":{"target_diritem":{"path":"/X/"}}}`)

	w.Process(context.Background(), filepath.Join(dir, "evt.json"))

	entries, err := os.ReadDir(filepath.Join(dir, doneDir))
	if err != nil {
		t.Fatalf("read done: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected both files kept under done/, got %d", len(entries))
	}
}

func TestRunPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	d := &recordingDispatcher{}
	w := New(dir, d, logging.NewNop())
	w.settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Wait for the watcher to create its directories before dropping a file.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(filepath.Join(dir, failedDir)); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("spool directories not created")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	tmp := filepath.Join(dir, ".incoming")
	writeFile(t, tmp, `{"id":"live","transferinfo":{"target_diritem":{"path":"/L/"}}}`)
	if err := os.Rename(tmp, filepath.Join(dir, "live.json")); err != nil {
		t.Fatalf("rename: %v", err)
	}

	for d.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("spool file was not dispatched")
		}
		time.Sleep(10 * time.Millisecond)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, doneDir, "live.json")); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("spool file was not moved to done/")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIsSpoolFile(t *testing.T) {
	cases := map[string]bool{
		"event.json":  true,
		"EVENT.JSON":  true,
		".tmp.json":   false,
		"event.json~": false,
		"event.txt":   false,
	}
	for name, want := range cases {
		if got := isSpoolFile(name); got != want {
			t.Errorf("isSpoolFile(%q) = %v, want %v", name, got, want)
		}
	}
}
