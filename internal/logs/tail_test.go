package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"strmrefresh/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strmrefresh.log")
	writeLog(t, path, "a\nb\nc\n")

	result, err := logs.Tail(path, logs.Options{Lines: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("expected offset 6, got %d", result.Offset)
	}
}

func TestTailFiltersByMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strmrefresh.log")
	writeLog(t, path, "event_id=a one\nevent_id=b two\nevent_id=a three\n")

	result, err := logs.Tail(path, logs.Options{Lines: 10, Match: "event_id=a"})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[1] != "event_id=a three" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(filepath.Join(t.TempDir(), "missing.log"), logs.Options{Lines: 5})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestReadFromLeavesPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strmrefresh.log")
	writeLog(t, path, "first\nsec")

	result, err := logs.ReadFrom(path, 0, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(result.Lines) != 1 || result.Offset != 6 {
		t.Fatalf("unexpected result: %+v", result)
	}

	appendLog(t, path, "ond\n")
	result, err = logs.ReadFrom(path, result.Offset, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "second" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
}

func TestReadFromRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strmrefresh.log")
	writeLog(t, path, "x\n")

	result, err := logs.ReadFrom(path, 100, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "x" {
		t.Fatalf("expected restart from beginning, got %#v", result.Lines)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strmrefresh.log")
	writeLog(t, path, "start\n")

	initial, err := logs.Tail(path, logs.Options{Lines: 1})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, initial.Offset, "keep", func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)
	appendLog(t, path, "drop me\nkeep me\n")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("follow: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "keep me" {
		t.Fatalf("unexpected followed lines: %#v", got)
	}
}
