package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

const maxLineBytes = 1024 * 1024

// Options selects which lines Tail returns.
type Options struct {
	Lines int
	Match string
}

// Result holds the selected lines and the byte offset reading stopped at.
type Result struct {
	Lines  []string
	Offset int64
}

func (o Options) keep(line string) bool {
	return o.Match == "" || strings.Contains(line, o.Match)
}

// Tail returns up to opts.Lines trailing lines of path that match the filter.
// A missing file yields an empty result.
func Tail(path string, opts Options) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Lines <= 0 {
		return Result{Offset: info.Size()}, nil
	}

	ring := make([]string, opts.Lines)
	count, idx := 0, 0
	offset, err := scanLines(file, func(line string) {
		if !opts.keep(line) {
			return
		}
		ring[idx] = line
		idx = (idx + 1) % opts.Lines
		if count < opts.Lines {
			count++
		}
	})
	if err != nil {
		return Result{}, err
	}

	lines := make([]string, count)
	if count == opts.Lines {
		for i := range count {
			lines[i] = ring[(idx+i)%opts.Lines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return Result{Lines: lines, Offset: offset}, nil
}

// ReadFrom returns matching lines written after offset. An offset past the
// end of the file (truncation or a new file) restarts from the beginning.
func ReadFrom(path string, offset int64, match string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{Offset: offset}, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Result{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	opts := Options{Match: match}
	var lines []string
	consumed, err := scanLines(file, func(line string) {
		if opts.keep(line) {
			lines = append(lines, line)
		}
	})
	if err != nil {
		return Result{Offset: offset}, err
	}
	return Result{Lines: lines, Offset: offset + consumed}, nil
}

// Follow calls emit for every matching line appended to path after offset
// until ctx is cancelled. When path is re-pointed at a different file the
// new file is read from its start.
func Follow(ctx context.Context, path string, offset int64, match string, emit func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create log watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch log directory: %w", err)
	}

	current, _ := os.Stat(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("log watcher: %w", err)
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
		}

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if current != nil && !os.SameFile(current, info) {
			offset = 0
		}
		current = info

		res, err := ReadFrom(path, offset, match)
		if err != nil {
			return err
		}
		offset = res.Offset
		for _, line := range res.Lines {
			emit(line)
		}
	}
}

// scanLines feeds complete lines to fn and returns the bytes consumed. A
// trailing partial line is left unread so a later call picks it up whole.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}
