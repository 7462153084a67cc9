package spool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"strmrefresh/internal/event"
	"strmrefresh/internal/fileutil"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/services"
	"strmrefresh/internal/transfer"
)

const (
	doneDir   = "done"
	failedDir = "failed"

	defaultSettle = 250 * time.Millisecond
)

// Dispatcher receives decoded events.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt *event.TransferEvent) (transfer.Result, error)
}

// Watcher feeds spool files to a Dispatcher.
type Watcher struct {
	dir      string
	dispatch Dispatcher
	logger   *slog.Logger
	settle   time.Duration
	now      func() time.Time
}

// New constructs a watcher for dir.
func New(dir string, dispatcher Dispatcher, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:      dir,
		dispatch: dispatcher,
		logger:   logging.NewComponentLogger(logger, "spool"),
		settle:   defaultSettle,
		now:      time.Now,
	}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

func (w *Watcher) ensureDirs() error {
	for _, dir := range []string{w.dir, filepath.Join(w.dir, doneDir), filepath.Join(w.dir, failedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, "spool", "prepare", "create "+dir, err)
		}
	}
	return nil
}

// Drain processes every spool file already present, oldest name first, and
// returns how many files were handled.
func (w *Watcher) Drain(ctx context.Context) (int, error) {
	if err := w.ensureDirs(); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read spool dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && isSpoolFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		w.Process(ctx, filepath.Join(w.dir, name))
		count++
	}
	return count, nil
}

// Run drains the directory and then watches it until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	drained, err := w.Drain(ctx)
	if err != nil {
		return err
	}
	if drained > 0 {
		w.logger.Info("spool drained", logging.Int("files", drained))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create spool watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch spool dir: %w", err)
	}
	w.logger.Info("watching spool directory",
		logging.String(logging.FieldEventType, "spool_watch_started"),
		logging.String("dir", w.dir),
	)

	// Writes arrive in bursts; a file is processed once it has been quiet
	// for the settle interval.
	pending := make(map[string]*time.Timer)
	ready := make(chan string)
	defer func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if filepath.Dir(ev.Name) != filepath.Clean(w.dir) || !isSpoolFile(filepath.Base(ev.Name)) {
				continue
			}
			name := ev.Name
			if timer, ok := pending[name]; ok {
				timer.Reset(w.settle)
				continue
			}
			pending[name] = time.AfterFunc(w.settle, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})
		case name := <-ready:
			delete(pending, name)
			if _, err := os.Stat(name); err != nil {
				continue
			}
			w.Process(ctx, name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "spool watcher error", "spool_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some spool files may wait until the next start"),
			)
		}
	}
}

// Process decodes and dispatches one spool file, then files it away.
func (w *Watcher) Process(ctx context.Context, path string) {
	logger := w.logger.With(logging.String("file", filepath.Base(path)))

	evt, err := decodeFile(path)
	if err != nil {
		logging.WarnWithContext(logger, "spool file rejected", "spool_rejected",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the file under failed/"),
		)
		w.file(logger, path, failedDir)
		return
	}

	result, err := w.dispatch.Dispatch(ctx, evt)
	if err != nil && errors.Is(err, context.Canceled) {
		// Leave the file in place so the next start picks it up again.
		return
	}
	logger.Info("spool event handled",
		logging.String(logging.FieldEventID, result.EventID),
		logging.Bool("refresh_failed", err != nil),
	)
	w.file(logger, path, doneDir)
}

func (w *Watcher) file(logger *slog.Logger, path, sub string) {
	dst := filepath.Join(w.dir, sub, filepath.Base(path))
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(w.dir, sub, w.now().UTC().Format("20060102T150405.000000000")+"-"+filepath.Base(path))
	}
	if err := fileutil.MoveFile(path, dst); err != nil {
		logging.ErrorWithContext(logger, "spool file move failed", "spool_move_failed",
			logging.String("destination", dst),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file will be processed again on restart"),
		)
	}
}

func decodeFile(path string) (*event.TransferEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return event.Decode(f)
}

func isSpoolFile(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".json")
}
