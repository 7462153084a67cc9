package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"strmrefresh/internal/config"
	"strmrefresh/internal/dispatch"
	"strmrefresh/internal/event"
	"strmrefresh/internal/history"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/notifications"
	"strmrefresh/internal/spool"
	"strmrefresh/internal/transfer"
)

// Daemon owns the event intakes and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *mediaserver.Registry
	store      *history.Store
	notifier   notifications.Service
	dispatcher *dispatch.Dispatcher
	api        *apiServer
	spool      *spool.Watcher

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	mu        sync.Mutex
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool           `json:"running"`
	StartedAt     time.Time      `json:"started_at,omitempty"`
	PluginEnabled bool           `json:"plugin_enabled"`
	MediaServers  []string       `json:"media_servers"`
	StrmRoot      string         `json:"strm_root,omitempty"`
	Delay         time.Duration  `json:"delay"`
	SpoolDir      string         `json:"spool_dir,omitempty"`
	HistoryPath   string         `json:"history_path,omitempty"`
	LockFilePath  string         `json:"lock_file_path"`
	Dispatch      dispatch.Stats `json:"dispatch"`
	History       *history.Stats `json:"history,omitempty"`
}

// New constructs a daemon. store may be nil when history is disabled.
func New(cfg *config.Config, logger *slog.Logger, registry *mediaserver.Registry, store *history.Store, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || registry == nil {
		return nil, errors.New("daemon requires config and media server registry")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}

	opts := []transfer.Option{transfer.WithNotifier(notifier)}
	if store != nil {
		opts = append(opts, transfer.WithRecorder(store))
	}
	handler := transfer.NewHandler(transfer.SettingsFromConfig(cfg), registry, logger, opts...)

	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		registry:   registry,
		store:      store,
		notifier:   notifier,
		dispatcher: dispatch.New(handler, logger),
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}
	if dir := strings.TrimSpace(cfg.Paths.SpoolDir); dir != "" {
		d.spool = spool.New(dir, d.dispatcher, logger)
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the API server and spool
// watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another strmrefresh daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.runCtx, d.cancel = runCtx, cancel
	d.mu.Unlock()

	if err := d.api.start(); err != nil {
		d.clearRunContext()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}

	d.pruneHistory(runCtx)

	if d.spool != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.spool.Run(runCtx); err != nil {
				logging.ErrorWithContext(d.logger, "spool watcher stopped", "spool_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check paths.spool_dir permissions"),
					logging.String(logging.FieldImpact, "spool files are not processed"),
				)
			}
		}()
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("strmrefresh daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddr()),
		logging.Bool("plugin_enabled", d.cfg.Plugin.Enabled),
		logging.Strings("media_servers", d.cfg.Plugin.MediaServers),
	)
	return nil
}

// Stop shuts down the intakes and releases the daemon lock. In-flight API
// requests get a short grace period before the listener closes.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	d.clearRunContext()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("strmrefresh daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	days := d.cfg.History.RetentionDays
	if d.store == nil || days <= 0 {
		return
	}
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	removed, err := d.store.Prune(ctx, cutoff)
	if err != nil {
		d.logger.Warn("history prune failed", logging.Error(err))
		return
	}
	if removed > 0 {
		d.logger.Info("history pruned", logging.Int64("removed", removed), logging.Int("retention_days", days))
	}
}

func (d *Daemon) clearRunContext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.runCtx, d.cancel = nil, nil
}

// Dispatch hands one event to the transfer handler. The event is detached
// from ctx's cancellation: once accepted it runs through the delay and the
// refresh even if the caller goes away. Only daemon shutdown aborts it.
// Values carried by ctx (request id) are kept.
func (d *Daemon) Dispatch(ctx context.Context, evt *event.TransferEvent) (transfer.Result, error) {
	eventCtx, cancel := d.eventContext(ctx)
	defer cancel()
	return d.dispatcher.Dispatch(eventCtx, evt)
}

func (d *Daemon) eventContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	d.mu.Lock()
	runCtx := d.runCtx
	d.mu.Unlock()
	if runCtx == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(runCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Servers probes every configured media server.
func (d *Daemon) Servers(ctx context.Context) []mediaserver.Status {
	return d.registry.Probe(ctx)
}

// History returns the most recent handled events.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if d.store == nil {
		return nil, errors.New("history disabled")
	}
	return d.store.List(ctx, limit)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if !notifications.Enabled(d.notifier) {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// APIAddr returns the listening address of the API server, or "" when the
// API is disabled or not started.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:       d.running.Load(),
		StartedAt:     d.startedAt,
		PluginEnabled: d.cfg.Plugin.Enabled,
		MediaServers:  append([]string(nil), d.cfg.Plugin.MediaServers...),
		StrmRoot:      d.cfg.Strm.Root,
		Delay:         d.cfg.Delay(),
		SpoolDir:      d.cfg.Paths.SpoolDir,
		LockFilePath:  d.lockPath,
		Dispatch:      d.dispatcher.Stats(),
	}
	if d.store != nil {
		status.HistoryPath = d.store.Path()
		if stats, err := d.store.Stats(ctx); err == nil {
			status.History = &stats
		}
	}
	return status
}
