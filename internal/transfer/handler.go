package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"strmrefresh/internal/event"
	"strmrefresh/internal/history"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/services"
	"strmrefresh/internal/strm"
)

// ServerResolver returns the named media servers that are currently usable.
type ServerResolver interface {
	Active(ctx context.Context, names []string) []mediaserver.Server
}

// StrmWriter materializes pointer-file plans.
type StrmWriter interface {
	Write(ctx context.Context, plan strm.Plan) error
}

// Recorder persists handled events.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Notifier pushes operator notifications.
type Notifier interface {
	NotifyStrmFailed(ctx context.Context, title, path string, err error) error
	NotifyRefreshFailed(ctx context.Context, title, server string, err error) error
	NotifyCompleted(ctx context.Context, title, strmPath string, servers []string) error
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Handler processes transfer-complete events.
type Handler struct {
	settings Settings
	servers  ServerResolver
	writer   StrmWriter
	recorder Recorder
	notifier Notifier
	sleep    Sleeper
	now      func() time.Time
	logger   *slog.Logger
}

// Option customizes a Handler.
type Option func(*Handler)

// WithRecorder records every handled event.
func WithRecorder(r Recorder) Option { return func(h *Handler) { h.recorder = r } }

// WithNotifier sends notifications for failures and completions.
func WithNotifier(n Notifier) Option { return func(h *Handler) { h.notifier = n } }

// WithWriter replaces the filesystem pointer-file writer.
func WithWriter(w StrmWriter) Option { return func(h *Handler) { h.writer = w } }

// WithSleeper replaces the delay implementation.
func WithSleeper(s Sleeper) Option { return func(h *Handler) { h.sleep = s } }

// NewHandler constructs a Handler.
func NewHandler(settings Settings, servers ServerResolver, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		settings: settings,
		servers:  servers,
		sleep:    SleepContext,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "transfer"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.writer == nil {
		h.writer = strm.NewWriter(logger)
	}
	return h
}

// Handle runs the pipeline for one event. Skipped events and pointer-file
// failures return a nil error; refresh failures are joined and returned.
func (h *Handler) Handle(ctx context.Context, evt *event.TransferEvent) (Result, error) {
	result := Result{StartedAt: h.now().UTC()}
	if evt != nil {
		result.EventID = evt.ID
		result.Title = evt.Title()
		result.TargetDir = evt.TargetDir()
		if evt.MediaInfo != nil {
			result.MediaType = string(evt.MediaInfo.Type)
		}
		ctx = services.WithEventID(ctx, evt.ID)
	}
	logger := logging.WithContext(ctx, h.logger)

	if !h.settings.Enabled {
		result.Skipped = SkipDisabled
		logger.Debug("event ignored", logging.String("reason", result.Skipped))
		return h.finish(ctx, result, nil), nil
	}
	if ok, reason := evt.Usable(); !ok {
		result.Skipped = reason
		logger.Debug("event ignored", logging.String("reason", reason))
		return h.finish(ctx, result, nil), nil
	}

	logger.Info("transfer complete received",
		logging.String(logging.FieldEventType, "transfer_received"),
		logging.String("title", result.Title),
		logging.String("target_dir", result.TargetDir),
		logging.String("file", evt.FileName()),
	)

	h.writeStrm(ctx, logger, evt, &result)

	active := h.servers.Active(ctx, h.settings.MediaServers)
	if len(active) == 0 {
		result.NoServers = true
		logger.Info("no active media servers; refresh skipped",
			logging.String(logging.FieldEventType, "refresh_skipped"),
			logging.Strings("configured", h.settings.MediaServers),
		)
		return h.finish(ctx, result, nil), nil
	}

	if h.settings.Delay > 0 {
		logger.Info("delaying refresh",
			logging.String(logging.FieldEventType, "refresh_delayed"),
			logging.Duration("delay", h.settings.Delay),
		)
		result.Delay = h.settings.Delay
		if err := h.sleep(ctx, h.settings.Delay); err != nil {
			return h.finish(ctx, result, err), err
		}
	}

	err := h.refresh(ctx, logger, evt, active, &result)
	return h.finish(ctx, result, err), err
}

func (h *Handler) writeStrm(ctx context.Context, logger *slog.Logger, evt *event.TransferEvent, result *Result) {
	if !h.settings.Strm.Enabled() {
		return
	}
	plan, err := strm.Build(h.settings.Strm, evt)
	switch {
	case errors.Is(err, strm.ErrOutsideRoot):
		result.StrmError = err.Error()
		logging.WarnWithContext(logger, "strm file refused; path escapes strm root", "strm_rejected",
			logging.String("target_dir", evt.TargetDir()),
			logging.String("file", evt.FileName()),
			logging.String(logging.FieldErrorHint, "check the host's target path for '..' segments"),
			logging.String(logging.FieldImpact, "no pointer file for this transfer"),
		)
		return
	case err != nil:
		logging.WarnWithContext(logger, "strm file skipped", "strm_skipped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the host sends target_item or file_list_new"),
			logging.String(logging.FieldImpact, "no pointer file for this transfer"),
		)
		return
	}
	result.Strm = &plan
	if plan.SeasonSource == strm.SeasonDefault {
		logging.WarnWithContext(logger, "season unknown; using Season 0", "season_defaulted",
			logging.String("file", evt.FileName()),
			logging.String(logging.FieldErrorHint, "ensure metadata carries a season or the file name has a '- S01' marker"),
			logging.String(logging.FieldImpact, "pointer file may land in the wrong season folder"),
		)
	}
	if err := h.writer.Write(ctx, plan); err != nil {
		result.StrmError = err.Error()
		logging.ErrorWithContext(logger, "strm file write failed", "strm_failed",
			logging.String("strm_path", plan.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check strm.root exists and is writable"),
		)
		if h.notifier != nil {
			if nerr := h.notifier.NotifyStrmFailed(ctx, result.Title, plan.Path, err); nerr != nil {
				logger.Debug("strm failure notification failed", logging.Error(nerr))
			}
		}
	}
}

func (h *Handler) refresh(ctx context.Context, logger *slog.Logger, evt *event.TransferEvent, active []mediaserver.Server, result *Result) error {
	items := []mediaserver.RefreshItem{refreshItem(evt)}
	var errs []error
	for _, server := range active {
		sctx := services.WithServer(ctx, server.Name())
		serverLog := logging.WithContext(sctx, h.logger)
		scope, err := server.Refresh(sctx, items)
		entry := ServerResult{Name: server.Name(), Kind: server.Kind(), Scope: scope}
		if err != nil {
			entry.Error = err.Error()
			errs = append(errs, fmt.Errorf("refresh %s: %w", server.Name(), err))
			logging.ErrorWithContext(serverLog, "media server refresh failed", "refresh_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the server logs and api_key"),
			)
			if h.notifier != nil {
				if nerr := h.notifier.NotifyRefreshFailed(ctx, result.Title, server.Name(), err); nerr != nil {
					logger.Debug("refresh failure notification failed", logging.Error(nerr))
				}
			}
		} else {
			serverLog.Info("media server refreshed",
				logging.String(logging.FieldEventType, "refresh_sent"),
				logging.String("scope", string(scope)),
			)
		}
		result.Refreshed = append(result.Refreshed, entry)
	}
	return errors.Join(errs...)
}

func refreshItem(evt *event.TransferEvent) mediaserver.RefreshItem {
	item := mediaserver.RefreshItem{TargetPath: evt.TargetDir()}
	if m := evt.MediaInfo; m != nil {
		item.Title = m.Title
		item.Year = m.Year
		item.Type = string(m.Type)
		item.Category = m.Category
	}
	return item
}

func (h *Handler) finish(ctx context.Context, result Result, err error) Result {
	result.FinishedAt = h.now().UTC()
	if result.Skipped == "" && err == nil && h.notifier != nil && (result.StrmWritten() || len(result.Refreshed) > 0) {
		if nerr := h.notifier.NotifyCompleted(ctx, result.Title, strmPath(result), result.ServerNames()); nerr != nil {
			h.logger.Debug("completion notification failed", logging.Error(nerr))
		}
	}
	if h.recorder != nil {
		// Shutdown may have cancelled ctx; the outcome is still recorded.
		if rerr := h.recorder.Record(context.WithoutCancel(ctx), result.Entry(err)); rerr != nil {
			logging.WarnWithContext(logging.WithContext(ctx, h.logger), "history record failed", "history_failed",
				logging.Error(rerr),
				logging.String(logging.FieldImpact, "event missing from history"),
			)
		}
	}
	return result
}

func strmPath(r Result) string {
	if r.StrmWritten() {
		return r.Strm.Path
	}
	return ""
}

// Entry converts the result into a history row. err is the handler's
// returned error, if any.
func (r Result) Entry(err error) history.Entry {
	entry := history.Entry{
		EventID:    r.EventID,
		ReceivedAt: r.StartedAt,
		Title:      r.Title,
		MediaType:  r.MediaType,
		TargetDir:  r.TargetDir,
		Skipped:    r.Skipped,
		StrmError:  r.StrmError,
		Servers:    r.ServerNames(),
		DurationMS: r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	}
	if r.Strm != nil {
		entry.StrmPath = r.Strm.Path
	}
	if err != nil {
		entry.RefreshError = err.Error()
		entry.ErrorCategory = services.Category(err)
	}
	return entry
}

// SleepContext waits for d unless ctx ends first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
