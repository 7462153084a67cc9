package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"strmrefresh/internal/event"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/services"
	"strmrefresh/internal/transfer"
)

// Handler processes one transfer event.
type Handler interface {
	Handle(ctx context.Context, evt *event.TransferEvent) (transfer.Result, error)
}

// Stats counts dispatched events since start-up.
type Stats struct {
	Handled   int64     `json:"handled"`
	Skipped   int64     `json:"skipped"`
	Failed    int64     `json:"failed"`
	LastEvent time.Time `json:"last_event,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Dispatcher delivers events to a Handler one at a time.
type Dispatcher struct {
	handler Handler
	logger  *slog.Logger

	mu sync.Mutex

	statsMu sync.RWMutex
	stats   Stats
}

// New constructs a dispatcher around handler.
func New(handler Handler, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Dispatch runs the handler for evt while holding the dispatch lock. A
// request id is attached to ctx when the caller did not supply one.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *event.TransferEvent) (transfer.Result, error) {
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return transfer.Result{}, err
	}

	start := time.Now()
	result, err := d.handler.Handle(ctx, evt)
	d.observe(result, err)

	logger := logging.WithContext(ctx, d.logger)
	if err != nil {
		logger.Warn("event dispatched with errors",
			logging.String(logging.FieldEventType, "dispatch_failed"),
			logging.String(logging.FieldEventID, result.EventID),
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(err),
		)
	} else {
		logger.Debug("event dispatched",
			logging.String(logging.FieldEventID, result.EventID),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
	return result, err
}

func (d *Dispatcher) observe(result transfer.Result, err error) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.stats.Handled++
	d.stats.LastEvent = time.Now().UTC()
	switch {
	case err != nil:
		d.stats.Failed++
		d.stats.LastError = err.Error()
	case result.Skipped != "":
		d.stats.Skipped++
	}
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	d.statsMu.RLock()
	defer d.statsMu.RUnlock()
	return d.stats
}
