package mediaserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"strmrefresh/internal/config"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/services"
)

// Builder constructs a Server from its configuration.
type Builder func(cfg config.MediaServer) (Server, error)

type entry struct {
	cfg    config.MediaServer
	server Server
}

// Registry holds every configured media-server connection.
type Registry struct {
	entries []entry
	byName  map[string]int
	logger  *slog.Logger
}

// NewRegistry builds a connection for every configured server using the
// builder registered for its type.
func NewRegistry(servers []config.MediaServer, builders map[string]Builder, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]int, len(servers)),
		logger: logging.NewComponentLogger(logger, "mediaserver"),
	}
	for _, cfg := range servers {
		build, ok := builders[cfg.Type]
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "mediaserver", "build",
				fmt.Sprintf("no backend for type %q (server %q)", cfg.Type, cfg.Name), nil)
		}
		server, err := build(cfg)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "mediaserver", "build",
				fmt.Sprintf("server %q", cfg.Name), err)
		}
		if _, dup := r.byName[cfg.Name]; dup {
			return nil, services.Wrap(services.ErrConfiguration, "mediaserver", "build",
				fmt.Sprintf("duplicate server name %q", cfg.Name), nil)
		}
		r.byName[cfg.Name] = len(r.entries)
		r.entries = append(r.entries, entry{cfg: cfg, server: server})
	}
	return r, nil
}

// Status is the outcome of probing one connection.
type Status struct {
	Name      string        `json:"name"`
	Kind      string        `json:"kind"`
	URL       string        `json:"url"`
	Enabled   bool          `json:"enabled"`
	Reachable bool          `json:"reachable"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// Probe pings every enabled connection concurrently. Results follow
// configuration order.
func (r *Registry) Probe(ctx context.Context) []Status {
	statuses := make([]Status, len(r.entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range r.entries {
		statuses[i] = Status{Name: e.cfg.Name, Kind: e.server.Kind(), URL: e.cfg.URL, Enabled: !e.cfg.Disabled}
		if e.cfg.Disabled {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			err := e.server.Ping(services.WithServer(gctx, e.cfg.Name))
			statuses[i].Latency = time.Since(start)
			if err != nil {
				statuses[i].Error = err.Error()
				return nil
			}
			statuses[i].Reachable = true
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}

// Active returns the named connections that are enabled and answer a ping,
// in the order given. Unknown, disabled, and unreachable servers are logged
// and skipped.
func (r *Registry) Active(ctx context.Context, names []string) []Server {
	logger := logging.WithContext(ctx, r.logger)

	candidates := make([]entry, 0, len(names))
	for _, name := range names {
		idx, ok := r.byName[name]
		if !ok {
			logging.WarnWithContext(logger, "media server not configured; skipping", "server_unknown",
				logging.String(logging.FieldServer, name),
				logging.String(logging.FieldErrorHint, "add a [[media_server]] entry or remove it from plugin.media_servers"),
				logging.String(logging.FieldImpact, "server will not be refreshed"),
			)
			continue
		}
		e := r.entries[idx]
		if e.cfg.Disabled {
			logging.WarnWithContext(logger, "media server disabled; skipping", "server_disabled",
				logging.String(logging.FieldServer, name),
				logging.String(logging.FieldErrorHint, "set disabled = false to refresh it"),
				logging.String(logging.FieldImpact, "server will not be refreshed"),
			)
			continue
		}
		candidates = append(candidates, e)
	}

	reachable := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range candidates {
		g.Go(func() error {
			if err := e.server.Ping(services.WithServer(gctx, e.cfg.Name)); err != nil {
				logging.WarnWithContext(logger, "media server unreachable; skipping", "server_unreachable",
					logging.String(logging.FieldServer, e.cfg.Name),
					logging.String("url", e.cfg.URL),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the server url and that it is running"),
					logging.String(logging.FieldImpact, "server will not be refreshed for this event"),
				)
				return nil
			}
			reachable[i] = true
			return nil
		})
	}
	_ = g.Wait()

	active := make([]Server, 0, len(candidates))
	for i, e := range candidates {
		if reachable[i] {
			active = append(active, e.server)
		}
	}
	return active
}
