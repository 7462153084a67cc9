package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"strmrefresh/internal/config"
	"strmrefresh/internal/event"
	"strmrefresh/internal/history"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/services"
	"strmrefresh/internal/transfer"
)

const (
	maxEventBytes       = 1 << 20
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// EventResponse is the body returned for a posted transfer event.
type EventResponse struct {
	Result transfer.Result `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// ServersResponse lists probed media servers.
type ServersResponse struct {
	Servers []mediaserver.Status `json:"servers"`
}

// HistoryResponse lists recent handled events.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	router http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(srv.requestID)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		srv.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		srv.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(cfg.API.Token))
		r.Post("/api/events/transfer-complete", srv.handleTransferComplete)
		r.Get("/api/status", srv.handleStatus)
		r.Get("/api/servers", srv.handleServers)
		r.Get("/api/history", srv.handleHistory)
	})
	srv.router = r

	return srv
}

func (s *apiServer) start() error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	server := s.server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.server = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleTransferComplete(w http.ResponseWriter, r *http.Request) {
	evt, err := event.Decode(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		logging.WithContext(r.Context(), s.logger).Warn("rejected transfer event",
			logging.String(logging.FieldEventType, "event_rejected"),
			logging.Error(err),
		)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.daemon.Dispatch(r.Context(), evt)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, EventResponse{Result: result})
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.writeJSON(w, http.StatusServiceUnavailable, EventResponse{Result: result, Error: err.Error()})
	default:
		s.writeJSON(w, http.StatusBadGateway, EventResponse{Result: result, Error: err.Error()})
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleServers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ServersResponse{Servers: s.daemon.Servers(r.Context())})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}
	entries, err := s.daemon.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
