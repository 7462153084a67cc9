package testsupport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Request is one call received by a StubServer.
type Request struct {
	Method string
	Path   string
	Query  string
	Token  string
	Body   string
}

// StubServer answers the Emby, Jellyfin, and Plex endpoints strmrefresh
// uses and records every call.
type StubServer struct {
	URL string

	mu       sync.Mutex
	requests []Request
}

// NewStubServer starts a stub media server closed on test cleanup.
func NewStubServer(t testing.TB) *StubServer {
	t.Helper()

	stub := &StubServer{}
	srv := httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(srv.Close)
	stub.URL = srv.URL
	return stub
}

func (s *StubServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	token := r.Header.Get("X-Emby-Token")
	if token == "" {
		token = r.Header.Get("X-Plex-Token")
	}
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Token:  token,
		Body:   string(body),
	})
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/identity" || strings.HasPrefix(r.URL.Path, "/library/sections"):
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<MediaContainer size="0"></MediaContainer>`)
	case strings.HasSuffix(r.URL.Path, "/System/Info/Public"):
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ServerName":"stub","Version":"10.9.0"}`)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Requests returns a copy of the calls received so far.
func (s *StubServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls returns the recorded calls whose path equals path.
func (s *StubServer) Calls(path string) []Request {
	var out []Request
	for _, req := range s.Requests() {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}
