package transfer

import (
	"time"

	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/strm"
)

// Skip reasons reported in Result.Skipped.
const (
	SkipDisabled = "plugin disabled"
)

// ServerResult is the outcome of refreshing one media server.
type ServerResult struct {
	Name  string            `json:"name"`
	Kind  string            `json:"kind"`
	Scope mediaserver.Scope `json:"scope"`
	Error string            `json:"error,omitempty"`
}

// Result summarizes what the handler did for one event.
type Result struct {
	EventID    string         `json:"event_id"`
	Title      string         `json:"title,omitempty"`
	MediaType  string         `json:"media_type,omitempty"`
	TargetDir  string         `json:"target_dir,omitempty"`
	Skipped    string         `json:"skipped,omitempty"`
	Strm       *strm.Plan     `json:"strm,omitempty"`
	StrmError  string         `json:"strm_error,omitempty"`
	Delay      time.Duration  `json:"delay,omitempty"`
	NoServers  bool           `json:"no_active_servers,omitempty"`
	Refreshed  []ServerResult `json:"refreshed,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// StrmWritten reports whether a pointer file was written.
func (r Result) StrmWritten() bool {
	return r.Strm != nil && r.StrmError == ""
}

// RefreshFailed reports whether any server refresh failed.
func (r Result) RefreshFailed() bool {
	for _, s := range r.Refreshed {
		if s.Error != "" {
			return true
		}
	}
	return false
}

// ServerNames lists the servers a refresh was attempted on.
func (r Result) ServerNames() []string {
	names := make([]string, 0, len(r.Refreshed))
	for _, s := range r.Refreshed {
		names = append(names, s.Name)
	}
	return names
}
