package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"strmrefresh/internal/config"
	"strmrefresh/internal/mediaserver"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Prober reports media-server reachability.
type Prober interface {
	Probe(ctx context.Context) []mediaserver.Status
}

// RunAll executes all applicable preflight checks for the given config.
// prober may be nil, in which case media servers are not contacted.
func RunAll(ctx context.Context, cfg *config.Config, prober Prober) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// State directory (always checked)
	results = append(results, CheckWritableDir("State directory", cfg.Paths.StateDir))

	// Strm root (when configured)
	if strings.TrimSpace(cfg.Strm.Root) != "" {
		results = append(results, CheckDirectoryAccess("Strm root", cfg.Strm.Root))
	}

	// Spool directory (when configured)
	if strings.TrimSpace(cfg.Paths.SpoolDir) != "" {
		results = append(results, CheckWritableDir("Spool directory", cfg.Paths.SpoolDir))
	}

	if !cfg.Plugin.Enabled {
		results = append(results, Result{Name: "Plugin", Passed: true, Detail: "disabled; events are ignored"})
	}

	if prober != nil {
		results = append(results, CheckMediaServers(ctx, prober, cfg.Plugin.MediaServers)...)
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	return slices.ContainsFunc(results, func(r Result) bool { return !r.Passed })
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableDir passes when path is an accessible directory or when it is
// missing but its nearest existing parent allows creating it.
func CheckWritableDir(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(filepath.Clean(path))
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckMediaServers probes every configured server. Servers referenced by
// plugin.media_servers but missing from the configuration fail.
func CheckMediaServers(ctx context.Context, prober Prober, selected []string) []Result {
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	statuses := prober.Probe(checkCtx)
	known := make(map[string]struct{}, len(statuses))
	results := make([]Result, 0, len(statuses)+len(selected))
	for _, st := range statuses {
		known[st.Name] = struct{}{}
		results = append(results, serverResult(st, slices.Contains(selected, st.Name)))
	}
	for _, name := range selected {
		if _, ok := known[name]; !ok {
			results = append(results, Result{Name: "Media server " + name, Detail: "selected but not configured"})
		}
	}
	return results
}

func serverResult(st mediaserver.Status, selected bool) Result {
	name := fmt.Sprintf("Media server %s (%s)", st.Name, st.Kind)
	usage := "not selected"
	if selected {
		usage = "selected"
	}
	switch {
	case !st.Enabled:
		return Result{Name: name, Passed: true, Detail: "disabled"}
	case !st.Reachable:
		return Result{Name: name, Passed: !selected, Detail: fmt.Sprintf("unreachable, %s (%s)", usage, st.Error)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable in %s, %s", st.Latency.Round(time.Millisecond), usage)}
	}
}
