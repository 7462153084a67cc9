package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Media server kinds understood by the registry.
const (
	ServerTypeEmby     = "emby"
	ServerTypeJellyfin = "jellyfin"
	ServerTypePlex     = "plex"
)

// MaxDelaySeconds caps plugin.delay_seconds.
const MaxDelaySeconds = 3600

// Plugin holds the transfer handler switches.
type Plugin struct {
	Enabled      bool     `toml:"enabled"`
	DelaySeconds float64  `toml:"delay_seconds"`
	MediaServers []string `toml:"media_servers"`
}

// Strm configures pointer-file generation.
type Strm struct {
	Root             string `toml:"root"`
	RemoteBaseURL    string `toml:"remote_base_url"`
	NormalizeUnicode bool   `toml:"normalize_unicode"`
}

// MediaServer describes one Emby, Jellyfin, or Plex connection.
type MediaServer struct {
	Name           string `toml:"name"`
	Type           string `toml:"type"`
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	Disabled       bool   `toml:"disabled"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Paths contains state, log, and spool directories.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	SpoolDir string `toml:"spool_dir"`
}

// API configures the webhook/status HTTP server.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	StrmErrors     bool   `toml:"strm_errors"`
	RefreshErrors  bool   `toml:"refresh_errors"`
	Completed      bool   `toml:"completed"`
}

// History configures the handled-event log.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for strmrefresh.
//
// Configuration sections by subsystem:
//   - Plugin: enabled flag, refresh delay, media servers to refresh
//   - Strm: local strm root and remote base URL
//   - MediaServers: Emby/Jellyfin/Plex connection definitions
//   - Paths: state, log, and spool directories
//   - API: webhook bind address and bearer token
//   - Notifications: ntfy push notification settings
//   - History: handled-event log retention
//   - Logging: log format, level, and retention
type Config struct {
	Plugin        Plugin        `toml:"plugin"`
	Strm          Strm          `toml:"strm"`
	MediaServers  []MediaServer `toml:"media_server"`
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("strmrefresh.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The strm root is created on a best-effort basis so the daemon can run when
// the library mount is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Paths.SpoolDir != "" {
		if err := os.MkdirAll(c.Paths.SpoolDir, 0o755); err != nil {
			return fmt.Errorf("create spool directory %q: %w", c.Paths.SpoolDir, err)
		}
	}
	if c.Strm.Root != "" {
		_ = os.MkdirAll(c.Strm.Root, 0o755)
	}
	return nil
}

// Delay returns the configured pre-refresh delay.
func (c *Config) Delay() time.Duration {
	seconds := c.Plugin.DelaySeconds
	if !(seconds > 0) {
		return 0
	}
	seconds = min(seconds, MaxDelaySeconds)
	return time.Duration(seconds * float64(time.Second))
}

// MediaServer returns the connection definition with the given name.
func (c *Config) MediaServer(name string) (MediaServer, bool) {
	name = strings.TrimSpace(name)
	for _, server := range c.MediaServers {
		if server.Name == name {
			return server, true
		}
	}
	return MediaServer{}, false
}

// HistoryPath returns the SQLite database location for the event history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "strmrefresh.lock")
}

// Timeout returns the HTTP timeout for the connection.
func (s MediaServer) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return defaultServerTimeoutSeconds * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
