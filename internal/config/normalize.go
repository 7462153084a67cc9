package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStrm(); err != nil {
		return err
	}
	c.normalizePlugin()
	c.normalizeMediaServers()
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.SpoolDir = strings.TrimSpace(c.Paths.SpoolDir)
	if c.Paths.SpoolDir != "" {
		if c.Paths.SpoolDir, err = expandPath(c.Paths.SpoolDir); err != nil {
			return fmt.Errorf("paths.spool_dir: %w", err)
		}
	}
	return nil
}

// normalizeStrm leaves both prefixes with exactly one trailing slash so the
// remote URL and the local directory can be built by plain concatenation.
func (c *Config) normalizeStrm() error {
	root := strings.TrimSpace(c.Strm.Root)
	if root != "" {
		expanded, err := expandPath(root)
		if err != nil {
			return fmt.Errorf("strm.root: %w", err)
		}
		root = withTrailingSlash(expanded)
	}
	c.Strm.Root = root

	base := strings.TrimSpace(c.Strm.RemoteBaseURL)
	if base != "" {
		base = withTrailingSlash(base)
	}
	c.Strm.RemoteBaseURL = base
	return nil
}

func withTrailingSlash(value string) string {
	return strings.TrimRight(value, "/") + "/"
}

func (c *Config) normalizePlugin() {
	names := make([]string, 0, len(c.Plugin.MediaServers))
	seen := make(map[string]struct{}, len(c.Plugin.MediaServers))
	for _, name := range c.Plugin.MediaServers {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	c.Plugin.MediaServers = names
}

func (c *Config) normalizeMediaServers() {
	for i := range c.MediaServers {
		server := &c.MediaServers[i]
		server.Name = strings.TrimSpace(server.Name)
		server.Type = strings.ToLower(strings.TrimSpace(server.Type))
		server.URL = strings.TrimRight(strings.TrimSpace(server.URL), "/")
		server.APIKey = strings.TrimSpace(server.APIKey)
		if server.Name == "" {
			server.Name = server.Type
		}
		if server.APIKey == "" {
			if value, ok := os.LookupEnv(envKeyForType(server.Type)); ok {
				server.APIKey = strings.TrimSpace(value)
			}
		}
		if server.TimeoutSeconds <= 0 {
			server.TimeoutSeconds = defaultServerTimeoutSeconds
		}
	}
}

func envKeyForType(kind string) string {
	switch kind {
	case ServerTypeEmby:
		return "EMBY_API_KEY"
	case ServerTypeJellyfin:
		return "JELLYFIN_API_KEY"
	case ServerTypePlex:
		return "PLEX_TOKEN"
	default:
		return ""
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("STRMREFRESH_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
