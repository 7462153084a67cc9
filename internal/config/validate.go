package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlugin(); err != nil {
		return err
	}
	if err := c.validateStrm(); err != nil {
		return err
	}
	if err := c.validateMediaServers(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePlugin() error {
	if d := c.Plugin.DelaySeconds; math.IsNaN(d) || d < 0 || d > MaxDelaySeconds {
		return fmt.Errorf("plugin.delay_seconds must be between 0 and %d", MaxDelaySeconds)
	}
	for _, name := range c.Plugin.MediaServers {
		if _, ok := c.MediaServer(name); !ok {
			return fmt.Errorf("plugin.media_servers references unknown server %q", name)
		}
	}
	return nil
}

func (c *Config) validateStrm() error {
	if c.Strm.RemoteBaseURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Strm.RemoteBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("strm.remote_base_url %q must be an absolute URL", c.Strm.RemoteBaseURL)
	}
	return nil
}

func (c *Config) validateMediaServers() error {
	seen := make(map[string]struct{}, len(c.MediaServers))
	for i, server := range c.MediaServers {
		label := fmt.Sprintf("media_server[%d]", i)
		if server.Name != "" {
			label = fmt.Sprintf("media_server %q", server.Name)
		}
		switch server.Type {
		case ServerTypeEmby, ServerTypeJellyfin, ServerTypePlex:
		case "":
			return fmt.Errorf("%s: type is required", label)
		default:
			return fmt.Errorf("%s: unsupported type %q (want emby, jellyfin, or plex)", label, server.Type)
		}
		if _, dup := seen[server.Name]; dup {
			return fmt.Errorf("%s: duplicate name", label)
		}
		seen[server.Name] = struct{}{}
		if server.Disabled {
			continue
		}
		if server.URL == "" {
			return fmt.Errorf("%s: url is required", label)
		}
		if parsed, err := url.Parse(server.URL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s: url %q must be an absolute URL", label, server.URL)
		}
		if server.APIKey == "" {
			return fmt.Errorf("%s: api_key is required (set %s or edit the config)", label, envKeyForType(server.Type))
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if !strings.HasPrefix(c.Notifications.NtfyTopic, "http://") && !strings.HasPrefix(c.Notifications.NtfyTopic, "https://") {
		return errors.New("notifications.ntfy_topic must be a full http(s) URL")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is invalid (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is invalid", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
