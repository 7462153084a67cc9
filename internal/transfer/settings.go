package transfer

import (
	"time"

	"strmrefresh/internal/config"
	"strmrefresh/internal/strm"
)

// Settings is the immutable handler configuration.
type Settings struct {
	Enabled      bool
	Delay        time.Duration
	MediaServers []string
	Strm         strm.Options
}

// SettingsFromConfig snapshots the handler-relevant parts of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{}
	}
	return Settings{
		Enabled:      cfg.Plugin.Enabled,
		Delay:        cfg.Delay(),
		MediaServers: append([]string(nil), cfg.Plugin.MediaServers...),
		Strm: strm.Options{
			Root:             cfg.Strm.Root,
			RemoteBaseURL:    cfg.Strm.RemoteBaseURL,
			NormalizeUnicode: cfg.Strm.NormalizeUnicode,
		},
	}
}
