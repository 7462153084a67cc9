// Package backends wires the Emby, Jellyfin, and Plex clients into a
// mediaserver.Registry.
package backends

import (
	"log/slog"

	"strmrefresh/internal/config"
	"strmrefresh/internal/mediaserver"
	"strmrefresh/internal/services/emby"
	"strmrefresh/internal/services/jellyfin"
	"strmrefresh/internal/services/plex"
)

// Builders returns the constructor for every supported server type.
func Builders() map[string]mediaserver.Builder {
	return map[string]mediaserver.Builder{
		config.ServerTypeEmby:     emby.New,
		config.ServerTypeJellyfin: jellyfin.New,
		config.ServerTypePlex:     plex.New,
	}
}

// NewRegistry builds a registry for every [[media_server]] in cfg.
func NewRegistry(cfg *config.Config, logger *slog.Logger) (*mediaserver.Registry, error) {
	return mediaserver.NewRegistry(cfg.MediaServers, Builders(), logger)
}
