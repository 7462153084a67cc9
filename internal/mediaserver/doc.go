// Package mediaserver defines the refresh capability shared by Emby,
// Jellyfin, and Plex connections and the registry that resolves which
// configured connections are currently active.
//
// Backends differ in how precisely they can refresh: some accept the path of
// the new item, others can only rescan their whole library. Server.Refresh
// reports which Scope it used so callers can log the blast radius.
package mediaserver
