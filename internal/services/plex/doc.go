// Package plex refreshes individual paths on a Plex Media Server.
//
// The client resolves which library section owns a path by matching the
// section locations returned by /library/sections (cached after the first
// lookup) and asks that section to rescan just the path. Paths outside every
// known location fall back to the cross-library refresh endpoint.
package plex
