// Package config loads, normalizes, and validates strmrefresh configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for media
// server credentials. The Config type centralizes every knob the daemon and
// CLI need: the handler switches, the strm root and remote base URL, the
// media-server connections, and the ambient paths for state and logs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, normalized slashes, and clear validation errors.
package config
