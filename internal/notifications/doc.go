// Package notifications pushes strmrefresh events to ntfy.
//
// The ntfy implementation posts plain-text messages with Title, Tags, and
// Priority headers to the topic URL from config.toml. Each kind of event can
// be switched off individually, and the package degrades to a no-op when no
// topic is configured, so callers never need to nil-check.
package notifications
