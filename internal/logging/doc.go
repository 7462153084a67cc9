// Package logging assembles structured slog loggers and formatting helpers used
// across strmrefresh.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so handler code automatically
// tags log lines with event IDs, media-server names, and correlation IDs.
// Credentials passed as attributes are redacted before they reach any sink.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
