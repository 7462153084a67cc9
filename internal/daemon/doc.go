// Package daemon coordinates the long-running strmrefresh process.
//
// It wires configuration, the media-server registry, the event history, and
// the transfer handler into a single lifecycle with flock-based locking to
// prevent multiple instances. Events reach the handler through the HTTP API
// and the optional spool directory; both go through one dispatcher so they
// are processed serially.
//
// Keep orchestration logic here: pointer-file and refresh behaviour belong to
// the transfer package while the daemon focuses on startup, shutdown, and
// intake.
package daemon
