// Package history persists a log of handled transfer events in SQLite.
//
// Every event the handler sees is recorded: skipped ones with their reason,
// handled ones with the pointer-file path, refreshed servers, and any error.
// The CLI and the daemon's API read it back newest first. Rows older than
// the retention window are pruned by the daemon.
package history
