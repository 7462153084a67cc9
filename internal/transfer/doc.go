// Package transfer reacts to "transfer complete" events.
//
// Handler runs the fixed pipeline for one event: skip when disabled or the
// payload is unusable, write the .strm pointer file when a strm root is
// configured, resolve the active media servers, wait the configured delay,
// then ask each active server to refresh. Pointer-file failures are logged
// and recorded but never block the refresh; refresh failures are returned.
// Nothing is retried and nothing is rolled back.
package transfer
