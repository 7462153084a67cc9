// Package services defines shared utilities consumed by the transfer handler
// and the media-server integrations.
//
// Key responsibilities:
//   - Context helpers that stamp event IDs, media-server names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry the
//     component and operation that produced them.
//
// Use these helpers when wiring new integrations so error text and log fields
// stay uniform across intake paths.
package services
