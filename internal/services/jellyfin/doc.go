// Package jellyfin triggers Jellyfin library scans.
//
// Jellyfin exposes no endpoint to refresh a single path, so every refresh
// rescans the whole library.
package jellyfin
