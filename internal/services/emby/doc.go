// Package emby refreshes individual paths on an Emby server through the
// /Library/Media/Updated endpoint.
package emby
