// Package event models the "transfer complete" notification that drives
// strmrefresh.
//
// Decode accepts the host's enveloped payload as well as the bare
// transferinfo/mediainfo object, tolerating the loose typing of host JSON
// (years and seasons as numbers or strings, localized media type labels).
package event
