// Package dispatch serialises transfer events from every intake (HTTP
// webhook, spool directory, CLI) onto a single handler so events are
// processed one at a time, in arrival order.
package dispatch
