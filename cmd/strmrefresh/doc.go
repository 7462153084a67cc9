// Package main hosts the strmrefresh CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon ("serve"), handles single
// events from a file or stdin ("handle"), and inspects media servers, the
// event history, logs, and configuration. Commands resolve configuration once
// through commandContext and build the same internal components the daemon
// uses, so a one-shot "handle" behaves exactly like a webhook delivery.
package main
