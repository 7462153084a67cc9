// Package logs reads the plugin's log files for the CLI.
//
// Tail returns the last N lines of a log with bounded memory, optionally
// filtered to lines mentioning a given event id or substring. Follow then
// streams appended lines, watching the log directory with fsnotify so a new
// daemon run (which re-points strmrefresh.log at a fresh file) is picked up
// without restarting the command.
package logs
