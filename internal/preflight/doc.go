// Package preflight provides readiness checks for the filesystem paths and
// media servers strmrefresh depends on.
//
// These checks run in two contexts:
//   - The daemon logs RunAll results at start-up so misconfiguration shows up
//     before the first event arrives.
//   - The CLI "strmrefresh preflight" command prints the same results and
//     exits non-zero when any check fails.
//
// Checks for unconfigured features are skipped.
package preflight
