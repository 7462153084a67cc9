// Package spool turns a directory into an event intake. The host (or any
// script) drops one JSON transfer event per file into the spool directory;
// the watcher decodes and dispatches each file and then files it under
// done/ or, when the payload cannot be decoded, failed/.
//
// Writers should create files under a temporary name and rename them into
// place. Names starting with "." are ignored.
package spool
