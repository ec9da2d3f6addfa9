// Package daemon runs the reference instruction store: the SQLite-backed
// store, the HTTP API reviewers poll and act through, and the websocket hub
// that pushes every committed change.
//
// The daemon enforces single-instance execution with a flock on the data
// directory, maps bearer tokens to configured users, and forwards store
// changes to ntfy notifications. Keep domain rules in internal/instruction
// and persistence in internal/store; this package owns startup, shutdown,
// and transport glue.
package daemon
