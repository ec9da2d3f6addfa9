// Package store is the reference Instruction Store: SQLite-backed persistence
// that owns canonical instruction state and the task history.
//
// Every mutation runs the instruction state machine inside a transaction and
// stamps a strictly increasing updatedAt per instruction, so downstream
// reconcilers can order records by timestamp alone. Busy database errors are
// retried with exponential backoff. Subscribers registered through OnChange
// are told about every committed mutation; the daemon uses this to fan
// records out over the push channel and to ntfy.
package store
