// Package livesync keeps a reviewer's view of in-flight instructions current.
//
// A Supervisor runs two producers against the instruction store: a websocket
// push connection and an HTTP poll loop. Polling starts immediately and pauses
// while push is live; when push drops, polling resumes at once and the push
// connection is re-dialed after a fixed delay, forever, until Close. Records
// from both producers flow through one buffered queue into a single
// reconciliation goroutine. Transition replies are merged by the caller.
// Subscribers are never called concurrently.
//
// Session is the surface handed to user interfaces: Subscribe for grouped
// snapshots, RequestTransition to approve or reject through the store, and
// Status for channel liveness.
package livesync
