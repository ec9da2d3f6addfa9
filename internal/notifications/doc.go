// Package notifications delivers review workflow events via ntfy.
//
// The default implementation publishes to the topic configured under
// [notifications] and degrades to a no-op when no topic is set. Each event
// family can be switched off individually; suppressed events return nil
// without touching the network.
package notifications
