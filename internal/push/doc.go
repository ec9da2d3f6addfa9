// Package push implements the websocket push channel for instruction updates.
//
// Hub is the server side mounted at /ws/updates: every committed store
// mutation is broadcast to connected clients as one Instruction JSON record per
// text frame. Dialer and Conn are the client side used by the live sync
// supervisor. Conn reports undecodable frames as malformed records without
// closing the connection, so callers can drop them and keep reading.
package push
