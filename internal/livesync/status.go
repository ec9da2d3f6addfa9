package livesync

import "time"

// ChannelState describes which delivery channel currently keeps the view live.
type ChannelState string

const (
	StateDisconnected ChannelState = "disconnected"
	StateConnecting   ChannelState = "connecting"
	StateLivePush     ChannelState = "live_push"
	StateLivePoll     ChannelState = "live_poll"
)

// Status reports channel liveness.
type Status struct {
	State ChannelState
	// LastHeartbeat is the last successful poll or push open/message.
	LastHeartbeat time.Time
	// Stale is set when push is down and no heartbeat arrived within the
	// configured window.
	Stale bool
	// LastError is the most recent transient failure, cleared by the next
	// successful poll or push connect.
	LastError error
	Records   int
	Dropped   uint64
}
