package livesync

import (
	"context"

	"trimreview/internal/instruction"
	"trimreview/internal/push"
)

// PollSource fetches the full review queue.
type PollSource interface {
	FetchPending(ctx context.Context) ([]instruction.Instruction, error)
}

// PushConn is a live push connection.
type PushConn interface {
	// ReadRecord blocks for the next record. Errors wrapping
	// instruction.ErrMalformedRecord leave the connection usable.
	ReadRecord() (instruction.Instruction, error)
	Close() error
}

// PushDialer opens push connections.
type PushDialer interface {
	Dial(ctx context.Context) (PushConn, error)
}

// PushDialerFunc adapts a function to PushDialer.
type PushDialerFunc func(ctx context.Context) (PushConn, error)

// Dial implements PushDialer.
func (f PushDialerFunc) Dial(ctx context.Context) (PushConn, error) {
	return f(ctx)
}

// WebsocketDialer adapts a push.Dialer.
func WebsocketDialer(d *push.Dialer) PushDialer {
	return PushDialerFunc(func(ctx context.Context) (PushConn, error) {
		conn, err := d.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

// Transitioner performs state transitions against the authoritative store.
type Transitioner interface {
	Transition(ctx context.Context, id string, action instruction.Action, reason string) (instruction.Instruction, error)
}

// Store is everything a Session needs from the instruction store.
type Store interface {
	PollSource
	Transitioner
}
