package livesync

import "errors"

var (
	// ErrChannelUnavailable indicates the push channel could not be reached.
	// It is reported as a warning; polling keeps the view fresh meanwhile.
	ErrChannelUnavailable = errors.New("push channel unavailable")
	// ErrTransientIO wraps poll failures and malformed poll responses. The poll
	// loop keeps running after reporting it.
	ErrTransientIO = errors.New("transient io failure")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("live sync closed")
)
