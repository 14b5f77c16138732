package hub

import "errors"

// Domain errors for the hub package.
var (
	// ErrSendBufferFull is returned when a connection's outbound queue is full.
	ErrSendBufferFull = errors.New("hub: send buffer full")
)
