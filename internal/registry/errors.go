package registry

import "errors"

// Domain errors for the registry package.
var (
	// ErrInvalidDeviceID is returned when a proposed identifier is not three digits.
	ErrInvalidDeviceID = errors.New("registry: invalid device id")

	// ErrNotFound is returned when a key has no record.
	ErrNotFound = errors.New("registry: not found")

	// ErrConnClosed is returned by Conn implementations once the transport
	// has left the open state. Callers treat it as "target gone".
	ErrConnClosed = errors.New("registry: connection closed")
)
