package tunnel

import "errors"

// Sentinel errors for tunnel lifecycle failures. Callers match them with
// errors.Is; the wrapped message carries the service/port detail.
var (
	// ErrPortInUse means the local listener could not bind because the port
	// is already taken.
	ErrPortInUse = errors.New("local port already in use")

	// ErrDuplicateTunnel means a tunnel for the same (service, port) pair is
	// already registered.
	ErrDuplicateTunnel = errors.New("tunnel already registered")

	// ErrStopNotAcknowledged means a stop signal could not be delivered, or
	// the tunnel did not acknowledge shutdown in time.
	ErrStopNotAcknowledged = errors.New("tunnel stop not acknowledged")

	// ErrProtocol marks a transport failure on an established forward stream.
	ErrProtocol = errors.New("tunnel transport failure")
)
