package provider

import (
	"net"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IConnectionProvider supplies connected, writable byte-stream endpoints to
// the socket dispatcher. Reconnection and backoff are the provider's concern,
// the dispatcher only asks for the next usable connection.
type IConnectionProvider interface {
	// AcquireConnection blocks until a connection is available or the
	// provider's retry budget is exhausted.
	AcquireConnection() (net.Conn, error)

	// GetName returns the name of the provider type (e.g. "unix", "tcp")
	GetName() string
}
