// Package unix provides a connection provider for Unix domain sockets.
package unix

import (
	"net"
	"time"

	"github.com/ValentinKolb/dSM/remote/common"
	"github.com/ValentinKolb/dSM/remote/provider"
	"github.com/ValentinKolb/dSM/remote/provider/base"
)

// connector implements the base.IConnector interface for Unix sockets
type connector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IConnector)
// --------------------------------------------------------------------------

func (c *connector) GetName() string {
	return "unix"
}

func (c *connector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", endpoint, timeout)
}

// --------------------------------------------------------------------------
// Provider Factory Method
// --------------------------------------------------------------------------

// NewUnixProvider creates a new Unix socket connection provider
func NewUnixProvider(config common.DispatcherConfig) provider.IConnectionProvider {
	return base.NewBaseProvider(&connector{}, config)
}
