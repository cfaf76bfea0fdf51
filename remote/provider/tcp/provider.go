// Package tcp provides a connection provider for TCP sockets.
package tcp

import (
	"net"
	"time"

	"github.com/ValentinKolb/dSM/remote/common"
	"github.com/ValentinKolb/dSM/remote/provider"
	"github.com/ValentinKolb/dSM/remote/provider/base"
)

// connector implements the base.IConnector interface for TCP sockets
type connector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IConnector)
// --------------------------------------------------------------------------

func (c *connector) GetName() string {
	return "tcp"
}

func (c *connector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, timeout)
}

// --------------------------------------------------------------------------
// Provider Factory Method
// --------------------------------------------------------------------------

// NewTCPProvider creates a new TCP connection provider
func NewTCPProvider(config common.DispatcherConfig) provider.IConnectionProvider {
	return base.NewBaseProvider(&connector{}, config)
}
