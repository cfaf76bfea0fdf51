// Package base implements the transport-independent part of the connection
// provider. Concrete transports (tcp, unix) plug in via the IConnector
// interface.
package base

import (
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/ValentinKolb/dSM/remote/common"
	"github.com/ValentinKolb/dSM/remote/provider"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("provider")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IConnector defines the interface for transport-specific connection operations
type IConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// baseProvider implements the core provider functionality independent of the
// specific transport medium (unix, tcp, etc.)
type baseProvider struct {
	connector IConnector
	config    common.DispatcherConfig
}

// -----------------------------------------------------------
// Provider Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseProvider creates a new base connection provider with the specified connector
func NewBaseProvider(connector IConnector, config common.DispatcherConfig) provider.IConnectionProvider {
	return &baseProvider{
		connector: connector,
		config:    config,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see provider/interface.go)
// --------------------------------------------------------------------------

func (p *baseProvider) GetName() string {
	return p.connector.GetName()
}

func (p *baseProvider) AcquireConnection() (net.Conn, error) {
	if p.config.Endpoint == "" {
		return nil, fmt.Errorf("no endpoint provided")
	}

	// We always try at least once, and up to maxRetries times
	maxRetries := p.config.RetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}

	timeout := time.Duration(p.config.DialTimeoutSecond) * time.Second

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		conn, err := p.connector.Connect(p.config.Endpoint, timeout)
		if err == nil {
			Logger.Infof("Connected to %s using %s transport", p.config.Endpoint, p.connector.GetName())
			return conn, nil
		}

		lastErr = err
		Logger.Debugf("Connection attempt %d/%d to %s failed: %v", i+1, maxRetries, p.config.Endpoint, err)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %v", p.config.Endpoint, maxRetries, lastErr)
}
