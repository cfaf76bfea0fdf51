package provider

import (
	"fmt"
	"net"
	"sync"
)

// staticProvider hands out a fixed sequence of pre-established connections.
// It is mainly useful in tests (net.Pipe) and for wiring a dispatcher onto a
// connection that was accepted rather than dialed.
type staticProvider struct {
	mu    sync.Mutex
	conns []net.Conn
}

// NewStaticProvider creates a provider that returns the given connections in
// order. Once the sequence is exhausted, AcquireConnection fails.
func NewStaticProvider(conns ...net.Conn) IConnectionProvider {
	return &staticProvider{conns: conns}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see provider/interface.go)
// --------------------------------------------------------------------------

func (p *staticProvider) GetName() string {
	return "static"
}

func (p *staticProvider) AcquireConnection() (net.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.conns) == 0 {
		return nil, fmt.Errorf("static provider has no connections left")
	}

	conn := p.conns[0]
	p.conns = p.conns[1:]
	return conn, nil
}
