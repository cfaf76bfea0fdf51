package remote

import (
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/ValentinKolb/dSM/lib/smap"
	"github.com/ValentinKolb/dSM/remote/serializer"
	"github.com/ValentinKolb/dSM/remote/wire"
	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Receiver (decoding side)
// --------------------------------------------------------------------------

// Receiver drains replication units from inbound connections, deserializes
// payload blocks into entries and applies them to the local shared map.
// Negative control units are recorded as the peer's announced write index.
type Receiver struct {
	m           smap.ISharedMap
	ser         serializer.IEntrySerializer
	remoteIndex atomic.Uint64

	unitsApplied *metrics.Counter
	unitsDropped *metrics.Counter
}

// NewReceiver creates a receiver applying inbound replication to m.
func NewReceiver(m smap.ISharedMap, ser serializer.IEntrySerializer, name string) *Receiver {
	return &Receiver{
		m:            m,
		ser:          ser,
		unitsApplied: metrics.GetOrCreateCounter(fmt.Sprintf(`dsm_receiver_units_applied_total{receiver=%q}`, name)),
		unitsDropped: metrics.GetOrCreateCounter(fmt.Sprintf(`dsm_receiver_units_dropped_total{receiver=%q}`, name)),
	}
}

// RemoteIndex returns the most recent write index announced by the peer.
func (rc *Receiver) RemoteIndex() uint64 {
	return rc.remoteIndex.Load()
}

// Serve reads units from the connection until it is closed or fails.
// A cleanly closed connection returns nil. Malformed payloads are logged,
// counted and skipped; replication is best-effort on this side too.
func (rc *Receiver) Serve(conn net.Conn) error {
	for {
		u, err := wire.ReadUnit(conn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read unit: %v", err)
		}

		if u.IsControl() {
			rc.remoteIndex.Store(uint64(-u.Control))
			continue
		}

		var e smap.Entry
		if err := rc.ser.Deserialize(u.Payload, &e); err != nil {
			rc.unitsDropped.Inc()
			Logger.Errorf("failed to deserialize %s, skipping: %v", u, err)
			continue
		}

		if err := rc.m.Apply(e); err != nil {
			rc.unitsDropped.Inc()
			Logger.Errorf("failed to apply %s, skipping: %v", e, err)
			continue
		}

		rc.unitsApplied.Inc()
	}
}

// Listen accepts connections on the given endpoint and serves each one in
// its own goroutine. It only returns if the listener itself fails.
func (rc *Receiver) Listen(network, endpoint string) error {
	listener, err := net.Listen(network, endpoint)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	Logger.Infof("Receiver listening on %s (%s)", endpoint, network)

	for {
		conn, err := listener.Accept()
		if err != nil {
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		go func() {
			defer conn.Close()
			if err := rc.Serve(conn); err != nil {
				Logger.Errorf("Connection from %v failed: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}
