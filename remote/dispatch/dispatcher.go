package dispatch

import (
	"encoding/binary"
	"fmt"
	"net"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dSM/remote/provider"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("dispatch")

// --------------------------------------------------------------------------
// Unit Kinds
// --------------------------------------------------------------------------

// unitKind discriminates which slot fields are meaningful
type unitKind uint8

const (
	unitControlValue unitKind = iota // a standalone 4-byte integer
	unitBytePayload                  // a range of the shared payload buffer
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ISocketDispatcher is the producer-facing API of the asynchronous
// single-writer socket dispatcher. Both submission operations are
// fire-and-forget: they return once the unit of work has been accepted into
// the handoff slot, not once it has been sent. Send errors never surface to
// the caller, they are logged and the unit is dropped (at-most-once,
// best-effort delivery).
//
// The dispatcher is intended to be called from one logical producer at a
// time. Calling it concurrently from multiple goroutines still preserves the
// mutual exclusion on the slot, but the order in which competing payloads hit
// the wire is whichever claim wins first.
type ISocketDispatcher interface {
	// SubmitControlValue hands a standalone 4-byte integer to the dispatch
	// loop. By convention of the wire protocol, control/index signals are
	// negative and positive values announce the length of a payload block
	// submitted immediately afterwards via SubmitBytes. The dispatcher does
	// not enforce that convention.
	SubmitControlValue(value int32)

	// SubmitBytes hands the byte range [offset, offset+length) of the shared
	// payload buffer to the dispatch loop. The range is read lazily at send
	// time, not copied at submission time: the caller must keep it stable
	// (unmutated, unreclaimed) until the dispatcher has drained it. Because
	// a subsequent submission can only claim the slot after the previous
	// unit was fully sent, "drained" is at the latest the moment the next
	// Submit* call returns.
	//
	// SubmitBytes panics if the range lies outside the payload buffer.
	SubmitBytes(offset, length int)

	fmt.Stringer
}

// --------------------------------------------------------------------------
// Implementation
// --------------------------------------------------------------------------

// dispatcherImpl owns the handoff slot, the background dispatch goroutine
// and a connection from the provider.
type dispatcherImpl struct {
	name     string
	buf      []byte // shared payload buffer, owned by the producer side
	provider provider.IConnectionProvider
	conn     net.Conn // accessed by the dispatch loop only
	intBuf   [4]byte  // scratch space for control values, loop only

	// The handoff slot. claimed is true while a unit of work is owned by a
	// producer or being drained; it is false only while the dispatch loop is
	// parked. The remaining fields are published under mu so that the
	// cond.Signal/Wait pair establishes the happens-before edge the CAS
	// alone would not give the loop.
	claimed      atomic.Bool
	mu           sync.Mutex
	cond         *sync.Cond
	pending      bool
	kind         unitKind
	controlValue int32
	offset       int
	length       int

	// metrics
	unitsSent  *metrics.Counter
	bytesSent  *metrics.Counter
	sendErrors *metrics.Counter
}

// NewSocketDispatcher creates a dispatcher that transmits submitted units
// over a connection acquired from the given provider. Payload submissions
// reference ranges of buf.
//
// The initial connection is acquired synchronously: if the provider cannot
// supply one, the error is returned and no dispatch goroutine is started.
// All later connection and write failures are handled inside the loop.
//
// The dispatcher has no shutdown operation. Its goroutine lives as long as
// the process, matching the lifecycle of the replication link it serves.
func NewSocketDispatcher(p provider.IConnectionProvider, buf []byte, name string) (ISocketDispatcher, error) {
	conn, err := p.AcquireConnection()
	if err != nil {
		return nil, fmt.Errorf("dispatcher %s: failed to acquire connection: %v", name, err)
	}

	d := &dispatcherImpl{
		name:       name,
		buf:        buf,
		provider:   p,
		conn:       conn,
		unitsSent:  metrics.GetOrCreateCounter(fmt.Sprintf(`dsm_dispatch_units_sent_total{dispatcher=%q}`, name)),
		bytesSent:  metrics.GetOrCreateCounter(fmt.Sprintf(`dsm_dispatch_bytes_sent_total{dispatcher=%q}`, name)),
		sendErrors: metrics.GetOrCreateCounter(fmt.Sprintf(`dsm_dispatch_send_errors_total{dispatcher=%q}`, name)),
	}
	d.cond = sync.NewCond(&d.mu)

	// The slot starts claimed so no producer can publish before the loop
	// parked for the first time.
	d.claimed.Store(true)

	go d.dispatchLoop()

	return d, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see ISocketDispatcher)
// --------------------------------------------------------------------------

func (d *dispatcherImpl) SubmitControlValue(value int32) {
	d.claim()

	d.mu.Lock()
	d.kind = unitControlValue
	d.controlValue = value
	d.pending = true
	d.cond.Signal()
	d.mu.Unlock()
}

func (d *dispatcherImpl) SubmitBytes(offset, length int) {
	if offset < 0 || length <= 0 || offset+length > len(d.buf) {
		panic(fmt.Sprintf("dispatch: byte range [%d, %d) outside payload buffer of size %d", offset, offset+length, len(d.buf)))
	}

	d.claim()

	d.mu.Lock()
	d.kind = unitBytePayload
	d.offset = offset
	d.length = length
	d.pending = true
	d.cond.Signal()
	d.mu.Unlock()
}

func (d *dispatcherImpl) String() string {
	return fmt.Sprintf("SocketDispatcher{name: %s, transport: %s}", d.name, d.provider.GetName())
}

// --------------------------------------------------------------------------
// Claim Protocol & Dispatch Loop
// --------------------------------------------------------------------------

// claim spins until the calling producer exclusively owns the slot.
// There is deliberately no sleep or backoff: the spin is bounded by one full
// socket write in the worst case and submission latency matters more than
// burned cycles here. Gosched keeps the spin from starving the dispatch
// goroutine on a loaded scheduler.
func (d *dispatcherImpl) claim() {
	for !d.claimed.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// dispatchLoop is the background goroutine that drains the slot and performs
// the blocking socket writes. It never returns.
func (d *dispatcherImpl) dispatchLoop() {
	for {
		// Park: release the slot so the next producer's CAS can succeed,
		// then wait for a publication. Both happen under mu, so a producer
		// that wins the CAS cannot signal before we wait.
		d.mu.Lock()
		d.pending = false
		d.claimed.Store(false)
		for !d.pending {
			d.cond.Wait()
		}
		kind, value, offset, length := d.kind, d.controlValue, d.offset, d.length
		d.mu.Unlock()

		// The write happens outside the critical section. The slot stays
		// claimed for its duration, so producers spin rather than block on mu.
		var err error
		var n int
		switch kind {
		case unitControlValue:
			binary.NativeEndian.PutUint32(d.intBuf[:], uint32(value))
			n, err = d.conn.Write(d.intBuf[:])
		case unitBytePayload:
			n, err = d.conn.Write(d.buf[offset : offset+length])
		}

		if err != nil {
			// The unit is dropped, not retried. A fresh connection is
			// acquired for the units that follow.
			d.sendErrors.Inc()
			Logger.Errorf("%s: send failed, dropping unit: %v", d.name, err)
			d.restoreConnection()
			continue
		}

		d.unitsSent.Inc()
		d.bytesSent.Add(n)
	}
}

// restoreConnection asks the provider for a replacement connection after a
// failed send. If none can be acquired the broken connection is kept and the
// next send fails again, triggering another attempt.
//
// Only called from the dispatch loop, so conn needs no synchronization.
func (d *dispatcherImpl) restoreConnection() {
	conn, err := d.provider.AcquireConnection()
	if err != nil {
		Logger.Errorf("%s: failed to restore connection: %v", d.name, err)
		return
	}

	if d.conn != nil {
		_ = d.conn.Close()
	}
	d.conn = conn
	Logger.Infof("%s: connection restored via %s provider", d.name, d.provider.GetName())
}
