package remote

import (
	"fmt"
	"math"
	"sync"

	"github.com/ValentinKolb/dSM/lib/smap"
	"github.com/ValentinKolb/dSM/remote/common"
	"github.com/ValentinKolb/dSM/remote/dispatch"
	"github.com/ValentinKolb/dSM/remote/provider"
	"github.com/ValentinKolb/dSM/remote/serializer"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("remote")

// DefaultBufferSize is the payload buffer size used when the config does not
// specify one. Entries serializing to more than half of the buffer cannot be
// replicated and are dropped with an error log.
const DefaultBufferSize = 1 << 20

// --------------------------------------------------------------------------
// Remote Replicator (sending side)
// --------------------------------------------------------------------------

// RemoteReplicator propagates shared map entries to a remote peer through
// the socket dispatcher. It owns the shared payload buffer: entries are
// serialized into alternating buffer halves, so a half can only be reused
// after the claim for a later unit succeeded, which in turn guarantees the
// half's previous unit was fully drained.
//
// Replicate serializes access internally, satisfying the dispatcher's
// single-logical-producer contract even when map mutations race.
type RemoteReplicator struct {
	dispatcher dispatch.ISocketDispatcher
	ser        serializer.IEntrySerializer

	mu       sync.Mutex
	buf      []byte
	half     int // which buffer half receives the next payload
	halfSize int
}

// NewRemoteReplicator creates a replicator sending over a connection from
// the given provider. The returned replicator's Replicate method is intended
// to be registered as an smap.Listener.
func NewRemoteReplicator(p provider.IConnectionProvider, ser serializer.IEntrySerializer, config common.DispatcherConfig) (*RemoteReplicator, error) {
	bufSize := config.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	buf := make([]byte, bufSize)

	d, err := dispatch.NewSocketDispatcher(p, buf, config.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %v", err)
	}

	return &RemoteReplicator{
		dispatcher: d,
		ser:        ser,
		buf:        buf,
		halfSize:   bufSize / 2,
	}, nil
}

// Replicate serializes the entry and emits it as a (length, payload) pair.
// Errors are logged and the entry is skipped; replication is best-effort.
func (r *RemoteReplicator) Replicate(e smap.Entry) {
	data, err := r.ser.Serialize(e)
	if err != nil {
		Logger.Errorf("failed to serialize %s, skipping: %v", e, err)
		return
	}

	if len(data) > r.halfSize {
		Logger.Errorf("entry %s serializes to %d bytes, exceeding the %d byte replication limit, skipping", e, len(data), r.halfSize)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	offset := r.half * r.halfSize
	copy(r.buf[offset:], data)
	r.half = 1 - r.half

	r.dispatcher.SubmitControlValue(int32(len(data)))
	r.dispatcher.SubmitBytes(offset, len(data))
}

// AnnounceIndex signals a write index to the remote peer. The index is
// encoded as a negative number on the wire because positive numbers denote
// the size of a following payload block. Index 0 (nothing written yet) has
// no negative encoding and is not announced.
func (r *RemoteReplicator) AnnounceIndex(index uint64) {
	if index == 0 {
		Logger.Warningf("index 0 has no wire encoding, not announced")
		return
	}
	if index > math.MaxInt32 {
		Logger.Errorf("index %d exceeds the wire encoding range, not announced", index)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.dispatcher.SubmitControlValue(-int32(index))
}

func (r *RemoteReplicator) String() string {
	return fmt.Sprintf("RemoteReplicator{dispatcher: %s}", r.dispatcher)
}
