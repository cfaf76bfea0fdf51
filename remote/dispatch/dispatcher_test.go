package dispatch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// readExactly reads n bytes from the connection or fails the test
func readExactly(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()

	buf := make([]byte, n)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("Failed to read %d bytes: %v", n, err)
	}
	return buf
}

// decodeInt32 decodes a wire integer (native byte order)
func decodeInt32(b []byte) int32 {
	return int32(binary.NativeEndian.Uint32(b))
}

// newPipeDispatcher creates a dispatcher writing into an in-memory pipe
func newPipeDispatcher(t *testing.T, buf []byte) (ISocketDispatcher, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	d, err := NewSocketDispatcher(newTestProvider(local), buf, t.Name())
	if err != nil {
		t.Fatalf("Failed to create dispatcher: %v", err)
	}
	return d, remote
}

// testProvider hands out a fixed sequence of connections
type testProvider struct {
	mu    sync.Mutex
	conns []net.Conn
}

func newTestProvider(conns ...net.Conn) *testProvider {
	return &testProvider{conns: conns}
}

func (p *testProvider) GetName() string { return "test" }

func (p *testProvider) AcquireConnection() (net.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.conns) == 0 {
		return nil, fmt.Errorf("no connections left")
	}
	conn := p.conns[0]
	p.conns = p.conns[1:]
	return conn, nil
}

// brokenConn fails every write
type brokenConn struct{}

func (brokenConn) Read([]byte) (int, error)        { return 0, io.EOF }
func (brokenConn) Write([]byte) (int, error)       { return 0, fmt.Errorf("broken pipe") }
func (brokenConn) Close() error                    { return nil }
func (brokenConn) LocalAddr() net.Addr             { return nil }
func (brokenConn) RemoteAddr() net.Addr            { return nil }
func (brokenConn) SetDeadline(time.Time) error     { return nil }
func (brokenConn) SetReadDeadline(time.Time) error { return nil }
func (brokenConn) SetWriteDeadline(time.Time) error {
	return nil
}

// TestControlValueOnWire verifies a control value appears as its 4-byte
// encoding with no trailing payload bytes
func TestControlValueOnWire(t *testing.T) {
	d, remote := newPipeDispatcher(t, nil)

	d.SubmitControlValue(-7)

	got := decodeInt32(readExactly(t, remote, 4))
	if got != -7 {
		t.Errorf("Expected -7 on the wire, got %d", got)
	}

	// nothing else may follow
	_ = remote.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	extra := make([]byte, 1)
	if n, err := remote.Read(extra); err == nil {
		t.Errorf("Expected no trailing bytes, read %d", n)
	}
}

// TestPayloadExactRange verifies a bytes submission transmits exactly the
// referenced range, regardless of the buffer's total size
func TestPayloadExactRange(t *testing.T) {
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = byte(i)
	}

	d, remote := newPipeDispatcher(t, buf)

	d.SubmitBytes(13, 10)

	got := readExactly(t, remote, 10)
	if !bytes.Equal(got, buf[13:23]) {
		t.Errorf("Expected %v, got %v", buf[13:23], got)
	}

	_ = remote.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if n, err := remote.Read(make([]byte, 1)); err == nil {
		t.Errorf("Expected no trailing bytes, read %d", n)
	}
}

// TestCallOrderConcatenation verifies the wire carries the concatenation of
// all units in call order for a single producer
func TestCallOrderConcatenation(t *testing.T) {
	buf := []byte("hello world payload")
	d, remote := newPipeDispatcher(t, buf)

	var want bytes.Buffer
	intBuf := make([]byte, 4)

	// interleave control values and payload ranges
	units := []struct {
		control int32
		offset  int
		length  int
	}{
		{control: -1},
		{offset: 0, length: 5},
		{control: -42},
		{offset: 6, length: 5},
		{control: -3},
	}

	go func() {
		for _, u := range units {
			if u.length > 0 {
				d.SubmitBytes(u.offset, u.length)
			} else {
				d.SubmitControlValue(u.control)
			}
		}
	}()

	for _, u := range units {
		if u.length > 0 {
			want.Write(buf[u.offset : u.offset+u.length])
		} else {
			binary.NativeEndian.PutUint32(intBuf, uint32(u.control))
			want.Write(intBuf)
		}
	}

	got := readExactly(t, remote, want.Len())
	if !bytes.Equal(got, want.Bytes()) {
		t.Errorf("Wire bytes differ:\nwant %v\ngot  %v", want.Bytes(), got)
	}
}

// TestRacingProducersClaimExclusivity races M producers against the claim
// protocol and verifies exactly M units arrive, none duplicated or lost
func TestRacingProducersClaimExclusivity(t *testing.T) {
	const numProducers = 16

	d, remote := newPipeDispatcher(t, nil)

	done := make(chan map[int32]bool)
	go func() {
		received := make(map[int32]bool)
		for i := 0; i < numProducers; i++ {
			raw := make([]byte, 4)
			_ = remote.SetReadDeadline(time.Now().Add(5 * time.Second))
			if _, err := io.ReadFull(remote, raw); err != nil {
				t.Errorf("Failed to read unit %d: %v", i, err)
				break
			}
			v := decodeInt32(raw)
			if received[v] {
				t.Errorf("Duplicate unit received: %d", v)
			}
			received[v] = true
		}
		done <- received
	}()

	var wg sync.WaitGroup
	wg.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func(id int32) {
			defer wg.Done()
			d.SubmitControlValue(-(id + 1))
		}(int32(p))
	}
	wg.Wait()

	received := <-done
	if len(received) != numProducers {
		t.Errorf("Expected %d distinct units, got %d", numProducers, len(received))
	}
}

// TestWriteFailureDoesNotKillLoop verifies a failed send drops the unit but
// the next submission is delivered over a freshly-provided connection
func TestWriteFailureDoesNotKillLoop(t *testing.T) {
	local, remote := net.Pipe()
	p := newTestProvider(brokenConn{}, local)

	d, err := NewSocketDispatcher(p, nil, t.Name())
	if err != nil {
		t.Fatalf("Failed to create dispatcher: %v", err)
	}

	// first unit hits the broken connection and is dropped
	d.SubmitControlValue(-1)

	// second unit must arrive on the replacement connection
	d.SubmitControlValue(-2)

	got := decodeInt32(readExactly(t, remote, 4))
	if got != -2 {
		t.Errorf("Expected -2 after recovery, got %d", got)
	}
}

// TestStressLengthPayloadPairs issues one thousand (5, <5 bytes>) pairs
// back-to-back and verifies order and integrity on the remote end. The
// producer alternates between two buffer halves so each referenced range
// stays stable until its unit is drained.
func TestStressLengthPayloadPairs(t *testing.T) {
	const pairs = 1000
	const payloadLen = 5

	buf := make([]byte, 2*payloadLen)
	d, remote := newPipeDispatcher(t, buf)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < pairs; i++ {
			raw := readExactly(t, remote, 4)
			if v := decodeInt32(raw); v != payloadLen {
				t.Errorf("Pair %d: expected length prefix %d, got %d", i, payloadLen, v)
				return
			}

			payload := readExactly(t, remote, payloadLen)
			want := fmt.Sprintf("%05d", i)
			if string(payload) != want {
				t.Errorf("Pair %d: expected payload %q, got %q", i, want, payload)
				return
			}
		}
	}()

	for i := 0; i < pairs; i++ {
		offset := (i % 2) * payloadLen
		copy(buf[offset:offset+payloadLen], fmt.Sprintf("%05d", i))

		d.SubmitControlValue(payloadLen)
		d.SubmitBytes(offset, payloadLen)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Timeout waiting for all pairs")
	}
}

// TestOutOfRangeSubmissionPanics verifies the fail-fast precondition check
func TestOutOfRangeSubmissionPanics(t *testing.T) {
	buf := make([]byte, 8)
	d, _ := newPipeDispatcher(t, buf)

	cases := []struct {
		name   string
		offset int
		length int
	}{
		{"negative offset", -1, 4},
		{"zero length", 0, 0},
		{"past end", 4, 8},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Expected panic for range [%d, %d)", c.offset, c.offset+c.length)
				}
			}()
			d.SubmitBytes(c.offset, c.length)
		})
	}
}

// TestAcquisitionFailureSurfaced verifies a provider failure at start-up is
// returned synchronously from the constructor
func TestAcquisitionFailureSurfaced(t *testing.T) {
	if _, err := NewSocketDispatcher(newTestProvider(), nil, t.Name()); err == nil {
		t.Error("Expected error when no connection can be acquired")
	}
}

// TestSubmissionsOverTCP runs the single-producer ordering property over a
// real TCP connection instead of an in-memory pipe
func TestSubmissionsOverTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			t.Errorf("Accept failed: %v", err)
			return
		}
		accepted <- conn
	}()

	client, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}

	buf := []byte("tcp-payload")
	d, err := NewSocketDispatcher(newTestProvider(client), buf, t.Name())
	if err != nil {
		t.Fatalf("Failed to create dispatcher: %v", err)
	}

	d.SubmitControlValue(int32(len(buf)))
	d.SubmitBytes(0, len(buf))

	remote := <-accepted
	defer remote.Close()

	if v := decodeInt32(readExactly(t, remote, 4)); v != int32(len(buf)) {
		t.Errorf("Expected length prefix %d, got %d", len(buf), v)
	}
	if got := readExactly(t, remote, len(buf)); !bytes.Equal(got, buf) {
		t.Errorf("Expected payload %q, got %q", buf, got)
	}
}
