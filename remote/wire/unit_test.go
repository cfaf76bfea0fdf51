package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

// encode builds a wire stream from control values and payload blocks
func encode(parts ...interface{}) []byte {
	var buf bytes.Buffer
	intBuf := make([]byte, IntSize)

	for _, p := range parts {
		switch v := p.(type) {
		case int32:
			PutControl(intBuf, v)
			buf.Write(intBuf)
		case []byte:
			PutControl(intBuf, int32(len(v)))
			buf.Write(intBuf)
			buf.Write(v)
		}
	}
	return buf.Bytes()
}

// TestReadControlUnit verifies negative integers decode as standalone units
func TestReadControlUnit(t *testing.T) {
	r := bytes.NewReader(encode(int32(-7)))

	u, err := ReadUnit(r)
	if err != nil {
		t.Fatalf("ReadUnit failed: %v", err)
	}
	if !u.IsControl() || u.Control != -7 {
		t.Errorf("Expected control unit -7, got %s", u)
	}
}

// TestReadPayloadUnit verifies positive prefixes consume exactly their payload
func TestReadPayloadUnit(t *testing.T) {
	payload := []byte("ten bytes!")
	r := bytes.NewReader(encode(payload))

	u, err := ReadUnit(r)
	if err != nil {
		t.Fatalf("ReadUnit failed: %v", err)
	}
	if u.IsControl() {
		t.Fatalf("Expected payload unit, got %s", u)
	}
	if !bytes.Equal(u.Payload, payload) {
		t.Errorf("Expected payload %q, got %q", payload, u.Payload)
	}
	if u.Control != int32(len(payload)) {
		t.Errorf("Expected length %d, got %d", len(payload), u.Control)
	}

	// the stream must be fully consumed
	if _, err := ReadUnit(r); err != io.EOF {
		t.Errorf("Expected EOF, got %v", err)
	}
}

// TestReadMixedStream verifies a flat sequence of both unit kinds
func TestReadMixedStream(t *testing.T) {
	r := bytes.NewReader(encode(int32(-1), []byte("abc"), int32(-99), []byte("defgh")))

	expected := []Unit{
		{Control: -1},
		{Control: 3, Payload: []byte("abc")},
		{Control: -99},
		{Control: 5, Payload: []byte("defgh")},
	}

	for i, want := range expected {
		u, err := ReadUnit(r)
		if err != nil {
			t.Fatalf("Unit %d: ReadUnit failed: %v", i, err)
		}
		if u.Control != want.Control || !bytes.Equal(u.Payload, want.Payload) {
			t.Errorf("Unit %d: expected %s, got %s", i, want, u)
		}
	}
}

// TestZeroLengthRejected verifies a zero prefix is treated as corruption
func TestZeroLengthRejected(t *testing.T) {
	raw := make([]byte, IntSize)
	PutControl(raw, 0)

	if _, err := ReadUnit(bytes.NewReader(raw)); err == nil {
		t.Error("Expected error for zero-length unit")
	}
}

// TestTruncatedPayload verifies EOF mid-payload surfaces as an error
func TestTruncatedPayload(t *testing.T) {
	raw := make([]byte, IntSize)
	PutControl(raw, 100) // announce 100 bytes, deliver none

	if _, err := ReadUnit(bytes.NewReader(raw)); err == nil {
		t.Error("Expected error for truncated payload")
	}
}

// TestPutControlMatchesNativeOrder pins the encoding to the platform order
func TestPutControlMatchesNativeOrder(t *testing.T) {
	b := make([]byte, IntSize)
	PutControl(b, -7)

	if got := int32(binary.NativeEndian.Uint32(b)); got != -7 {
		t.Errorf("Expected -7 round-trip, got %d", got)
	}
}
