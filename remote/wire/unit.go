package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// IntSize is the width of the wire integer that starts every unit.
const IntSize = 4

// --------------------------------------------------------------------------
// Unit Type
// --------------------------------------------------------------------------

// Unit is one decoded element of the replication byte stream. A unit is
// either a standalone control value (negative integer, Payload nil) or a
// payload block announced by a positive length prefix.
type Unit struct {
	Control int32  // the wire integer; for payload units this is the length
	Payload []byte // nil for control units
}

// IsControl reports whether the unit is a standalone control/index signal
func (u Unit) IsControl() bool {
	return u.Payload == nil
}

func (u Unit) String() string {
	if u.IsControl() {
		return fmt.Sprintf("Unit{Control: %d}", u.Control)
	}
	return fmt.Sprintf("Unit{len(Payload): %d}", len(u.Payload))
}

// --------------------------------------------------------------------------
// Codec
// --------------------------------------------------------------------------

// PutControl writes the wire encoding of a control value into b.
// b must be at least IntSize bytes long.
func PutControl(b []byte, value int32) {
	binary.NativeEndian.PutUint32(b, uint32(value))
}

// ReadUnit decodes the next unit from the stream. It blocks until a complete
// unit is available. A positive wire integer makes ReadUnit consume exactly
// that many payload bytes; an EOF in the middle of a payload is an error.
func ReadUnit(r io.Reader) (Unit, error) {
	var intBuf [IntSize]byte
	if _, err := io.ReadFull(r, intBuf[:]); err != nil {
		return Unit{}, err
	}

	value := int32(binary.NativeEndian.Uint32(intBuf[:]))

	if value < 0 {
		// a negative integer is itself the complete unit
		return Unit{Control: value}, nil
	}

	if value == 0 {
		// the writer never emits zero-length prefixes
		return Unit{}, fmt.Errorf("invalid zero-length unit on the wire")
	}

	payload := make([]byte, value)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Unit{}, fmt.Errorf("failed to read %d byte payload: %v", value, err)
	}

	return Unit{Control: value, Payload: payload}, nil
}
