package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dSM/lib/smap"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IEntrySerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IEntrySerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey     byte = 1 << 0
	hasValue   byte = 1 << 1
	hasIndex   byte = 1 << 2
	hasDeleted byte = 1 << 3
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IEntrySerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(e smap.Entry) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(e)
	result := make([]byte, totalSize)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 1 // Start after flags

	// Handle Key
	if e.Key != "" {
		flags |= hasKey
		keyBytes := []byte(e.Key)
		keyLen := len(keyBytes)

		// Write key length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(keyLen))
		pos += 4

		// Write key data
		copy(result[pos:pos+keyLen], keyBytes)
		pos += keyLen
	}

	// Handle Value
	if e.Value != nil {
		flags |= hasValue
		valueLen := len(e.Value)

		// Write value length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(valueLen))
		pos += 4

		// Write value data
		if valueLen > 0 {
			copy(result[pos:pos+valueLen], e.Value)
			pos += valueLen
		}
	}

	// Handle Index
	if e.Index > 0 {
		flags |= hasIndex
		binary.BigEndian.PutUint64(result[pos:pos+8], e.Index)
		pos += 8
	}

	// Handle Deleted
	if e.Deleted {
		flags |= hasDeleted
	}

	// Set flags byte after knowing which fields are present
	result[0] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, e *smap.Entry) error {
	// Check minimum size (flags)
	if len(data) < 1 {
		return fmt.Errorf("data too short for entry header")
	}

	// Read flags
	flags := data[0]

	// Initialize read position
	pos := 1

	// Read Key if present
	if flags&hasKey != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for key length")
		}

		// Read key length
		keyLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(keyLen) > len(data) {
			return fmt.Errorf("data too short for key data")
		}

		// Read key data
		e.Key = string(data[pos : pos+int(keyLen)])
		pos += int(keyLen)
	} else {
		e.Key = ""
	}

	// Read Value if present
	if flags&hasValue != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for value length")
		}

		// Read value length
		valueLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(valueLen) > len(data) {
			return fmt.Errorf("data too short for value data")
		}

		// Read value data
		e.Value = make([]byte, valueLen)
		copy(e.Value, data[pos:pos+int(valueLen)])
		pos += int(valueLen)
	} else {
		e.Value = nil
	}

	// Read Index if present
	if flags&hasIndex != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for index")
		}

		e.Index = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		e.Index = 0
	}

	// Read Deleted flag
	e.Deleted = flags&hasDeleted != 0

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total serialized size of an entry
func (b binarySerializerImpl) sizeBytes(e smap.Entry) int {
	size := 1 // flags

	if e.Key != "" {
		size += 4 + len(e.Key)
	}
	if e.Value != nil {
		size += 4 + len(e.Value)
	}
	if e.Index > 0 {
		size += 8
	}

	return size
}
