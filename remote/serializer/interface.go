package serializer

import "github.com/ValentinKolb/dSM/lib/smap"

// IEntrySerializer is the interface for all map entry serializers
type IEntrySerializer interface {
	// Serialize serializes an Entry into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(e smap.Entry) ([]byte, error)
	// Deserialize deserializes a byte array into an Entry
	// It takes a byte array and a pointer to an Entry as parameters
	// It returns an error if any
	Deserialize(b []byte, e *smap.Entry) error
}
