package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/dSM/lib/smap"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IEntrySerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testEntries creates a set of test entries with different fields filled
func testEntries() []smap.Entry {
	return []smap.Entry{
		// Minimal entry
		{Key: "k"},

		// Regular entry
		{
			Key:   "test-key",
			Value: []byte("test-value"),
			Index: 1,
		},

		// Entry with a single byte value
		{
			Key:   "tiny-value",
			Value: []byte("x"),
			Index: 42,
		},

		// Tombstone
		{
			Key:     "deleted-key",
			Index:   7,
			Deleted: true,
		},

		// Entry with binary value
		{
			Key:   "binary",
			Value: []byte{0x00, 0xff, 0x42, 0x00},
			Index: 123456789,
		},
	}
}

// TestSerializerRoundTrip tests that entries can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	entries := testEntries()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()

			for i, entry := range entries {
				// Serialize
				data, err := s.Serialize(entry)
				if err != nil {
					t.Errorf("Failed to serialize entry %d: %v", i, err)
					continue
				}

				// Deserialize
				var result smap.Entry
				err = s.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize entry %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(entry, result) {
					t.Errorf("Entry %d mismatch:\noriginal: %+v\nresult:   %+v", i, entry, result)
				}
			}
		})
	}
}

// TestDeserializeGarbage verifies corrupted input surfaces as an error, not a panic
func TestDeserializeGarbage(t *testing.T) {
	garbage := [][]byte{
		{},
		{0xff},
		{0x01, 0x00, 0x00, 0xff, 0xff}, // key length way past the data
	}

	s := NewBinarySerializer()
	for i, data := range garbage {
		var e smap.Entry
		if err := s.Deserialize(data, &e); err == nil {
			t.Errorf("Input %d: expected error for garbage data", i)
		}
	}
}

// BenchmarkSerializers compares the serialization formats
func BenchmarkSerializers(b *testing.B) {
	entry := smap.Entry{
		Key:   "benchmark-key",
		Value: make([]byte, 512),
		Index: 99,
	}

	for name, factory := range testSerializers {
		s := factory()

		b.Run(name+"/Serialize", func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := s.Serialize(entry); err != nil {
					b.Fatal(err)
				}
			}
		})

		data, err := s.Serialize(entry)
		if err != nil {
			b.Fatal(err)
		}

		b.Run(name+"/Deserialize", func(b *testing.B) {
			var result smap.Entry
			for i := 0; i < b.N; i++ {
				if err := s.Deserialize(data, &result); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
