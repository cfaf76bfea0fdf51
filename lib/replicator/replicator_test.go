package replicator

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/dSM/lib/smap"
)

// memReplicator is an in-memory stand-in for the external stores
type memReplicator struct {
	rows map[string]EntryRecord
	fail bool
}

func newMemReplicator() *memReplicator {
	return &memReplicator{rows: make(map[string]EntryRecord)}
}

func (m *memReplicator) PutExternal(key string, value EntryRecord) error {
	if m.fail {
		return errors.New("store unavailable")
	}
	m.rows[key] = value
	return nil
}

func (m *memReplicator) RemoveExternal(key string) error {
	if m.fail {
		return errors.New("store unavailable")
	}
	delete(m.rows, key)
	return nil
}

func (m *memReplicator) GetExternal(key string) (EntryRecord, bool, error) {
	r, ok := m.rows[key]
	return r, ok, nil
}

func (m *memReplicator) GetAllExternal() (map[string]EntryRecord, error) {
	return m.rows, nil
}

func (m *memReplicator) Close() error {
	return nil
}

func TestRecordRoundTrip(t *testing.T) {
	want := smap.Entry{
		Key:   "k",
		Value: []byte{0x00, 0xff, 0x42},
		Index: 7,
	}

	got, err := EntryOf(RecordOf(want))
	if err != nil {
		t.Fatalf("failed to convert record: %v", err)
	}
	if got.Key != want.Key || got.Index != want.Index || got.Deleted != want.Deleted {
		t.Errorf("expected %s, got %s", want, got)
	}
	if string(got.Value) != string(want.Value) {
		t.Errorf("expected value %v, got %v", want.Value, got.Value)
	}
}

func TestEntryOfRejectsGarbage(t *testing.T) {
	if _, err := EntryOf(EntryRecord{Key: "k", Value: "not base64 !!!"}); err == nil {
		t.Error("expected error for invalid value encoding")
	}
}

func TestMirrorUpsertsAndRemoves(t *testing.T) {
	mem := newMemReplicator()
	m := smap.NewSharedMap(Mirror(mem))

	if err := m.Set("a", []byte("v1")); err != nil {
		t.Fatalf("failed to set key: %v", err)
	}
	if err := m.Set("b", []byte("v2")); err != nil {
		t.Fatalf("failed to set key: %v", err)
	}

	if len(mem.rows) != 2 {
		t.Fatalf("expected 2 mirrored rows, got %d", len(mem.rows))
	}

	e, err := EntryOf(mem.rows["a"])
	if err != nil {
		t.Fatalf("failed to decode mirrored row: %v", err)
	}
	if string(e.Value) != "v1" {
		t.Errorf("expected value v1, got %s", e.Value)
	}
	if e.Index == 0 {
		t.Error("expected mirrored row to carry a write index")
	}

	if err := m.Delete("a"); err != nil {
		t.Fatalf("failed to delete key: %v", err)
	}
	if _, ok := mem.rows["a"]; ok {
		t.Error("expected tombstone to remove the mirrored row")
	}
	if _, ok := mem.rows["b"]; !ok {
		t.Error("expected untouched row to survive")
	}
}

func TestMirrorSurvivesStoreFailure(t *testing.T) {
	mem := newMemReplicator()
	mem.fail = true
	m := smap.NewSharedMap(Mirror(mem))

	// failures are logged and skipped, map operations must still succeed
	if err := m.Set("a", []byte("v")); err != nil {
		t.Fatalf("map write failed on mirror error: %v", err)
	}
	v, ok, err := m.Get("a")
	if err != nil {
		t.Fatalf("failed to get key: %v", err)
	}
	if !ok || string(v) != "v" {
		t.Errorf("expected map to hold the value, got ok=%v v=%s", ok, v)
	}
}
