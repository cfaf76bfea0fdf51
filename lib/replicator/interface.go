package replicator

import (
	"encoding/base64"

	"github.com/ValentinKolb/dSM/lib/smap"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("replicator")

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IExternalReplicator mirrors map rows into an external durable store.
// Implementations map the fields of V to named columns (or lines) via
// reflection, see the fieldmap package.
//
// Replication into external stores is best-effort and one-directional:
// the map is the source of truth, the external store a mirror of it.
type IExternalReplicator[K comparable, V any] interface {
	// PutExternal inserts or updates the row for the given key.
	PutExternal(key K, value V) error
	// RemoveExternal removes the row for the given key.
	RemoveExternal(key K) error
	// GetExternal loads a single row. The boolean return value indicates
	// whether a row for the key was found.
	GetExternal(key K) (value V, loaded bool, err error)
	// GetAllExternal loads every mirrored row, keyed by the key column.
	GetAllExternal() (map[K]V, error)
	// Close releases the resources held by the replicator.
	Close() error
}

// --------------------------------------------------------------------------
// Shared Map Adapter
// --------------------------------------------------------------------------

// EntryRecord is the mirrored row form of a shared map entry. Raw entry
// values are base64 rendered so they survive the text representations used
// by the file and sql mirrors.
type EntryRecord struct {
	Key     string `dsm:"K,key"`
	Value   string `dsm:"VAL"`
	Index   uint64 `dsm:"IDX"`
	Deleted bool   `dsm:"DELETED"`
}

// RecordOf converts a map entry into its mirrored row form
func RecordOf(e smap.Entry) EntryRecord {
	return EntryRecord{
		Key:     e.Key,
		Value:   base64.StdEncoding.EncodeToString(e.Value),
		Index:   e.Index,
		Deleted: e.Deleted,
	}
}

// EntryOf converts a mirrored row back into a map entry
func EntryOf(r EntryRecord) (smap.Entry, error) {
	value, err := base64.StdEncoding.DecodeString(r.Value)
	if err != nil {
		return smap.Entry{}, err
	}
	return smap.Entry{
		Key:     r.Key,
		Value:   value,
		Index:   r.Index,
		Deleted: r.Deleted,
	}, nil
}

// Mirror adapts an external replicator into an smap.Listener. Tombstone
// entries remove the mirrored row, everything else upserts it. Failures are
// logged and skipped, matching the best-effort model of the other
// propagation paths.
func Mirror(r IExternalReplicator[string, EntryRecord]) smap.Listener {
	return func(e smap.Entry) {
		var err error
		if e.Deleted {
			err = r.RemoveExternal(e.Key)
		} else {
			err = r.PutExternal(e.Key, RecordOf(e))
		}
		if err != nil {
			Logger.Errorf("failed to mirror %s: %v", e, err)
		}
	}
}
