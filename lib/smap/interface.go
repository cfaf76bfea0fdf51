package smap

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Entry Type (key-value pair with replication metadata)
// --------------------------------------------------------------------------

// Entry stores a key-value pair together with the metadata that travels with
// it when the entry is propagated to remote peers or external stores.
type Entry struct {
	Key     string `json:"key"`
	Value   []byte `json:"value,omitempty"`
	Index   uint64 `json:"index"`             // Write index when this entry was created/updated
	Deleted bool   `json:"deleted,omitempty"` // Tombstone flag for propagated deletions
}

func (e Entry) String() string {
	return fmt.Sprintf("Entry{Key: %s, Index: %d, Deleted: %t, len(Value): %d}", e.Key, e.Index, e.Deleted, len(e.Value))
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Listener is called synchronously after every mutation of the map.
// With a single mutating goroutine listeners observe entries in write-index
// order since the fan-out happens inside the mutation call. Racing mutations
// may be observed slightly out of index order; the map itself never
// regresses a key to an older index.
type Listener func(e Entry)

// ISharedMap is the generic interface for the replicated shared in-memory map.
// All write operations return only an error (nil on success),
// while read operations return the requested data along with an error (nil on success).
type ISharedMap interface {
	// Set inserts or updates a key-value pair and assigns it a new write index.
	Set(key string, value []byte) (err error)
	// Delete removes a key-value pair. Registered listeners are notified with
	// a tombstone entry so the deletion can be propagated.
	Delete(key string) (err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Has returns whether a key exists in the map.
	Has(key string) (loaded bool, err error)
	// Len returns the number of live entries in the map.
	Len() int
	// Range calls fn for every live entry until fn returns false.
	Range(fn func(e Entry) bool)
	// Apply inserts an entry that originated on a remote peer, preserving its
	// write index. Tombstone entries remove the key. Listeners are not
	// notified, otherwise two peers replicating to each other would loop.
	Apply(e Entry) (err error)
	// WriteIndex returns the index assigned to the most recent local mutation.
	WriteIndex() uint64
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("SharedMapError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                   // 1: Operation failed due to an internal error.
	RetCInvalidOperation                // 2: Invalid operation.
)
