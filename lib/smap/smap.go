package smap

import (
	"fmt"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// mapImpl implements ISharedMap on top of a concurrent hash map.
// Write index progression is managed with atomic operations so concurrent
// writers each observe a unique, monotonically increasing index.
type mapImpl struct {
	data      *xsync.MapOf[string, Entry]
	index     atomic.Uint64
	listeners []Listener
}

// NewSharedMap creates a new shared map instance. The listeners are invoked
// synchronously, in write-index order, after every local mutation.
//
// Thread-safety: all interface methods of the returned map are safe for
// concurrent use. The listener slice itself is fixed at construction.
func NewSharedMap(listeners ...Listener) ISharedMap {
	return &mapImpl{
		data:      xsync.NewMapOf[string, Entry](),
		listeners: listeners,
	}
}

// incAndGetIndex increments the write index and returns the new value.
// It is used to ensure that each write operation has a unique index.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (m *mapImpl) incAndGetIndex() uint64 {
	return m.index.Add(1)
}

// notify fans the entry out to all registered listeners
// store writes an entry unless the map already holds a newer index for the
// key. Index assignment and the map write are not one atomic step, so racing
// mutations of the same key can reach the map in either order; the guard
// makes sure the key never regresses to an older index.
func (m *mapImpl) store(e Entry) {
	m.data.Compute(e.Key, func(old Entry, loaded bool) (Entry, bool) {
		if loaded && old.Index > e.Index {
			return old, false
		}
		return e, e.Deleted
	})
}

func (m *mapImpl) notify(e Entry) {
	for _, l := range m.listeners {
		l(e)
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see smap/interface.go)
// --------------------------------------------------------------------------

func (m *mapImpl) Set(key string, value []byte) error {
	if key == "" {
		return NewError(RetCInvalidOperation, "key must not be empty")
	}

	e := Entry{
		Key:   key,
		Value: value,
		Index: m.incAndGetIndex(),
	}
	m.store(e)
	m.notify(e)
	return nil
}

func (m *mapImpl) Delete(key string) error {
	if key == "" {
		return NewError(RetCInvalidOperation, "key must not be empty")
	}

	e := Entry{
		Key:     key,
		Index:   m.incAndGetIndex(),
		Deleted: true,
	}
	m.store(e)
	m.notify(e)
	return nil
}

func (m *mapImpl) Get(key string) ([]byte, bool, error) {
	e, ok := m.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	return e.Value, true, nil
}

func (m *mapImpl) Has(key string) (bool, error) {
	_, ok := m.data.Load(key)
	return ok, nil
}

func (m *mapImpl) Len() int {
	return m.data.Size()
}

func (m *mapImpl) Range(fn func(e Entry) bool) {
	m.data.Range(func(_ string, e Entry) bool {
		return fn(e)
	})
}

func (m *mapImpl) Apply(e Entry) error {
	if e.Key == "" {
		return NewError(RetCInvalidOperation, fmt.Sprintf("invalid remote entry: %s", e))
	}

	m.store(e)

	// keep the local index ahead of everything we have seen so far
	for {
		curr := m.index.Load()
		if e.Index <= curr || m.index.CompareAndSwap(curr, e.Index) {
			return nil
		}
	}
}

func (m *mapImpl) WriteIndex() uint64 {
	return m.index.Load()
}
