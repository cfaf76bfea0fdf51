// Package smap provides the replicated shared in-memory map that all
// propagation layers of dSM feed from. It combines a concurrent hash map
// (xsync.MapOf) with a monotonically increasing write index and a
// synchronous listener fan-out.
//
// The package focuses on:
//   - A unified interface (ISharedMap) for map operations with typed errors
//   - Write index management via atomic operations, giving every local
//     mutation a unique logical timestamp
//   - Mutation listeners that observe entries in write-index order, used by
//     the remote socket replicator and the external mirroring adapters
//
// Key Components:
//
//   - Entry: a key-value pair plus the replication metadata (write index,
//     tombstone flag) that travels with it to remote peers and external
//     stores.
//
//   - ISharedMap Interface: the core abstraction for interacting with the
//     map. Write operations return custom Error values with typed return
//     codes, read operations additionally return the requested data.
//
//   - Listener: a callback invoked synchronously after every local mutation.
//     Because the fan-out happens inside the mutation call, listeners are
//     guaranteed to see entries in index order, which downstream replicators
//     rely on for ordered delivery.
//
// Entries applied from a remote peer (via Apply) bypass the listener fan-out
// so that two peers mirroring each other do not loop.
package smap
