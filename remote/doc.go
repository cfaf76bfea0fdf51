// Package remote connects two shared map instances over a raw socket.
//
// The sending side registers a RemoteReplicator as a map listener: every
// local mutation is serialized and handed to the socket dispatcher as a
// (length prefix, payload block) pair, with write index announcements
// travelling as standalone negative control values. The receiving side runs
// a Receiver that decodes the unit stream and applies entries to its local
// map, bypassing that map's own listeners to avoid replication loops.
//
// Sub-packages:
//
//   - dispatch: the asynchronous single-writer socket dispatch primitive
//     (single-slot handoff between producer and background sender)
//   - provider: connection providers supplying live sockets, with
//     transport-specific implementations for tcp and unix
//   - wire: the unit-level byte protocol shared by both directions
//   - serializer: pluggable entry serialization (binary, json, gob)
//   - common: configuration structs and the logging facade
//
// Delivery is at-most-once and best-effort on both sides: failed sends are
// dropped by the dispatcher, malformed inbound units are skipped by the
// receiver. Systems that need stronger guarantees must layer acknowledgment
// and retry above this package.
package remote
