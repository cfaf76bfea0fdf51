// Package serializer provides pluggable serialization of shared map entries
// for transmission as payload blocks on the replication wire.
//
// Three implementations of the IEntrySerializer interface are available:
//
//   - Binary: a custom flag-byte format optimized for speed and size.
//     Optional fields are only encoded when present, announced by a bit in
//     the leading flags byte.
//   - JSON: human-readable, useful for debugging replication traffic.
//   - GOB: Go's native binary encoding.
//
// All implementations are stateless and safe for concurrent use. The binary
// serializer is the default for replication links; see the benchmarks in
// this package for a comparison.
package serializer
