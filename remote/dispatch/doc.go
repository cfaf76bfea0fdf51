// Package dispatch provides the asynchronous single-writer socket dispatch
// primitive that hands a producer's payload to a dedicated background
// goroutine for transmission.
//
// Features and Guarantees:
//
//   - Single-Slot Handoff: producer and dispatch goroutine exchange exactly
//     one unit of work at a time through a capacity-1 mailbox, not a queue.
//   - Lock-Free Claim: producers acquire the slot with a spin-retried
//     compare-and-swap, trading fairness and queuing for minimal submission
//     latency under light contention.
//   - Publish with Happens-Before: slot fields are written and the loop is
//     signalled under a shared mutex, so the dispatch goroutine is guaranteed
//     to observe the published unit. The CAS alone would not give that
//     visibility guarantee.
//   - Fire-and-Forget: submissions return once accepted, never once sent.
//     Write failures are logged and the unit is dropped (at-most-once,
//     best-effort delivery); the loop then continues with a fresh connection
//     from the provider.
//   - Zero-Copy Payloads: byte submissions reference a caller-owned shared
//     payload buffer and are read lazily at send time. The referenced range
//     must stay stable until the unit is drained, which is guaranteed to
//     have happened once the next submission call returns.
//
// Wire format: every unit starts with a 4-byte signed integer in the
// platform's native byte order. A negative integer is itself a complete
// control/index unit; a positive integer announces the byte length of the
// payload block that the caller submits immediately afterwards. That pairing
// is a convention of the protocol layered on top (see the remote package),
// not something the dispatcher enforces.
//
// Ordering: submissions hit the wire in the order their claims succeed.
// Within a single producer goroutine calls are therefore strictly ordered;
// across racing producers no order is guaranteed beyond mutual exclusion.
//
// Known limitation: a socket write that never completes stalls the dispatch
// loop and, transitively, every later submission once its claim spin starts.
// No timeout or cancellation is exposed; systems that need stronger
// robustness must layer it above this primitive.
package dispatch
