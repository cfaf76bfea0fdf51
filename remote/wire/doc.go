// Package wire implements the byte-stream protocol spoken between
// replication peers: a flat sequence of units with no framing delimiter
// other than the integers themselves.
//
// Every unit starts with a 4-byte signed integer in the platform's native
// byte order. A negative integer is itself a complete unit, a control/index
// signal carrying no payload. A positive integer announces the byte length
// of the payload block that immediately follows.
//
// The writing side of this protocol is the dispatch package; wire provides
// the decoding counterpart plus the small encoding helpers shared by tests.
package wire
