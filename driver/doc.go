// File: driver/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package driver implements the receive-path core of the hioload-udp
// messaging transport: per-endpoint datagram classification and
// fragment reassembly on receiver threads, and single-threaded
// connection admission and lifecycle in the Conductor.
//
// Thread model: exactly two roles touch this core. Each endpoint has
// one receiver goroutine running the synchronous hot path; one
// conductor goroutine owns every Connection. A receiver hands newly
// observed sessions to the conductor over a bounded lock-free
// single-producer/single-consumer ring; the conductor publishes
// routing back as immutable copy-on-write snapshots. No other shared
// state exists apart from each endpoint's open/closed flag.
package driver
