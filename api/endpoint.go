// File: api/endpoint.go
// Package api defines receive endpoint abstractions.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "net"

// ReceiveEndpoint is the identity of one physical receive channel. Its
// open/closed flag is the only endpoint state shared across threads:
// Close stores it with release semantics, IsOpen loads it with acquire
// semantics, so the conductor observes a close made by any thread.
type ReceiveEndpoint interface {
	// Name returns the channel identity, stable for the endpoint lifetime.
	Name() string

	// IsOpen reports whether the endpoint still accepts traffic.
	IsOpen() bool

	// Close shuts the endpoint down; idempotent.
	Close() error
}

// ReceiveChannelEndpoint is a pollable receive endpoint: the receiver
// thread reads raw datagrams from it into caller-owned buffers.
type ReceiveChannelEndpoint interface {
	ReceiveEndpoint

	// PollDatagram reads one datagram into buf and returns its length and
	// source address. Blocks until a datagram arrives or the endpoint
	// closes, in which case it returns an error satisfying
	// errors.Is(err, net.ErrClosed).
	PollDatagram(buf []byte) (int, *net.UDPAddr, error)
}
