// File: driver/connection.go
// Package driver
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"net"
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
)

// ConnectionState tracks the conductor-owned lifecycle of a connection.
type ConnectionState int

const (
	// ConnectionPending: the admission command is queued but not applied;
	// in this phase the connection exists only inside the ring.
	ConnectionPending ConnectionState = iota

	// ConnectionActive: created, routed, reassembler ready.
	ConnectionActive

	// ConnectionInactive: externally signalled as idle or torn down.
	ConnectionInactive

	// ConnectionLinger: draining in-flight reassembly before close.
	ConnectionLinger

	// ConnectionClosed: removed from all routing.
	ConnectionClosed
)

// String returns the state name.
func (s ConnectionState) String() string {
	switch s {
	case ConnectionPending:
		return "pending"
	case ConnectionActive:
		return "active"
	case ConnectionInactive:
		return "inactive"
	case ConnectionLinger:
		return "linger"
	case ConnectionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection binds a session and stream to its receive channel endpoint.
// Identity fields are immutable after creation; state is mutated only on
// the conductor thread.
type Connection struct {
	sessionID      int32
	streamID       int32
	initialTermID  int32
	controlAddress *net.UDPAddr
	endpoint       api.ReceiveEndpoint

	state ConnectionState

	// retired is set by the conductor when the connection enters LINGER.
	// The receiver thread observes it and releases the session's builder
	// on its own thread while the routing entry is still published.
	retired atomic.Bool
}

// newConnection materializes a connection from exactly one admission
// command; the conductor never calls this twice for the same
// (endpoint, sessionID) pair.
func newConnection(cmd CreateConnectionCommand) *Connection {
	return &Connection{
		sessionID:      cmd.SessionID(),
		streamID:       cmd.StreamID(),
		initialTermID:  cmd.InitialTermID(),
		controlAddress: cmd.ControlAddress(),
		endpoint:       cmd.Endpoint(),
		state:          ConnectionActive,
	}
}

// SessionID returns the session identifier.
func (c *Connection) SessionID() int32 { return c.sessionID }

// StreamID returns the stream identifier.
func (c *Connection) StreamID() int32 { return c.streamID }

// InitialTermID returns the term id captured at admission.
func (c *Connection) InitialTermID() int32 { return c.initialTermID }

// ControlAddress returns the destination for status traffic.
func (c *Connection) ControlAddress() *net.UDPAddr { return c.controlAddress }

// Endpoint returns the owning receive endpoint.
func (c *Connection) Endpoint() api.ReceiveEndpoint { return c.endpoint }

// State returns the lifecycle state. Conductor thread only.
func (c *Connection) State() ConnectionState { return c.state }

// Retired reports whether teardown has begun. Safe from any thread; the
// store pairs with the receiver's load.
func (c *Connection) Retired() bool { return c.retired.Load() }

func (c *Connection) retire() { c.retired.Store(true) }
