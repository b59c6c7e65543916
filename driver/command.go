// File: driver/command.go
// Package driver implements the receive-side control and data dispatch core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"fmt"
	"net"

	"github.com/momentics/hioload-udp/api"
)

// CreateConnectionCommand describes a connection-to-be-created, handed
// from a receiver thread to the conductor. Pure data: construction
// performs no I/O and the value is immutable after creation, so it can
// cross the thread boundary without coordination beyond the ring.
type CreateConnectionCommand struct {
	sessionID      int32
	streamID       int32
	initialTermID  int32
	controlAddress *net.UDPAddr
	endpoint       api.ReceiveEndpoint
}

// NewCreateConnectionCommand captures one creation request. The control
// address and owner endpoint must be non-nil.
func NewCreateConnectionCommand(
	sessionID, streamID, initialTermID int32,
	controlAddress *net.UDPAddr,
	endpoint api.ReceiveEndpoint,
) (CreateConnectionCommand, error) {
	if controlAddress == nil {
		return CreateConnectionCommand{}, fmt.Errorf("%w: nil control address", api.ErrInvalidArgument)
	}
	if endpoint == nil {
		return CreateConnectionCommand{}, fmt.Errorf("%w: nil endpoint", api.ErrInvalidArgument)
	}
	return CreateConnectionCommand{
		sessionID:      sessionID,
		streamID:       streamID,
		initialTermID:  initialTermID,
		controlAddress: controlAddress,
		endpoint:       endpoint,
	}, nil
}

// SessionID returns the session identifier.
func (c CreateConnectionCommand) SessionID() int32 { return c.sessionID }

// StreamID returns the stream identifier.
func (c CreateConnectionCommand) StreamID() int32 { return c.streamID }

// InitialTermID returns the term id captured at admission.
func (c CreateConnectionCommand) InitialTermID() int32 { return c.initialTermID }

// ControlAddress returns the destination for status traffic.
func (c CreateConnectionCommand) ControlAddress() *net.UDPAddr { return c.controlAddress }

// Endpoint returns the owning receive endpoint.
func (c CreateConnectionCommand) Endpoint() api.ReceiveEndpoint { return c.endpoint }
