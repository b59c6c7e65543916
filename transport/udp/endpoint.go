// File: transport/udp/endpoint.go
// Package udp
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ReceiveChannelEndpoint: one UDP socket per physical channel. The
// endpoint only reads datagrams and exposes its open/closed state;
// classification and reassembly happen in the driver layer above.

package udp

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
)

// Ensure compile-time interface compliance.
var _ api.ReceiveChannelEndpoint = (*Endpoint)(nil)

// Endpoint is a receive channel endpoint bound to one local UDP address.
// The closed flag is the only state shared across threads: Close stores
// it (release), IsOpen loads it (acquire).
type Endpoint struct {
	name   string
	conn   *net.UDPConn
	closed atomic.Bool
}

// EndpointConfig tunes socket creation.
type EndpointConfig struct {
	// ReceiveBufferSize sets SO_RCVBUF where the platform supports it;
	// zero keeps the OS default.
	ReceiveBufferSize int
}

// Listen opens a receive endpoint on addr ("host:port"). The name
// identifies the channel in logs, events, and routing.
func Listen(name, addr string, cfg EndpointConfig) (*Endpoint, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("udp: listen %q: %w", addr, err)
	}
	if err := tuneSocket(conn, cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return &Endpoint{name: name, conn: conn}, nil
}

// Name returns the channel identity.
func (e *Endpoint) Name() string {
	return e.name
}

// LocalAddr returns the bound address.
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	return e.conn.LocalAddr().(*net.UDPAddr)
}

// IsOpen reports whether the endpoint still accepts traffic.
func (e *Endpoint) IsOpen() bool {
	return !e.closed.Load()
}

// Close shuts the socket down and unblocks any pending poll. Idempotent.
func (e *Endpoint) Close() error {
	if e.closed.CompareAndSwap(false, true) {
		return e.conn.Close()
	}
	return nil
}

// PollDatagram reads one datagram into buf. On a closed endpoint the
// error satisfies errors.Is(err, net.ErrClosed).
func (e *Endpoint) PollDatagram(buf []byte) (int, *net.UDPAddr, error) {
	n, from, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		return 0, nil, err
	}
	return n, from, nil
}
