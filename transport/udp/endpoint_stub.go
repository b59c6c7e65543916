// transport/udp/endpoint_stub.go
//go:build !linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package udp

import "net"

// tuneSocket falls back to the portable setter on non-Linux platforms.
func tuneSocket(conn *net.UDPConn, cfg EndpointConfig) error {
	if cfg.ReceiveBufferSize <= 0 {
		return nil
	}
	return conn.SetReadBuffer(cfg.ReceiveBufferSize)
}
