// transport/udp/endpoint_linux.go
//go:build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux socket tuning via raw syscalls on the bound UDP socket.

package udp

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// tuneSocket applies receive-side socket options. SO_RCVBUF is sized for
// sustained bursts so the kernel, not this driver, absorbs scheduling
// jitter between polls.
func tuneSocket(conn *net.UDPConn, cfg EndpointConfig) error {
	if cfg.ReceiveBufferSize <= 0 {
		return nil
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("udp: raw conn: %w", err)
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, cfg.ReceiveBufferSize)
	})
	if err != nil {
		return fmt.Errorf("udp: socket control: %w", err)
	}
	if serr != nil {
		return fmt.Errorf("udp: set SO_RCVBUF: %w", serr)
	}
	return nil
}
