//go:build linux

// Package sockopt tunes raw socket options on the upgraded TCP connection
// before it is handed off to the per-connection reader/writer tasks.
// Disabling Nagle's algorithm matters here because Packet frames are small
// and latency-sensitive; batching them at the TCP layer would defeat the
// purpose of a realtime event channel.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package sockopt

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// SetNoDelay disables Nagle's algorithm on conn if it exposes a raw file
// descriptor. Non-TCP connections (e.g. in-memory pipes used by tests) are
// left untouched.
func SetNoDelay(conn net.Conn) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
