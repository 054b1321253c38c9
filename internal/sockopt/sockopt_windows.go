//go:build windows

package sockopt

import (
	"net"
	"syscall"

	"golang.org/x/sys/windows"
)

// SetNoDelay disables Nagle's algorithm on conn if it exposes a raw
// handle. Non-TCP connections are left untouched.
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
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.IPPROTO_TCP, windows.TCP_NODELAY, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
