//go:build !linux && !windows

package sockopt

import "net"

// SetNoDelay is a no-op on platforms without a dedicated implementation.
func SetNoDelay(conn net.Conn) error {
	return nil
}
