//go:build linux

package discovery

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenUDP opens the Discovery UDP socket with SO_REUSEADDR and, where
// available, SO_REUSEPORT, so a second local instance (e.g. under a
// PINGO_INSTANCE namespace) can bind the same presence port without
// racing the first.
func listenUDP(addr string) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = applySockOpts(int(fd))
			})
			if err != nil {
				return fmt.Errorf("raw conn control: %w", err)
			}
			return sockErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("discovery: listen udp %s: %w", addr, err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("discovery: unexpected connection type from ListenPacket")
	}
	return conn, nil
}

func applySockOpts(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	// SO_REUSEPORT is not available on every kernel Go still targets;
	// tolerate ENOPROTOOPT rather than failing socket setup over it.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		if err != unix.ENOPROTOOPT {
			return fmt.Errorf("set SO_REUSEPORT: %w", err)
		}
	}
	// Presence announcements go to the subnet and global broadcast
	// addresses, which requires SO_BROADCAST.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
		return fmt.Errorf("set SO_BROADCAST: %w", err)
	}
	return nil
}
