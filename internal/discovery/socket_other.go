//go:build !linux

package discovery

import (
	"fmt"
	"net"
)

// listenUDP opens the Discovery UDP socket without SO_REUSEPORT, which
// is Linux/BSD-specific and wired only via golang.org/x/sys/unix on
// platforms that export it.
func listenUDP(addr string) (*net.UDPConn, error) {
	laddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("discovery: listen udp %s: %w", addr, err)
	}
	return conn, nil
}
