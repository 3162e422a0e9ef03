package discovery

import (
	"net"

	"golang.org/x/sys/unix"
)

// newBroadcastSocket opens a UDP socket bound to an ephemeral local port
// with broadcast sends enabled and non-blocking I/O. Go's
// net package does not set SO_BROADCAST by default, so it is set explicitly
// here via the raw socket — the one place this module reaches below
// net.Conn, because nothing in the standard library exposes this option.
func newBroadcastSocket() (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, err
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, err
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if sockErr != nil {
		conn.Close()
		return nil, sockErr
	}

	return conn, nil
}
