package takion

import (
	"fmt"
	"net"
	"time"
)

// Buffer sizes raised on both sockets.
const (
	recvBufferSize = 100 * 1024
	sendBufferSize = 64 * 1024
)

// drainTimeout bounds how long connectSockets spends discarding stale
// bytes sitting on the control socket before a handshake begins.
const drainTimeout = 1 * time.Second

// connectSockets dials both the control and stream sockets, raises their
// buffer sizes, and drains any unsolicited bytes already waiting on the
// control socket.
func connectSockets(address string, controlPort, streamPort int) (control, stream *net.UDPConn, err error) {
	if controlPort == streamPort {
		return nil, nil, ErrPortsEqual
	}

	control, err = dialUDP(address, controlPort)
	if err != nil {
		return nil, nil, err
	}

	stream, err = dialUDP(address, streamPort)
	if err != nil {
		control.Close()
		return nil, nil, err
	}

	drainStale(control)

	return control, stream, nil
}

func dialUDP(address string, port int) (*net.UDPConn, error) {
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.ParseIP(address), Port: port})
	if err != nil {
		return nil, fmt.Errorf("takion: dial %s:%d: %w", address, port, err)
	}
	if err := conn.SetReadBuffer(recvBufferSize); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.SetWriteBuffer(sendBufferSize); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// drainStale discards whatever is already sitting in conn's receive buffer
// for up to drainTimeout, so a handshake's first read never sees leftover
// bytes from a prior session.
func drainStale(conn *net.UDPConn) {
	deadline := time.Now().Add(drainTimeout)
	buf := make([]byte, 2048)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return
		}
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}
