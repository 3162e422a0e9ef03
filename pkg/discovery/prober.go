package discovery

import (
	"net"
	"time"

	"github.com/pion/logging"
)

// broadcastAddr is the limited broadcast address; every LAN segment routes
// it without a destination-specific address, which matches how the console
// itself is discovered.
const broadcastAddr = "255.255.255.255"

// prober owns the UDP socket used to send broadcast probes and to receive
// the consoles' unicast replies. Each Scan and each ProbeOnce call opens
// its own prober and closes it when done.
type prober struct {
	conn *net.UDPConn
	log  logging.LeveledLogger
}

func newProber(log logging.LeveledLogger) (*prober, error) {
	conn, err := newBroadcastSocket()
	if err != nil {
		return nil, err
	}
	return &prober{conn: conn, log: log}, nil
}

func (p *prober) close() error {
	return p.conn.Close()
}

// send broadcasts the probe to every discovery port.
func (p *prober) send(ports []DiscoveryPort) {
	payload := BuildProbeWithNUL()
	for _, port := range ports {
		dst := &net.UDPAddr{IP: net.IPv4bcast, Port: int(port)}
		if _, err := p.conn.WriteToUDP(payload, dst); err != nil {
			p.log.Warnf("discovery: probe send to port %d failed: %v", port, err)
		}
	}
}

// sendTo sends a single probe to one address, used by ProbeOnce for a
// targeted liveness check.
func (p *prober) sendTo(address string, port DiscoveryPort) error {
	dst := &net.UDPAddr{IP: net.ParseIP(address), Port: int(port)}
	_, err := p.conn.WriteToUDP(BuildProbeWithNUL(), dst)
	return err
}

// readLoop reads responses until deadline or the socket is closed,
// calling onResponse for every datagram received; parsing is left to
// onResponse.
func (p *prober) readLoop(deadline time.Time, onResponse func(address string, data []byte)) {
	buf := make([]byte, 2048)
	for {
		if err := p.conn.SetReadDeadline(deadline); err != nil {
			return
		}
		n, src, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		onResponse(src.IP.String(), buf[:n])
	}
}
