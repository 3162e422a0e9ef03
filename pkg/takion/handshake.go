package takion

import (
	"net"
	"time"

	"github.com/mauricio-gg/remoteplay-core/pkg/takion/wire"
)

// sendInit transmits the INIT chunk.
func sendInit(control *net.UDPConn, tagLocal uint32, timeout time.Duration) error {
	payload := (&wire.InitPayload{
		TagLocal:   tagLocal,
		ARwnd:      wire.DefaultAdvertisedWindow,
		OutStreams: 1,
		InStreams:  1,
		InitialSeq: tagLocal,
	}).Encode()

	msg := wire.EncodeMessage(wire.Header{
		PacketType: wire.PacketControl,
		ChunkType:  wire.ChunkInit,
	}, payload)

	return writeWithDeadline(control, msg, timeout)
}

// awaitInitAck reads one message and requires it to be an INIT_ACK
// (anything else is ErrUnexpectedChunk), rejecting a zero tag_remote as a
// protocol violation.
func awaitInitAck(control *net.UDPConn, timeout time.Duration) (*wire.InitAckPayload, error) {
	msg, err := readChunk(control, timeout, wire.ChunkInitAck)
	if err != nil {
		return nil, err
	}
	ack, err := wire.DecodeInitAckPayload(msg.Payload)
	if err != nil {
		return nil, err
	}
	if ack.TagRemote == 0 {
		return nil, ErrZeroRemoteTag
	}
	return ack, nil
}

// sendCookie transmits the COOKIE chunk echoing cookie, tagged with the
// now-learned tagRemote.
func sendCookie(control *net.UDPConn, tagRemote uint32, cookie [wire.CookieSize]byte, timeout time.Duration) error {
	msg := wire.EncodeMessage(wire.Header{
		PacketType: wire.PacketControl,
		Tag:        tagRemote,
		ChunkType:  wire.ChunkCookie,
	}, cookie[:])
	return writeWithDeadline(control, msg, timeout)
}

// awaitCookieAck reads until a COOKIE_ACK arrives, tolerating at most one
// duplicate INIT_ACK retransmission in between.
func awaitCookieAck(control *net.UDPConn, timeout time.Duration) error {
	for attempt := 0; attempt < 2; attempt++ {
		msg, err := readMessage(control, timeout)
		if err != nil {
			return err
		}
		switch msg.Header.ChunkType {
		case wire.ChunkCookieAck:
			return nil
		case wire.ChunkInitAck:
			continue // duplicate retransmission; read again
		default:
			return ErrUnexpectedChunk
		}
	}
	return ErrUnexpectedChunk
}

func writeWithDeadline(conn *net.UDPConn, data []byte, timeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

func readMessage(conn *net.UDPConn, timeout time.Duration) (*wire.Message, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return wire.DecodeMessage(buf[:n])
}

// readChunk reads one message and requires it be of chunk type want.
func readChunk(conn *net.UDPConn, timeout time.Duration, want wire.ChunkType) (*wire.Message, error) {
	msg, err := readMessage(conn, timeout)
	if err != nil {
		return nil, err
	}
	if msg.Header.ChunkType != want {
		return nil, ErrUnexpectedChunk
	}
	return msg, nil
}
