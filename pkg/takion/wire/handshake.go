package wire

import (
	"encoding/binary"
	"errors"
)

// DefaultAdvertisedWindow is the a_rwnd value this client always sends and
// never validates on receipt.
const DefaultAdvertisedWindow = 102400

// InitPayloadSize is the fixed INIT chunk payload length: tag_local(4) + a_rwnd(4) + out_streams(2) + in_streams(2)
// + initial_seq(4).
const InitPayloadSize = 16

// ErrInitPayloadSize is returned when an INIT payload is not exactly
// InitPayloadSize bytes.
var ErrInitPayloadSize = errors.New("wire: INIT payload must be 16 bytes")

// ErrInitAckPayloadTooShort is returned when an INIT_ACK payload is
// shorter than the fixed fields plus the 32-byte cookie.
var ErrInitAckPayloadTooShort = errors.New("wire: INIT_ACK payload must be at least 48 bytes")

// InitPayload is the INIT chunk's payload fields.
type InitPayload struct {
	TagLocal   uint32
	ARwnd      uint32
	OutStreams uint16
	InStreams  uint16
	InitialSeq uint32
}

// Encode serializes the INIT payload to its fixed 16-byte form.
func (p *InitPayload) Encode() []byte {
	buf := make([]byte, InitPayloadSize)
	binary.BigEndian.PutUint32(buf[0:4], p.TagLocal)
	binary.BigEndian.PutUint32(buf[4:8], p.ARwnd)
	binary.BigEndian.PutUint16(buf[8:10], p.OutStreams)
	binary.BigEndian.PutUint16(buf[10:12], p.InStreams)
	binary.BigEndian.PutUint32(buf[12:16], p.InitialSeq)
	return buf
}

// DecodeInitPayload parses an INIT chunk's payload.
func DecodeInitPayload(data []byte) (*InitPayload, error) {
	if len(data) != InitPayloadSize {
		return nil, ErrInitPayloadSize
	}
	return &InitPayload{
		TagLocal:   binary.BigEndian.Uint32(data[0:4]),
		ARwnd:      binary.BigEndian.Uint32(data[4:8]),
		OutStreams: binary.BigEndian.Uint16(data[8:10]),
		InStreams:  binary.BigEndian.Uint16(data[10:12]),
		InitialSeq: binary.BigEndian.Uint32(data[12:16]),
	}, nil
}

// CookieSize is the fixed cookie length echoed between INIT_ACK and COOKIE
//.
const CookieSize = 32

// InitAckPayload is the INIT_ACK chunk's payload fields: tag_remote || a_rwnd || streams || seq || cookie[32].
type InitAckPayload struct {
	TagRemote  uint32
	ARwnd      uint32
	OutStreams uint16
	InStreams  uint16
	InitialSeq uint32
	Cookie     [CookieSize]byte
}

// DecodeInitAckPayload parses an INIT_ACK chunk's payload. It does not
// reject TagRemote == 0 — the handshake state machine does that, since a
// zero remote tag here is a protocol violation, not a framing one.
func DecodeInitAckPayload(data []byte) (*InitAckPayload, error) {
	const fixedFields = 4 + 4 + 2 + 2 + 4
	if len(data) < fixedFields+CookieSize {
		return nil, ErrInitAckPayloadTooShort
	}
	p := &InitAckPayload{
		TagRemote:  binary.BigEndian.Uint32(data[0:4]),
		ARwnd:      binary.BigEndian.Uint32(data[4:8]),
		OutStreams: binary.BigEndian.Uint16(data[8:10]),
		InStreams:  binary.BigEndian.Uint16(data[10:12]),
		InitialSeq: binary.BigEndian.Uint32(data[12:16]),
	}
	copy(p.Cookie[:], data[16:16+CookieSize])
	return p, nil
}
