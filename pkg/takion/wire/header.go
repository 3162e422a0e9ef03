// Package wire implements the Takion message framing: a fixed 17-byte
// header followed by payload bytes.
package wire

import (
	"encoding/binary"
	"errors"
)

// PacketType is the wire-level framing byte.
type PacketType byte

const (
	PacketControl PacketType = 0x00
	PacketData    PacketType = 0x02
)

// ChunkType identifies the chunk carried by a message.
type ChunkType byte

const (
	ChunkData            ChunkType = 0x00
	ChunkInit            ChunkType = 0x01
	ChunkInitAck         ChunkType = 0x02
	ChunkCookie          ChunkType = 0x0A
	ChunkCookieAck       ChunkType = 0x0B
	ChunkFeedbackState   ChunkType = 0x8E
	ChunkFeedbackHistory ChunkType = 0x8F
)

// DisconnectFlag marks a DATA chunk as the graceful-disconnect signal
//.
const DisconnectFlag byte = 0x01

// HeaderSize is the fixed on-wire header length: 1 (packet type) + 16
// (tag + GMAC + key_pos + chunk_type + chunk_flags + payload_size).
const HeaderSize = 17

// ErrHeaderTooShort is returned by Decode when fewer than HeaderSize bytes
// are available.
var ErrHeaderTooShort = errors.New("wire: header requires at least 17 bytes")

// ErrPayloadTruncated is returned by Decode when the declared payload_size
// would read past the end of the supplied buffer.
var ErrPayloadTruncated = errors.New("wire: declared payload_size exceeds buffer length")

// Header is one Takion message's 17-byte fixed header.
type Header struct {
	PacketType  PacketType
	Tag         uint32 // 0 until association learned, then tag_remote
	GMAC        uint32 // zero for control handshake chunks
	KeyPos      uint32 // 0 for handshake chunks
	ChunkType   ChunkType
	ChunkFlags  byte
	PayloadSize uint16 // exact payload length, header overhead excluded
}

// Size returns the encoded header length. It is always HeaderSize; the
// method exists so callers can treat Header like any other sized wire
// type without hard-coding the constant.
func (h *Header) Size() int { return HeaderSize }

// Encode allocates and returns the encoded header.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	return buf
}

// EncodeTo serializes h into buf, which must be at least HeaderSize bytes,
// and returns the number of bytes written.
func (h *Header) EncodeTo(buf []byte) int {
	buf[0] = byte(h.PacketType)
	binary.BigEndian.PutUint32(buf[1:5], h.Tag)
	binary.BigEndian.PutUint32(buf[5:9], h.GMAC)
	binary.BigEndian.PutUint32(buf[9:13], h.KeyPos)
	buf[13] = byte(h.ChunkType)
	buf[14] = h.ChunkFlags
	binary.BigEndian.PutUint16(buf[15:17], h.PayloadSize)
	return HeaderSize
}

// Decode parses a header from the front of data and returns the number of
// bytes consumed (always HeaderSize on success). It does not validate that
// data is long enough to hold the declared payload — callers combine this
// with DecodeMessage for that check.
func (h *Header) Decode(data []byte) (int, error) {
	if len(data) < HeaderSize {
		return 0, ErrHeaderTooShort
	}
	h.PacketType = PacketType(data[0])
	h.Tag = binary.BigEndian.Uint32(data[1:5])
	h.GMAC = binary.BigEndian.Uint32(data[5:9])
	h.KeyPos = binary.BigEndian.Uint32(data[9:13])
	h.ChunkType = ChunkType(data[13])
	h.ChunkFlags = data[14]
	h.PayloadSize = binary.BigEndian.Uint16(data[15:17])
	return HeaderSize, nil
}
