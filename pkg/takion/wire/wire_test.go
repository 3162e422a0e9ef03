package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestInitMessageMatchesLiteralFixture(t *testing.T) {
	const tagLocal = 0xDEADBEEF

	payload := (&InitPayload{
		TagLocal:   tagLocal,
		ARwnd:      DefaultAdvertisedWindow,
		OutStreams: 1,
		InStreams:  1,
		InitialSeq: tagLocal,
	}).Encode()

	h := Header{
		PacketType: PacketControl,
		Tag:        0,
		GMAC:       0,
		KeyPos:     0,
		ChunkType:  ChunkInit,
		ChunkFlags: 0,
	}
	got := EncodeMessage(h, payload)

	want := []byte{
		0x00,                   // packet_type: control
		0x00, 0x00, 0x00, 0x00, // tag
		0x00, 0x00, 0x00, 0x00, // GMAC
		0x00, 0x00, 0x00, 0x00, // key_pos
		0x01,       // chunk_type: INIT
		0x00,       // chunk_flags
		0x00, 0x10, // payload_size: 16
		0xDE, 0xAD, 0xBE, 0xEF, // tag_local
		0x00, 0x01, 0x90, 0x00, // a_rwnd = 102400
		0x00, 0x01, // out_streams
		0x00, 0x01, // in_streams
		0xDE, 0xAD, 0xBE, 0xEF, // initial_seq = tag_local
	}

	if len(got) != 33 {
		t.Fatalf("len(got) = %d, want 33", len(got))
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got  % X\nwant % X", got, want)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		PacketType:  PacketData,
		Tag:         0x11223344,
		GMAC:        0xAABBCCDD,
		KeyPos:      7,
		ChunkType:   ChunkFeedbackState,
		ChunkFlags:  0x01,
		PayloadSize: 5,
	}
	buf := h.Encode()
	if len(buf) != HeaderSize {
		t.Fatalf("len(buf) = %d, want %d", len(buf), HeaderSize)
	}

	var got Header
	n, err := got.Decode(buf)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if n != HeaderSize {
		t.Fatalf("n = %d, want %d", n, HeaderSize)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	h := Header{PacketType: PacketData, Tag: 42, ChunkType: ChunkData}
	payload := []byte("hello takion")

	encoded := EncodeMessage(h, payload)
	msg, err := DecodeMessage(encoded)
	if err != nil {
		t.Fatalf("DecodeMessage returned error: %v", err)
	}
	if msg.Header.Tag != 42 || msg.Header.ChunkType != ChunkData {
		t.Fatalf("header mismatch: %+v", msg.Header)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload = %q, want %q", msg.Payload, payload)
	}
}

func TestDecodeMessageRejectsTruncatedPayload(t *testing.T) {
	h := Header{PacketType: PacketData, ChunkType: ChunkData, PayloadSize: 10}
	buf := h.Encode() // header declares 10 bytes of payload, but none follow
	if _, err := DecodeMessage(buf); err != ErrPayloadTruncated {
		t.Fatalf("err = %v, want ErrPayloadTruncated", err)
	}
}

func TestDecodeMessageRejectsShortHeader(t *testing.T) {
	if _, err := DecodeMessage([]byte{0x00, 0x01, 0x02}); err != ErrHeaderTooShort {
		t.Fatalf("err = %v, want ErrHeaderTooShort", err)
	}
}

func TestInitAckPayloadRoundTrip(t *testing.T) {
	var cookie [CookieSize]byte
	for i := range cookie {
		cookie[i] = byte(i)
	}
	want := InitAckPayload{
		TagRemote:  0x11223344,
		ARwnd:      DefaultAdvertisedWindow,
		OutStreams: 1,
		InStreams:  1,
		InitialSeq: 99,
		Cookie:     cookie,
	}

	buf := make([]byte, 16+CookieSize)
	binary.BigEndian.PutUint32(buf[0:4], want.TagRemote)
	binary.BigEndian.PutUint32(buf[4:8], want.ARwnd)
	binary.BigEndian.PutUint16(buf[8:10], want.OutStreams)
	binary.BigEndian.PutUint16(buf[10:12], want.InStreams)
	binary.BigEndian.PutUint32(buf[12:16], want.InitialSeq)
	copy(buf[16:], cookie[:])

	got, err := DecodeInitAckPayload(buf)
	if err != nil {
		t.Fatalf("DecodeInitAckPayload returned error: %v", err)
	}
	if *got != want {
		t.Fatalf("got %+v, want %+v", *got, want)
	}
}

func TestInitPayloadRoundTrip(t *testing.T) {
	want := InitPayload{TagLocal: 0xDEADBEEF, ARwnd: DefaultAdvertisedWindow, OutStreams: 1, InStreams: 1, InitialSeq: 0xDEADBEEF}
	got, err := DecodeInitPayload(want.Encode())
	if err != nil {
		t.Fatalf("DecodeInitPayload returned error: %v", err)
	}
	if *got != want {
		t.Fatalf("got %+v, want %+v", *got, want)
	}
}
