package wire

// Message is a full Takion wire message: header plus payload.
type Message struct {
	Header  Header
	Payload []byte
}

// EncodeMessage writes header and payload (setting header.PayloadSize from
// len(payload)) and returns the full encoded bytes.
func EncodeMessage(h Header, payload []byte) []byte {
	h.PayloadSize = uint16(len(payload))
	buf := make([]byte, HeaderSize+len(payload))
	h.EncodeTo(buf)
	copy(buf[HeaderSize:], payload)
	return buf
}

// DecodeMessage parses a full message from data: a 17-byte header plus
// exactly header.PayloadSize bytes of payload. It fails if the declared
// payload_size would read past the end of data.
func DecodeMessage(data []byte) (*Message, error) {
	var h Header
	n, err := h.Decode(data)
	if err != nil {
		return nil, err
	}
	end := n + int(h.PayloadSize)
	if end > len(data) {
		return nil, ErrPayloadTruncated
	}
	payload := make([]byte, h.PayloadSize)
	copy(payload, data[n:end])
	return &Message{Header: h, Payload: payload}, nil
}
