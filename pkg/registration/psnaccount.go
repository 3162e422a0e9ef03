package registration

import "github.com/mauricio-gg/remoteplay-core/pkg/codec"

// ParsePSNAccountID accepts the 8-byte PSN account id either as its
// base64 form or as a 16-character hex string, and returns the raw
// little-endian bytes.
func ParsePSNAccountID(s string) ([8]byte, error) {
	var out [8]byte

	if b, err := codec.B64Decode(s); err == nil && len(b) == 8 {
		copy(out[:], b)
		return out, nil
	}

	if len(s) == 16 {
		if b, err := codec.HexDecode(s); err == nil && len(b) == 8 {
			copy(out[:], b)
			return out, nil
		}
	}

	return out, ErrInvalidPSNAccountID
}
