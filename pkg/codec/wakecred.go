package codec

import (
	"encoding/binary"
	"errors"
	"strconv"
)

// ErrInvalidHex8 is returned when a string is not exactly 8 lowercase hex
// characters.
var ErrInvalidHex8 = errors.New("codec: not an 8-character lowercase hex string")

// IsHex8 reports whether s is exactly 8 characters from [0-9a-f].
func IsHex8(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// Hex8ToWakeCredentialDec computes the decimal string used verbatim in the
// wake packet's user-credential header: the hex8 short key, left-zero-padded
// to 8 bytes and interpreted as a big-endian uint64, rendered in decimal.
func Hex8ToWakeCredentialDec(hex8 string) (string, error) {
	if !IsHex8(hex8) {
		return "", ErrInvalidHex8
	}
	raw, err := HexDecode(hex8)
	if err != nil {
		return "", err
	}
	var buf [8]byte
	copy(buf[4:], raw) // left-zero-pad to 8 bytes
	v := binary.BigEndian.Uint64(buf[:])
	return strconv.FormatUint(v, 10), nil
}

// WakeCredentialDecToUint64 parses the decimal wake-credential string back
// into its uint64 value, for round-trip verification.
func WakeCredentialDecToUint64(dec string) (uint64, error) {
	return strconv.ParseUint(dec, 10, 64)
}
