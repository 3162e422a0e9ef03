package credential

import "testing"

func TestRepairKeyFieldOpaqueHex8PassesThrough(t *testing.T) {
	hex8, ok := repairKeyField([]byte("8830739c"))
	if !ok || hex8 != "8830739c" {
		t.Fatalf("got (%q, %v), want (8830739c, true)", hex8, ok)
	}
}

func TestRepairKeyFieldOpaqueHex8InHexASCIIRangeNotTreatedAsDoubleHex(t *testing.T) {
	// All 8 characters happen to be valid hex digits, but this is NOT a
	// 16-character double-hex field and must be accepted as-is.
	hex8, ok := repairKeyField([]byte("deadbeef"))
	if !ok || hex8 != "deadbeef" {
		t.Fatalf("got (%q, %v), want (deadbeef, true)", hex8, ok)
	}
}

func TestRepairKeyFieldRaw4Bytes(t *testing.T) {
	hex8, ok := repairKeyField([]byte{0x88, 0x30, 0x73, 0x9c})
	if !ok || hex8 != "8830739c" {
		t.Fatalf("got (%q, %v), want (8830739c, true)", hex8, ok)
	}
}

func TestRepairKeyFieldDoubleHex16(t *testing.T) {
	// "8830739c" hex-encoded again, character by character:
	// '8'->0x38 '8'->0x38 '3'->0x33 '0'->0x30 '7'->0x37 '3'->0x33 '9'->0x39 'c'->0x63
	field := "3838333037333963"
	hex8, ok := repairKeyField([]byte(field))
	if !ok || hex8 != "8830739c" {
		t.Fatalf("got (%q, %v), want (8830739c, true)", hex8, ok)
	}
}

func TestRepairKeyFieldDoubleHex32(t *testing.T) {
	// Same double-hex encoding as above, padded to 32 chars with zero bytes
	// hex-encoded ('0' -> 0x30).
	field := "3838333037333963" + "3030303030303030"
	hex8, ok := repairKeyField([]byte(field))
	if !ok || hex8 != "8830739c" {
		t.Fatalf("got (%q, %v), want (8830739c, true)", hex8, ok)
	}
}

func TestRepairKeyFieldDoubleHexRejectsNonHexDecoded(t *testing.T) {
	// Decodes to 8 bytes, but not all of them are ASCII hex-digit
	// characters (0x5a = 'Z').
	field := "5a30303030303030" // 'Z' then '0'*7, hex-encoded
	if _, ok := repairKeyField([]byte(field)); ok {
		t.Fatal("expected repair to fail for non-hex-digit decoded bytes")
	}
}

func TestRepairKeyFieldUnrepairableLength(t *testing.T) {
	if _, ok := repairKeyField([]byte("abc")); ok {
		t.Fatal("expected repair to fail for unsupported length")
	}
}
