package registration

import "testing"

func TestParsePSNAccountIDBase64(t *testing.T) {
	want := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	got, err := ParsePSNAccountID("AQIDBAUGBwg=")
	if err != nil {
		t.Fatalf("ParsePSNAccountID returned error: %v", err)
	}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParsePSNAccountIDHex16(t *testing.T) {
	want := [8]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11}
	got, err := ParsePSNAccountID("aabbccddeeff0011")
	if err != nil {
		t.Fatalf("ParsePSNAccountID returned error: %v", err)
	}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParsePSNAccountIDRejectsGarbage(t *testing.T) {
	if _, err := ParsePSNAccountID("not valid"); err != ErrInvalidPSNAccountID {
		t.Fatalf("err = %v, want ErrInvalidPSNAccountID", err)
	}
}
