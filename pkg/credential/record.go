// Package credential owns the per-console credential table: load, persist,
// migrate, and look up the long-lived pairing material a console hands back
// after registration.
package credential

import (
	"bytes"

	"github.com/mauricio-gg/remoteplay-core/pkg/codec"
)

// Record is one console's persisted credential set.
type Record struct {
	Address string // IPv4 string

	DisplayName string // short label

	RegistKeyHex8 string // exactly 8 lowercase hex characters

	RegistKey16 [16]byte // authoritative 16-byte RP-Regist-Key
	Morning16   [16]byte // 16-byte morning session key

	PSNAccountLE8 [8]byte // 8-byte little-endian PSN Account ID
}

// PSNAccountB64 returns the PSN account ID base64-encoded, for header
// emission.
func (r *Record) PSNAccountB64() string {
	return codec.B64Encode(r.PSNAccountLE8[:])
}

// WakeCredentialDec returns the decimal string used verbatim in the wake
// packet's user-credential header.
func (r *Record) WakeCredentialDec() (string, error) {
	return codec.Hex8ToWakeCredentialDec(r.RegistKeyHex8)
}

// Valid reports whether the record is structurally usable: hex8 present
// and well-formed, morning key not all zero, PSN account ID not all zero.
func (r *Record) Valid() bool {
	if !codec.IsHex8(r.RegistKeyHex8) {
		return false
	}
	if allZero(r.Morning16[:]) {
		return false
	}
	if allZero(r.PSNAccountLE8[:]) {
		return false
	}
	return true
}

func allZero(b []byte) bool {
	return bytes.Equal(b, make([]byte, len(b)))
}

// SessionCredentials returns the (RegistKey16, Morning16) pair used to
// establish a Takion session.
// The preferred path returns RegistKey16 verbatim if any byte beyond the
// first 4 is non-zero; otherwise it reconstructs 16 bytes as
// hex_decode(hex8) || zeros(12). Morning16 is always returned verbatim.
func (r *Record) SessionCredentials() (registKey16 [16]byte, morning16 [16]byte) {
	morning16 = r.Morning16

	if !allZero(r.RegistKey16[4:]) {
		registKey16 = r.RegistKey16
		return
	}

	raw, err := codec.HexDecode(r.RegistKeyHex8)
	if err != nil || len(raw) != 4 {
		// Fall back to whatever was stored; the record is malformed and
		// higher layers will reject it via Valid()/Unified().
		registKey16 = r.RegistKey16
		return
	}
	copy(registKey16[:4], raw)
	return
}

// Unified is the single accessor used by wake, session init, and anything
// else that must not disagree with itself about a console's credentials
//.
type Unified struct {
	Hex8             string
	WakeCredentialDec string
	DisplayName      string
	Valid            bool
}

// Unified computes the unified credential view for this record.
func (r *Record) Unified() Unified {
	u := Unified{
		Hex8:        r.RegistKeyHex8,
		DisplayName: r.DisplayName,
		Valid:       r.Valid(),
	}
	if dec, err := r.WakeCredentialDec(); err == nil {
		u.WakeCredentialDec = dec
	}
	return u
}

// clone returns a deep copy of the record, used so the table never shares
// backing arrays with a caller's mutable copy.
func (r *Record) clone() *Record {
	c := *r
	return &c
}
