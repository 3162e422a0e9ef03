package discovery

// probeText is the broadcast probe body: ASCII, each line
// newline-terminated. The same text goes to both the PS5 port (9302) and
// the PS4 port (987); only the destination port differs.
const probeText = "SRCH * HTTP/1.1\ndevice-discovery-protocol-version:00030010\n"

// BuildProbe returns the discovery probe bytes, without the trailing NUL
// byte a sender appends to the wire.
func BuildProbe() []byte {
	return []byte(probeText)
}

// BuildProbeWithNUL returns the probe bytes including the trailing NUL a
// sender must include in the byte count it transmits.
func BuildProbeWithNUL() []byte {
	b := make([]byte, len(probeText)+1)
	copy(b, probeText)
	return b
}
