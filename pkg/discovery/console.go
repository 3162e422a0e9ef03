package discovery

// Console is an ephemeral, discovery-session-scoped record of a console
// that responded to a probe.
type Console struct {
	Address      string
	DeviceName   string
	HostID       string
	ConsoleType  ConsoleType
	RequestPort  int
	IsReady      bool
	DiscoveredAt int64 // monotonic milliseconds
}

// key returns the merge key for the results table: host-id when present,
// otherwise the address.
func (c *Console) key() string {
	if c.HostID != "" {
		return c.HostID
	}
	return c.Address
}
