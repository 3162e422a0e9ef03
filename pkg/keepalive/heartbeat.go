package keepalive

import (
	"bytes"
	"fmt"
)

// maxHeartbeatSize bounds the ASCII heartbeat payload.
const maxHeartbeatSize = 64

const heartbeatPrefix = "KEEP:"

// heartbeatPayload builds the ASCII "KEEP:<monotonic_ms>" datagram for a
// heartbeat sent at t, truncating to maxHeartbeatSize in the (unreachable
// in practice) case the timestamp digits would overflow it.
func heartbeatPayload(t interface{ UnixMilli() int64 }) []byte {
	payload := []byte(fmt.Sprintf("%s%d", heartbeatPrefix, t.UnixMilli()))
	if len(payload) > maxHeartbeatSize {
		payload = payload[:maxHeartbeatSize]
	}
	return payload
}

// isHeartbeatReply reports whether data looks like a KEEP: reply rather
// than unrelated control traffic sharing the socket.
func isHeartbeatReply(data []byte) bool {
	return bytes.HasPrefix(data, []byte(heartbeatPrefix))
}
