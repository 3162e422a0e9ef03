// Package takion implements the Takion transport: two connected UDP
// sockets, an SCTP-flavored handshake for PS4 peers (or an immediate
// short-circuit for PS5 peers), and the chunked send/receive framing that
// rides on top.
package takion

import (
	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
)

// State is an Association's position in the handshake/lifecycle state
// machine.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateInitSent
	StateInitAckReceived
	StateCookieSent
	StateCookieAckReceived
	StateConnected
	StateDisconnecting
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateInitSent:
		return "init-sent"
	case StateInitAckReceived:
		return "init-ack-received"
	case StateCookieSent:
		return "cookie-sent"
	case StateCookieAckReceived:
		return "cookie-ack-received"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// DataKind hints at what a delivered DATA payload contains. DataKindVideo
// is assigned when the payload starts with 00 00 00 01; this is a
// heuristic, not a guarantee, and does not identify codec framing.
type DataKind int

const (
	DataKindProtobuf DataKind = iota
	DataKindVideo
)

func (k DataKind) String() string {
	if k == DataKindVideo {
		return "video"
	}
	return "protobuf"
}

// Callbacks is the capability interface an Association delivers typed
// events to, in place of a raw callback pointer with void* user data
//.
type Callbacks interface {
	OnData(kind DataKind, payload []byte)
	OnState(state State)
	OnError(kind errs.Kind, message string)
}

// NoopCallbacks implements Callbacks with no-ops, for callers that only
// care about some events or none (e.g. tests driving the handshake
// directly).
type NoopCallbacks struct{}

func (NoopCallbacks) OnData(DataKind, []byte)  {}
func (NoopCallbacks) OnState(State)            {}
func (NoopCallbacks) OnError(errs.Kind, string) {}

// Stats tracks packet/byte counters and the last-activity timestamp for an
// Association.
type Stats struct {
	PacketsSent           uint64
	PacketsReceived       uint64
	BytesSent             uint64
	BytesReceived         uint64
	LastPacketAtUnixMilli int64
}
