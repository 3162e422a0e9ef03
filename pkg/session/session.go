// Package session composes discovery, wake, registration, the credential
// store, the Takion transport, and keepalive into a single
// connect/start/stop lifecycle behind one narrow facade.
package session

import (
	"errors"
	"time"

	"github.com/pion/logging"

	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
	"github.com/mauricio-gg/remoteplay-core/pkg/keepalive"
	"github.com/mauricio-gg/remoteplay-core/pkg/takion"
)

// Default facade timing.
const (
	// DefaultWakeTimeout bounds how long Start waits for a standby console
	// to report ready after the wake datagram is sent. The Remote Play
	// service takes on the order of 20s to come up after wake, so the
	// overall budget is comfortably above that.
	DefaultWakeTimeout = 45 * time.Second
	// DefaultReadyPollInterval is how often readiness is re-probed while
	// waiting out DefaultWakeTimeout.
	DefaultReadyPollInterval = 3 * time.Second
)

// Errors
var (
	ErrNilStore      = errors.New("session: Config.Store is required")
	ErrNilDiscovery  = errors.New("session: Config.Discovery is required")
	ErrAlreadyActive = errors.New("session: a session is already active")
	ErrNotActive     = errors.New("session: no session is active")
)

// State is the facade's position in its lifecycle. It is coarser than the
// transport's handshake states: observers that care about individual
// handshake legs should watch the transport, not the facade.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateWaking
	StateConnecting
	StateConnected
	StateDisconnecting
	StateError
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateWaking:
		return "waking"
	case StateConnecting:
		return "connecting"
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

// Events is the capability interface the facade delivers session events
// to: transport data for the media/UI layers, facade state transitions,
// keepalive status snapshots, and taxonomic errors.
type Events interface {
	OnData(kind takion.DataKind, payload []byte)
	OnState(state State)
	OnKeepalive(stats keepalive.Stats)
	OnError(kind errs.Kind, message string)
}

// NoopEvents implements Events with no-ops, for callers that only care
// about some events or none.
type NoopEvents struct{}

func (NoopEvents) OnData(takion.DataKind, []byte)  {}
func (NoopEvents) OnState(State)                   {}
func (NoopEvents) OnKeepalive(keepalive.Stats)     {}
func (NoopEvents) OnError(errs.Kind, string)       {}

// Config configures a Facade.
type Config struct {
	// Store is the credential store consulted for the unified credential
	// view. Required.
	Store CredentialSource
	// Discovery is the manager used for readiness probes. Required.
	Discovery DiscoverySource

	// Events receives session events. Optional; nil means NoopEvents.
	Events Events

	// ControlPort and StreamPort override the transport's defaults
	// (9295/9296) when non-zero.
	ControlPort int
	StreamPort  int

	// ClientName is the User-Agent sent on the PS4-path session-init
	// request. Optional.
	ClientName string

	// DialTimeout bounds the TCP connect phase of the PS4-path
	// session-init request; zero takes registration.DefaultDialTimeout.
	DialTimeout time.Duration

	// WakeTimeout and ReadyPollInterval bound the wake-then-poll phase.
	WakeTimeout       time.Duration
	ReadyPollInterval time.Duration

	// Keepalive timing overrides; zero values take the keepalive
	// package's defaults.
	KeepaliveInterval    time.Duration
	KeepaliveTimeout     time.Duration
	KeepaliveMaxFailures int

	// HandshakeTimeout overrides the transport's default when non-zero.
	HandshakeTimeout time.Duration

	LoggerFactory logging.LoggerFactory
}

func (c Config) withDefaults() Config {
	if c.Events == nil {
		c.Events = NoopEvents{}
	}
	if c.ControlPort == 0 {
		c.ControlPort = takion.DefaultControlPort
	}
	if c.StreamPort == 0 {
		c.StreamPort = takion.DefaultStreamPort
	}
	if c.ClientName == "" {
		c.ClientName = "remoteplay-core"
	}
	if c.WakeTimeout <= 0 {
		c.WakeTimeout = DefaultWakeTimeout
	}
	if c.ReadyPollInterval <= 0 {
		c.ReadyPollInterval = DefaultReadyPollInterval
	}
	return c
}
