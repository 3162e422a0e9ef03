package takion

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
)

// PS5VersionThreshold is the console_version at and above which the
// handshake is skipped entirely.
const PS5VersionThreshold = 12

// Default control and stream ports.
const (
	DefaultControlPort = 9295
	DefaultStreamPort  = 9296
)

// Default handshake timing.
const (
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultHandshakeRetries = 3
)

// Config configures one Association.
type Config struct {
	Address        string
	ControlPort    int // default DefaultControlPort
	StreamPort     int // default DefaultStreamPort
	ConsoleVersion int // >= PS5VersionThreshold short-circuits the handshake

	Callbacks Callbacks // required; use NoopCallbacks{} to ignore events

	HandshakeTimeout time.Duration // default DefaultHandshakeTimeout
	HandshakeRetries int           // default DefaultHandshakeRetries

	LoggerFactory logging.LoggerFactory
}

func (c Config) withDefaults() Config {
	if c.ControlPort == 0 {
		c.ControlPort = DefaultControlPort
	}
	if c.StreamPort == 0 {
		c.StreamPort = DefaultStreamPort
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.HandshakeRetries <= 0 {
		c.HandshakeRetries = DefaultHandshakeRetries
	}
	if c.Callbacks == nil {
		c.Callbacks = NoopCallbacks{}
	}
	return c
}

// Association is one live (or being-established) Takion transport
// instance.
type Association struct {
	cfg Config
	log logging.LeveledLogger

	state atomic.Int32 // State; external observers read it atomically

	mu         sync.Mutex
	tagLocal   uint32
	tagRemote  uint32
	seqLocal   uint16
	control    *net.UDPConn
	stream     *net.UDPConn
	stats      Stats
	connecting bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs an Association. Connect must be called before any send.
func New(cfg Config) *Association {
	cfg = cfg.withDefaults()
	factory := cfg.LoggerFactory
	if factory == nil {
		df := logging.NewDefaultLoggerFactory()
		df.DefaultLogLevel = logging.LogLevelDisabled
		factory = df
	}
	return &Association{
		cfg:      cfg,
		log:      factory.NewLogger("takion"),
		tagLocal: randomTag(),
		seqLocal: 1,
	}
}

func randomTag() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable on any real
		// platform; fall back to a fixed nonzero value rather than a zero
		// tag, which the wire format treats as "unlearned".
		return 1
	}
	return binary.BigEndian.Uint32(b[:])
}

// State returns the Association's current state via an atomic read, safe
// to call from any goroutine.
func (a *Association) State() State {
	return State(a.state.Load())
}

func (a *Association) setState(s State) {
	a.state.Store(int32(s))
	a.cfg.Callbacks.OnState(s)
}

// TagRemote returns the learned remote tag, or 0 if the handshake has not
// captured one yet.
func (a *Association) TagRemote() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tagRemote
}

// Stats returns a snapshot of the Association's counters.
func (a *Association) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
