package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/mauricio-gg/remoteplay-core/pkg/credential"
	"github.com/mauricio-gg/remoteplay-core/pkg/discovery"
	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
	"github.com/mauricio-gg/remoteplay-core/pkg/keepalive"
	"github.com/mauricio-gg/remoteplay-core/pkg/registration"
	"github.com/mauricio-gg/remoteplay-core/pkg/takion"
	"github.com/mauricio-gg/remoteplay-core/pkg/wake"
)

// CredentialSource is the slice of the credential store the facade needs:
// the unified accessor that wake, session init, and the transport must all
// agree on. Satisfied by *credential.Store.
type CredentialSource interface {
	GetUnified(address string) (credential.Unified, error)
	Find(address string) *credential.Record
}

// DiscoverySource is the slice of the discovery manager the facade needs:
// a cached power-state lookup plus a targeted liveness probe. Satisfied by
// *discovery.Manager.
type DiscoverySource interface {
	ByAddress(address string) *discovery.Console
	ProbeOnce(ctx context.Context, address string) (*discovery.Console, error)
}

// Facade owns at most one live session at a time: a Takion association
// plus the keepalive riding on its control port.
type Facade struct {
	cfg Config
	log logging.LeveledLogger

	mu     sync.Mutex
	state  State
	assoc  *takion.Association
	keep   *keepalive.Keepalive
	active bool
}

// New constructs a Facade. Start must be called to establish a session.
func New(cfg Config) (*Facade, error) {
	if cfg.Store == nil {
		return nil, ErrNilStore
	}
	if cfg.Discovery == nil {
		return nil, ErrNilDiscovery
	}
	cfg = cfg.withDefaults()
	factory := cfg.LoggerFactory
	if factory == nil {
		df := logging.NewDefaultLoggerFactory()
		df.DefaultLogLevel = logging.LogLevelDisabled
		factory = df
	}
	return &Facade{
		cfg: cfg,
		log: factory.NewLogger("session"),
	}, nil
}

// State returns the facade's current lifecycle state.
func (f *Facade) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Facade) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
	f.cfg.Events.OnState(s)
}

// Start establishes a session with the console at address: look up credentials, wake the console if discovery shows standby,
// run the PS4-path session-init where it applies, drive the Takion
// handshake, and finally attach the keepalive to the same control port.
// consoleVersion selects the PS4 or PS5 path the same way the transport
// does.
func (f *Facade) Start(ctx context.Context, address string, consoleVersion int) error {
	f.mu.Lock()
	if f.active {
		f.mu.Unlock()
		return ErrAlreadyActive
	}
	f.active = true
	f.mu.Unlock()

	// One correlation ID per attempt, threaded through every log line the
	// attempt produces so a support bundle can be grepped for one attempt.
	attempt := uuid.New().String()

	f.setState(StateStarting)
	f.log.Infof("session %s: starting against %s (version %d)", attempt, address, consoleVersion)

	unified, err := f.cfg.Store.GetUnified(address)
	if err != nil {
		f.failStart(attempt, err)
		return err
	}

	if err := f.ensureReady(ctx, attempt, address, consoleVersion, unified); err != nil {
		f.failStart(attempt, err)
		return err
	}

	isPS5 := consoleVersion >= takion.PS5VersionThreshold
	if !isPS5 {
		port := f.requestPort(address)
		f.log.Infof("session %s: session-init against %s:%d", attempt, address, port)
		if err := f.sessionInit(ctx, address, port, unified); err != nil {
			f.failStart(attempt, err)
			return err
		}
	}

	f.setState(StateConnecting)

	assoc := takion.New(takion.Config{
		Address:          address,
		ControlPort:      f.cfg.ControlPort,
		StreamPort:       f.cfg.StreamPort,
		ConsoleVersion:   consoleVersion,
		Callbacks:        transportEvents{f: f, attempt: attempt},
		HandshakeTimeout: f.cfg.HandshakeTimeout,
		LoggerFactory:    f.cfg.LoggerFactory,
	})
	if err := assoc.Connect(ctx); err != nil {
		f.log.Warnf("session %s: transport connect failed: %v", attempt, err)
		f.failStart(attempt, err)
		return err
	}

	keep := keepalive.New(keepalive.Config{
		Address:       address,
		ControlPort:   f.cfg.ControlPort,
		Interval:      f.cfg.KeepaliveInterval,
		Timeout:       f.cfg.KeepaliveTimeout,
		MaxFailures:   f.cfg.KeepaliveMaxFailures,
		Callback:      keepaliveEvents{f: f, attempt: attempt},
		LoggerFactory: f.cfg.LoggerFactory,
	})
	if err := keep.Start(ctx); err != nil {
		f.log.Warnf("session %s: keepalive start failed: %v", attempt, err)
		assoc.Disconnect()
		f.failStart(attempt, err)
		return err
	}

	f.mu.Lock()
	f.assoc = assoc
	f.keep = keep
	f.mu.Unlock()

	f.setState(StateConnected)
	f.log.Infof("session %s: connected to %s", attempt, address)
	return nil
}

func (f *Facade) failStart(attempt string, err error) {
	f.log.Warnf("session %s: start failed: %v", attempt, err)
	f.mu.Lock()
	f.active = false
	f.mu.Unlock()
	f.setState(StateIdle)
	kind, _ := errs.As(err)
	f.cfg.Events.OnError(kind, err.Error())
}

// ensureReady wakes the console and polls for readiness when discovery
// shows standby. A console whose power state
// cannot be determined is attempted as-is: the transport's own handshake
// timeout is the backstop, and guessing "standby" would send a spurious
// wake credential.
func (f *Facade) ensureReady(ctx context.Context, attempt, address string, consoleVersion int, unified credential.Unified) error {
	c := f.cfg.Discovery.ByAddress(address)
	if c == nil {
		probed, err := f.cfg.Discovery.ProbeOnce(ctx, address)
		if err != nil {
			f.log.Infof("session %s: %s did not answer the readiness probe; attempting connect anyway", attempt, address)
			return nil
		}
		c = probed
	}
	if c.IsReady {
		return nil
	}

	f.setState(StateWaking)
	f.log.Infof("session %s: %s is in standby; sending wake", attempt, address)

	port := wake.PortPS4
	if consoleVersion >= takion.PS5VersionThreshold {
		port = wake.PortPS5
	}
	if _, err := wake.Send(ctx, address, port, unified.Hex8); err != nil {
		return err
	}

	return f.awaitReady(ctx, attempt, address)
}

// awaitReady re-probes address until it reports ready or WakeTimeout
// elapses.
func (f *Facade) awaitReady(ctx context.Context, attempt, address string) error {
	deadline := time.Now().Add(f.cfg.WakeTimeout)
	for {
		c, err := f.cfg.Discovery.ProbeOnce(ctx, address)
		if err == nil && c.IsReady {
			f.log.Infof("session %s: %s is ready", attempt, address)
			return nil
		}
		if time.Now().After(deadline) {
			return errs.New(errs.KindTimeout, "session: console did not become ready within the wake timeout")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.cfg.ReadyPollInterval):
		}
	}
}

// requestPort returns the console's advertised host-request-port, falling
// back to the protocol default when discovery has no cached answer.
func (f *Facade) requestPort(address string) int {
	if c := f.cfg.Discovery.ByAddress(address); c != nil && c.RequestPort != 0 {
		return c.RequestPort
	}
	return discovery.DefaultRequestPort
}

func (f *Facade) sessionInit(ctx context.Context, address string, port int, unified credential.Unified) error {
	// The session-init headers need the PSN account ID, which the unified
	// view does not carry; fetch the full record through the same store.
	var account [8]byte
	if r := f.cfg.Store.Find(address); r != nil {
		account = r.PSNAccountLE8
	}
	return registration.SessionInit(ctx, registration.InitRequest{
		Address:       address,
		Port:          port,
		Hex8:          unified.Hex8,
		PSNAccountLE8: account,
		ClientName:    f.cfg.ClientName,
		DialTimeout:   f.cfg.DialTimeout,
	})
}

// Stop tears the session down symmetrically to Start: keepalive stop,
// then transport disconnect (which itself closes the sockets only after
// the receive worker has joined).
func (f *Facade) Stop() {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return
	}
	keep, assoc := f.keep, f.assoc
	f.keep, f.assoc = nil, nil
	f.active = false
	f.mu.Unlock()

	f.setState(StateDisconnecting)
	if keep != nil {
		keep.Stop()
	}
	if assoc != nil {
		assoc.Disconnect()
	}
	f.setState(StateIdle)
}

// SendInput forwards an input packet to the live transport.
func (f *Facade) SendInput(data []byte) error {
	f.mu.Lock()
	assoc := f.assoc
	f.mu.Unlock()
	if assoc == nil {
		return ErrNotActive
	}
	return assoc.SendInput(data)
}

// TransportStats returns the live transport's counters, or false if no
// session is active.
func (f *Facade) TransportStats() (takion.Stats, bool) {
	f.mu.Lock()
	assoc := f.assoc
	f.mu.Unlock()
	if assoc == nil {
		return takion.Stats{}, false
	}
	return assoc.Stats(), true
}

// KeepaliveStats returns the live keepalive's counters, or false if no
// session is active.
func (f *Facade) KeepaliveStats() (keepalive.Stats, bool) {
	f.mu.Lock()
	keep := f.keep
	f.mu.Unlock()
	if keep == nil {
		return keepalive.Stats{}, false
	}
	return keep.Stats(), true
}

// transportEvents bridges the transport's typed events onto the facade's
// Events, tagging log lines with the attempt's correlation ID.
type transportEvents struct {
	f       *Facade
	attempt string
}

func (t transportEvents) OnData(kind takion.DataKind, payload []byte) {
	t.f.cfg.Events.OnData(kind, payload)
}

func (t transportEvents) OnState(s takion.State) {
	t.f.log.Debugf("session %s: transport state %s", t.attempt, s)
	if s == takion.StateError {
		t.f.setState(StateError)
	}
}

func (t transportEvents) OnError(kind errs.Kind, message string) {
	t.f.log.Warnf("session %s: transport error (%s): %s", t.attempt, kind, message)
	t.f.cfg.Events.OnError(kind, message)
}

// keepaliveEvents forwards keepalive status snapshots. A keepalive trip is
// reported, not acted on: it never unilaterally tears down the transport
//.
type keepaliveEvents struct {
	f       *Facade
	attempt string
}

func (k keepaliveEvents) OnStatus(stats keepalive.Stats) {
	if stats.State == keepalive.StateFailed {
		k.f.log.Warnf("session %s: keepalive tripped after %d consecutive failures", k.attempt, stats.ConsecutiveFailures)
	}
	k.f.cfg.Events.OnKeepalive(stats)
}
