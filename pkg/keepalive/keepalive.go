// Package keepalive implements the periodic control-socket heartbeat that
// keeps a Takion transport's peer session alive: send, await-reply-or-time
// out, count consecutive failures, trip to failed.
package keepalive

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
)

// Default timing.
const (
	DefaultInterval    = 1 * time.Second
	DefaultTimeout     = 2 * time.Second
	DefaultMaxFailures = 5
)

// State is a Keepalive's position in its lifecycle.
type State int

const (
	StateInactive State = iota
	StateActive
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "inactive"
	}
}

// Stats is the snapshot delivered to StatusCallback on every transition
//.
type Stats struct {
	State               State
	ConsecutiveFailures int
	TotalSent           uint64
	TotalReplies        uint64
	RTTEstimate         time.Duration
}

// StatusCallback is the capability interface a Keepalive reports transitions
// to, in place of a raw function pointer with user data.
type StatusCallback interface {
	OnStatus(stats Stats)
}

// StatusCallbackFunc adapts a plain func to StatusCallback.
type StatusCallbackFunc func(Stats)

func (f StatusCallbackFunc) OnStatus(stats Stats) { f(stats) }

// Config configures one Keepalive.
type Config struct {
	Address     string
	ControlPort int

	Interval    time.Duration // default DefaultInterval
	Timeout     time.Duration // default DefaultTimeout
	MaxFailures int           // default DefaultMaxFailures

	Callback StatusCallback // required; use StatusCallbackFunc(func(Stats){}) to ignore

	LoggerFactory logging.LoggerFactory
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	if c.Callback == nil {
		c.Callback = StatusCallbackFunc(func(Stats) {})
	}
	return c
}

// emaAlpha is the weight given to each new RTT sample in the 4-sample
// exponential moving average; 2/(N+1) with N=4 is the standard EMA
// smoothing constant for an N-sample window.
const emaAlpha = 2.0 / (4.0 + 1.0)

// Keepalive owns one heartbeat loop against a single peer control port.
type Keepalive struct {
	cfg Config
	log logging.LeveledLogger

	mu    sync.Mutex
	state State
	stats Stats

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Keepalive. Start must be called to begin sending.
func New(cfg Config) *Keepalive {
	cfg = cfg.withDefaults()
	factory := cfg.LoggerFactory
	if factory == nil {
		df := logging.NewDefaultLoggerFactory()
		df.DefaultLogLevel = logging.LogLevelDisabled
		factory = df
	}
	return &Keepalive{
		cfg: cfg,
		log: factory.NewLogger("keepalive"),
	}
}

// State returns the current lifecycle state.
func (k *Keepalive) State() State {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// Stats returns a snapshot of the current counters.
func (k *Keepalive) Stats() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.stats
}

// Start dials a fresh UDP socket connected to the peer control port and
// begins the heartbeat loop. Returns an error if the socket cannot be
// created, or ErrAlreadyActive if Start was already called.
func (k *Keepalive) Start(ctx context.Context) error {
	k.mu.Lock()
	if k.state != StateInactive {
		k.mu.Unlock()
		return ErrAlreadyActive
	}
	k.mu.Unlock()

	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{
		IP:   net.ParseIP(k.cfg.Address),
		Port: k.cfg.ControlPort,
	})
	if err != nil {
		return errs.Wrap(errs.KindNetwork, fmt.Errorf("keepalive: dial %s:%d: %w", k.cfg.Address, k.cfg.ControlPort, err))
	}

	k.mu.Lock()
	k.state = StateActive
	k.stats = Stats{State: StateActive}
	k.stopCh = make(chan struct{})
	k.doneCh = make(chan struct{})
	k.mu.Unlock()

	k.cfg.Callback.OnStatus(k.Stats())

	go k.run(conn)
	return nil
}

// Stop ends the heartbeat loop and closes its socket, waiting for the
// worker to exit.
func (k *Keepalive) Stop() {
	k.mu.Lock()
	stopCh := k.stopCh
	doneCh := k.doneCh
	k.mu.Unlock()

	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-doneCh

	k.mu.Lock()
	k.state = StateInactive
	k.stats.State = StateInactive
	stats := k.stats
	k.mu.Unlock()

	k.cfg.Callback.OnStatus(stats)
}

func (k *Keepalive) run(conn *net.UDPConn) {
	defer close(k.doneCh)
	defer conn.Close()

	ticker := time.NewTicker(k.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-k.stopCh:
			return
		case <-ticker.C:
			k.beat(conn)
		}
	}
}

// beat sends one heartbeat and waits up to cfg.Timeout for a matching
// reply, updating the consecutive-failure counter and RTT estimate, and
// tripping to failed once MaxFailures is reached.
func (k *Keepalive) beat(conn *net.UDPConn) {
	sentAt := time.Now()
	payload := heartbeatPayload(sentAt)

	if err := conn.SetWriteDeadline(sentAt.Add(k.cfg.Timeout)); err != nil {
		k.recordFailure()
		return
	}
	if _, err := conn.Write(payload); err != nil {
		k.log.Warnf("keepalive: send failed: %v", err)
		k.recordFailure()
		return
	}

	k.mu.Lock()
	k.stats.TotalSent++
	k.mu.Unlock()

	if err := conn.SetReadDeadline(sentAt.Add(k.cfg.Timeout)); err != nil {
		k.recordFailure()
		return
	}
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		k.recordFailure()
		return
	}
	if !isHeartbeatReply(buf[:n]) {
		// Not a heartbeat reply (e.g. unrelated control traffic); does not
		// count as a failure, but does not update RTT either.
		return
	}

	rtt := time.Since(sentAt)
	k.recordSuccess(rtt)
}

// recordSuccess updates the reply count and RTT estimate. No state
// transition occurs on a successful heartbeat, so the status callback is
// not invoked here.
func (k *Keepalive) recordSuccess(rtt time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stats.TotalReplies++
	k.stats.ConsecutiveFailures = 0
	if k.stats.RTTEstimate == 0 {
		k.stats.RTTEstimate = rtt
	} else {
		k.stats.RTTEstimate = time.Duration(emaAlpha*float64(rtt) + (1-emaAlpha)*float64(k.stats.RTTEstimate))
	}
}

// recordFailure increments the consecutive-failure count and, only on the
// active->failed transition itself, flips the state and fires the status
// callback.
func (k *Keepalive) recordFailure() {
	k.mu.Lock()
	k.stats.ConsecutiveFailures++
	tripped := k.stats.ConsecutiveFailures >= k.cfg.MaxFailures && k.state != StateFailed
	if tripped {
		k.state = StateFailed
		k.stats.State = k.state
	}
	stats := k.stats
	k.mu.Unlock()

	if tripped {
		k.cfg.Callback.OnStatus(stats)
		k.log.Errorf("keepalive: tripped to failed after %d consecutive failures", stats.ConsecutiveFailures)
	}
}
