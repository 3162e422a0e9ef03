// Package registration drives a console's PIN-exchange pairing protocol
// and produces the ConsoleRecord the credential store then upserts.
package registration

import (
	"context"
	"sync"

	"github.com/pion/logging"

	"github.com/mauricio-gg/remoteplay-core/pkg/codec"
	"github.com/mauricio-gg/remoteplay-core/pkg/credential"
	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
)

// State is a registration attempt's position in its state machine.
type State int

const (
	StateIdle State = iota
	StateAwaitingChallenge
	StateAwaitingConfirmation
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingChallenge:
		return "awaiting-challenge"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Transport is the capability a registration Session needs from the
// connection layer: running the vendor's PIN-exchange protocol for one
// console and returning the key material it hands back. This core does not
// specify that wire format — it delegates it entirely to
// whatever drives the Takion control socket during pairing.
type Transport interface {
	Exchange(ctx context.Context, address, pin string, psnAccountLE8 [8]byte) (registKey16 [16]byte, morning16 [16]byte, err error)
}

// CompletionCallback receives the finished ConsoleRecord on success, or a
// taxonomic error on failure.
type CompletionCallback func(record *credential.Record, err error)

// Session runs one registration attempt against one console. A Session is
// used once; call Register exactly once per instance.
type Session struct {
	mu        sync.Mutex
	state     State
	transport Transport
	log       logging.LeveledLogger
}

// NewSession constructs a Session bound to transport. A nil LoggerFactory
// disables logging.
func NewSession(transport Transport, factory logging.LoggerFactory) *Session {
	if factory == nil {
		df := logging.NewDefaultLoggerFactory()
		df.DefaultLogLevel = logging.LogLevelDisabled
		factory = df
	}
	return &Session{
		transport: transport,
		log:       factory.NewLogger("registration"),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// Register validates its inputs synchronously and, if they pass, runs
// the PIN exchange on a dedicated goroutine (one worker per registration
// attempt), invoking onComplete exactly once when it finishes.
func (s *Session) Register(ctx context.Context, address, pin string, psnAccountLE8 [8]byte, displayName string, onComplete CompletionCallback) {
	if address == "" {
		onComplete(nil, errs.New(errs.KindInvalidParameter, "registration: address is empty"))
		return
	}
	if !codec.IsEightDigitPIN(pin) {
		onComplete(nil, errs.New(errs.KindInvalidParameter, "registration: PIN must be exactly 8 decimal digits"))
		return
	}
	if psnAccountLE8 == [8]byte{} {
		onComplete(nil, errs.New(errs.KindInvalidParameter, "registration: PSN account id is empty"))
		return
	}

	s.setState(StateAwaitingChallenge)
	go s.run(ctx, address, pin, psnAccountLE8, displayName, onComplete)
}

func (s *Session) run(ctx context.Context, address, pin string, psnAccountLE8 [8]byte, displayName string, onComplete CompletionCallback) {
	s.setState(StateAwaitingConfirmation)

	registKey16, morning16, err := s.transport.Exchange(ctx, address, pin, psnAccountLE8)
	if err != nil {
		s.log.Warnf("registration: PIN exchange with %s failed: %v", address, err)
		s.setState(StateFailed)
		onComplete(nil, err)
		return
	}

	record := &credential.Record{
		Address:       address,
		DisplayName:   displayName,
		RegistKeyHex8: codec.HexEncode(registKey16[:4]),
		RegistKey16:   registKey16,
		Morning16:     morning16,
		PSNAccountLE8: psnAccountLE8,
	}

	if !record.Valid() {
		s.log.Warnf("registration: %s returned structurally invalid credentials", address)
		s.setState(StateFailed)
		onComplete(nil, errs.New(errs.KindInvalidCredentials, "registration: console returned structurally invalid credentials"))
		return
	}

	s.setState(StateComplete)
	onComplete(record, nil)
}
