package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
)

// DefaultScanDuration and DefaultScanInterval bound a discovery scan when
// ScanOptions omits them.
const (
	DefaultScanDuration = 3 * time.Second
	DefaultScanInterval = 1 * time.Second
)

// ScanOptions configures one bounded-duration scan.
type ScanOptions struct {
	// Duration bounds how long the scan runs before it returns.
	Duration time.Duration
	// Interval is how often the probe is re-broadcast while scanning.
	Interval time.Duration
	// Ports selects which discovery ports to probe. Defaults to both.
	Ports []DiscoveryPort
	// OnConsole, if set, is called once per newly discovered console, as
	// soon as its response is parsed.
	OnConsole func(*Console)
	// OnComplete, if set, is called once with the full result set when the
	// scan ends.
	OnComplete func([]*Console)
}

func (o ScanOptions) withDefaults() ScanOptions {
	if o.Duration <= 0 {
		o.Duration = DefaultScanDuration
	}
	if o.Interval <= 0 {
		o.Interval = DefaultScanInterval
	}
	if len(o.Ports) == 0 {
		o.Ports = []DiscoveryPort{PortPS5, PortPS4}
	}
	return o
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	LoggerFactory logging.LoggerFactory
	ResultsCap    int
}

// Manager runs discovery scans and holds the bounded, concurrent-safe
// results table they populate. One Manager serializes
// its own scans but is otherwise safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	scanning bool
	results  *resultsTable
	log      logging.LeveledLogger
}

// NewManager constructs a Manager. A nil LoggerFactory disables logging
//.
func NewManager(cfg ManagerConfig) *Manager {
	factory := cfg.LoggerFactory
	if factory == nil {
		df := logging.NewDefaultLoggerFactory()
		df.DefaultLogLevel = logging.LogLevelDisabled
		factory = df
	}
	return &Manager{
		results: newResultsTable(cfg.ResultsCap),
		log:     factory.NewLogger("discovery"),
	}
}

// Scan broadcasts discovery probes for opts.Duration, merging every parsed
// response into the results table, and returns the accumulated results.
// Only one scan may run at a time per Manager; a concurrent call returns
// ErrAlreadyScanning.
func (m *Manager) Scan(ctx context.Context, opts ScanOptions) ([]*Console, error) {
	m.mu.Lock()
	if m.scanning {
		m.mu.Unlock()
		return nil, ErrAlreadyScanning
	}
	m.scanning = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.scanning = false
		m.mu.Unlock()
	}()

	opts = opts.withDefaults()

	p, err := newProber(m.log)
	if err != nil {
		return nil, err
	}
	defer p.close()

	deadline := time.Now().Add(opts.Duration)

	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		p.readLoop(deadline, func(address string, data []byte) {
			c, err := ParseResponse(address, data)
			if err != nil {
				m.log.Debugf("discovery: dropping malformed response from %s: %v", address, err)
				return
			}
			c.DiscoveredAt = time.Now().UnixMilli()
			merged, isNew, err := m.results.merge(c)
			if err != nil {
				m.log.Warnf("discovery: %v", err)
				return
			}
			if isNew && opts.OnConsole != nil {
				opts.OnConsole(merged)
			}
		})
	}()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	timer := time.NewTimer(opts.Duration)
	defer timer.Stop()

	p.send(opts.Ports)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-timer.C:
			break loop
		case <-ticker.C:
			p.send(opts.Ports)
		}
	}

	<-recvDone

	results := m.results.all()
	if opts.OnComplete != nil {
		opts.OnComplete(results)
	}
	return results, nil
}

// probeOnceBudget bounds a single targeted liveness probe.
const probeOnceBudget = 2 * time.Second

// ProbeOnce sends a single probe to address on both discovery ports and
// waits up to ~2s for a response, without touching the shared results
// table. It is meant for checking one already-known console's reachability
// rather than discovering new ones.
func (m *Manager) ProbeOnce(ctx context.Context, address string) (*Console, error) {
	p, err := newProber(m.log)
	if err != nil {
		return nil, err
	}
	defer p.close()

	deadline := time.Now().Add(probeOnceBudget)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	resultCh := make(chan *Console, 1)
	go p.readLoop(deadline, func(addr string, data []byte) {
		if addr != address {
			return
		}
		c, err := ParseResponse(addr, data)
		if err != nil {
			return
		}
		c.DiscoveredAt = time.Now().UnixMilli()
		select {
		case resultCh <- c:
		default:
		}
	})

	for _, port := range []DiscoveryPort{PortPS5, PortPS4} {
		if err := p.sendTo(address, port); err != nil {
			m.log.Warnf("discovery: probe send to %s:%d failed: %v", address, port, err)
		}
	}

	select {
	case c := <-resultCh:
		return c, nil
	case <-time.After(time.Until(deadline)):
		return nil, errs.New(errs.KindTimeout, "discovery: no response from "+address)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Results returns a snapshot of every console discovered so far.
func (m *Manager) Results() []*Console {
	return m.results.all()
}

// ByAddress returns the discovered console at address, or nil.
func (m *Manager) ByAddress(address string) *Console {
	return m.results.byAddress(address)
}

// Reset clears the results table.
func (m *Manager) Reset() {
	m.results.clear()
}
