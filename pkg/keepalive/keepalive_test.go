package keepalive

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pion/transport/v3/test"
)

func TestHeartbeatPayloadLiteralPrefix(t *testing.T) {
	ts := fakeTimestamp{ms: 1234567890}
	payload := heartbeatPayload(ts)
	if got := string(payload); got != "KEEP:1234567890" {
		t.Fatalf("heartbeatPayload = %q, want %q", got, "KEEP:1234567890")
	}
	if len(payload) > maxHeartbeatSize {
		t.Fatalf("heartbeatPayload length %d exceeds max %d", len(payload), maxHeartbeatSize)
	}
}

func TestIsHeartbeatReply(t *testing.T) {
	if !isHeartbeatReply([]byte("KEEP:42")) {
		t.Fatalf("expected KEEP: prefixed data to be recognized as a reply")
	}
	if isHeartbeatReply([]byte("SRCH * HTTP/1.1")) {
		t.Fatalf("expected unrelated data not to be recognized as a reply")
	}
}

type fakeTimestamp struct{ ms int64 }

func (f fakeTimestamp) UnixMilli() int64 { return f.ms }

// echoPeer listens on a loopback UDP socket and echoes back anything it
// receives, simulating a console that replies to every heartbeat.
type echoPeer struct {
	conn *net.UDPConn
	stop chan struct{}
}

func newEchoPeer(t *testing.T) *echoPeer {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	p := &echoPeer{conn: conn, stop: make(chan struct{})}
	go p.run()
	t.Cleanup(func() {
		close(p.stop)
		conn.Close()
	})
	return p
}

func (p *echoPeer) run() {
	buf := make([]byte, 128)
	for {
		select {
		case <-p.stop:
			return
		default:
		}
		p.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		p.conn.WriteToUDP(buf[:n], addr)
	}
}

func (p *echoPeer) port() int { return p.conn.LocalAddr().(*net.UDPAddr).Port }

type statusRecorder struct {
	mu  sync.Mutex
	got []Stats
}

func TestKeepaliveActiveWithRespondingPeer(t *testing.T) {
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	peer := newEchoPeer(t)

	var rec statusRecorder
	k := New(Config{
		Address:     "127.0.0.1",
		ControlPort: peer.port(),
		Interval:    30 * time.Millisecond,
		Timeout:     100 * time.Millisecond,
		MaxFailures: DefaultMaxFailures,
		Callback:    StatusCallbackFunc(rec.record),
	})

	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer k.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if k.Stats().TotalReplies >= 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	stats := k.Stats()
	if stats.State != StateActive {
		t.Fatalf("State = %v, want active", stats.State)
	}
	if stats.TotalReplies < 2 {
		t.Fatalf("TotalReplies = %d, want >= 2", stats.TotalReplies)
	}
	if stats.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0", stats.ConsecutiveFailures)
	}
	if stats.RTTEstimate <= 0 {
		t.Fatalf("RTTEstimate = %v, want > 0", stats.RTTEstimate)
	}
}

func TestKeepaliveTripsToFailedWithNoResponder(t *testing.T) {
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	// A loopback socket nobody is reading from: every heartbeat times out.
	silent, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer silent.Close()

	var rec statusRecorder
	k := New(Config{
		Address:     "127.0.0.1",
		ControlPort: silent.LocalAddr().(*net.UDPAddr).Port,
		Interval:    10 * time.Millisecond,
		Timeout:     10 * time.Millisecond,
		MaxFailures: 3,
		Callback:    StatusCallbackFunc(rec.record),
	})

	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer k.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if k.State() == StateFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := k.State(); got != StateFailed {
		t.Fatalf("State = %v, want failed", got)
	}

	failedCount := 0
	rec.mu.Lock()
	for _, s := range rec.got {
		if s.State == StateFailed {
			failedCount++
		}
	}
	rec.mu.Unlock()
	if failedCount == 0 {
		t.Fatalf("status callback was never invoked with failed state")
	}
}

func TestStartTwiceReturnsErrAlreadyActive(t *testing.T) {
	peer := newEchoPeer(t)
	k := New(Config{Address: "127.0.0.1", ControlPort: peer.port()})
	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer k.Stop()
	if err := k.Start(context.Background()); err != ErrAlreadyActive {
		t.Fatalf("second Start = %v, want ErrAlreadyActive", err)
	}
}

func (r *statusRecorder) record(s Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, s)
}
