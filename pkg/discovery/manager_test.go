package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
)

// testNetAddress is a documented, non-routable "TEST-NET-3" address
// (RFC 5737) guaranteed never to answer — used so probe timeouts below are
// deterministic rather than dependent on the local LAN's contents.
const testNetAddress = "203.0.113.1"

func TestManagerProbeOnceTimesOutWithNoResponder(t *testing.T) {
	m := NewManager(ManagerConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := m.ProbeOnce(ctx, testNetAddress)
	if err == nil {
		t.Fatalf("ProbeOnce returned no error, want a timeout")
	}
	if !errs.Is(err, errs.KindTimeout) && err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want KindTimeout or context.DeadlineExceeded", err)
	}
}

func TestManagerScanWithNoResponsesReturnsEmptyResults(t *testing.T) {
	m := NewManager(ManagerConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	results, err := m.Scan(ctx, ScanOptions{Duration: 150 * time.Millisecond, Interval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %v, want empty", results)
	}
}

func TestManagerScanRejectsConcurrentScan(t *testing.T) {
	m := NewManager(ManagerConfig{})
	ctx := context.Background()

	started := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		close(started)
		_, _ = m.Scan(ctx, ScanOptions{Duration: 300 * time.Millisecond, Interval: 100 * time.Millisecond})
		close(finished)
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	if _, err := m.Scan(ctx, ScanOptions{Duration: 10 * time.Millisecond}); err != ErrAlreadyScanning {
		t.Fatalf("err = %v, want ErrAlreadyScanning", err)
	}
	<-finished
}

func TestManagerResultsAndResetRoundTrip(t *testing.T) {
	m := NewManager(ManagerConfig{})
	if got := m.Results(); len(got) != 0 {
		t.Fatalf("Results() = %v, want empty on a fresh Manager", got)
	}
	m.Reset()
	if got := m.Results(); len(got) != 0 {
		t.Fatalf("Results() after Reset = %v, want empty", got)
	}
}
