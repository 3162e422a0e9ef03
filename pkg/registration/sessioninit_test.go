package registration

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

func testServerAddrPort(t *testing.T, srv *httptest.Server) (string, int) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing httptest URL: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("splitting host:port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing port: %v", err)
	}
	return host, port
}

func TestSessionInitSucceedsOnPrimaryEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sie/ps5/rp/sess/init" {
			t.Errorf("path = %q, want /sie/ps5/rp/sess/init", r.URL.Path)
		}
		if got := r.Header.Get("RP-Registkey"); got != "8830739c" {
			t.Errorf("RP-Registkey = %q, want 8830739c", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, port := testServerAddrPort(t, srv)
	err := SessionInit(context.Background(), InitRequest{
		Address:       host,
		Port:          port,
		Hex8:          "8830739c",
		PSNAccountLE8: [8]byte{1, 1, 1, 1, 1, 1, 1, 1},
		ClientName:    "remoteplay-core/test",
	})
	if err != nil {
		t.Fatalf("SessionInit returned error: %v", err)
	}
}

func TestSessionInitRetriesAlternateEncodingOn403(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		key := r.Header.Get("RP-Registkey")
		if attempts == 1 {
			if key != "8830739c" {
				t.Errorf("first attempt RP-Registkey = %q, want 8830739c", key)
			}
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if key == "8830739c" {
			t.Errorf("second attempt reused the primary encoding, want the alternate base64 one")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, port := testServerAddrPort(t, srv)
	err := SessionInit(context.Background(), InitRequest{
		Address:       host,
		Port:          port,
		Hex8:          "8830739c",
		PSNAccountLE8: [8]byte{1, 1, 1, 1, 1, 1, 1, 1},
		ClientName:    "remoteplay-core/test",
	})
	if err != nil {
		t.Fatalf("SessionInit returned error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestSessionInitFailsOnNon200NonRetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	host, port := testServerAddrPort(t, srv)
	err := SessionInit(context.Background(), InitRequest{
		Address:       host,
		Port:          port,
		Hex8:          "8830739c",
		PSNAccountLE8: [8]byte{1, 1, 1, 1, 1, 1, 1, 1},
		ClientName:    "remoteplay-core/test",
	})
	if err == nil {
		t.Fatalf("SessionInit returned no error for a 500 response")
	}
}

func TestSessionInitRejectsInvalidHex8(t *testing.T) {
	err := SessionInit(context.Background(), InitRequest{
		Address:       "127.0.0.1",
		Port:          9295,
		Hex8:          "not-hex!",
		PSNAccountLE8: [8]byte{1, 1, 1, 1, 1, 1, 1, 1},
		ClientName:    "remoteplay-core/test",
	})
	if err == nil {
		t.Fatalf("SessionInit returned no error for an invalid hex8")
	}
}

func TestSessionInitDialTimeoutBoundsConnectPhase(t *testing.T) {
	// A non-routable address: the connect phase must give up after the
	// configured dial timeout rather than hanging for the OS default.
	start := time.Now()
	err := SessionInit(context.Background(), InitRequest{
		Address:       "10.255.255.1",
		Port:          9295,
		Hex8:          "8830739c",
		PSNAccountLE8: [8]byte{1, 1, 1, 1, 1, 1, 1, 1},
		ClientName:    "remoteplay-core/test",
		DialTimeout:   100 * time.Millisecond,
	})
	if err == nil {
		t.Fatalf("SessionInit returned no error for an unreachable address")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("SessionInit took %s, want the dial timeout to bound it", elapsed)
	}
}
