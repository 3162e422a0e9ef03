package registration

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mauricio-gg/remoteplay-core/pkg/codec"
	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
)

// DefaultDialTimeout bounds the TCP connect phase of a session-init
// request on its own, independent of the request ctx's overall deadline —
// a stalled connect must not consume the whole request budget.
const DefaultDialTimeout = 5 * time.Second

// InitRequest carries the parameters for one session-init request.
type InitRequest struct {
	Address       string
	Port          int
	Hex8          string
	PSNAccountLE8 [8]byte
	ClientName    string // sent as User-Agent

	// DialTimeout bounds the TCP connect phase. Zero means
	// DefaultDialTimeout.
	DialTimeout time.Duration
}

// SessionInit issues the PS4-path session-init request.
// The PS5 path never calls this — its equivalent exchange runs over the
// Takion DATA channel instead.
//
// If the primary RP-Registkey encoding (hex8 verbatim) is rejected with
// HTTP 403, the request is retried once with the alternate encoding
// (base64 of the raw 4-byte decode of hex8).
func SessionInit(ctx context.Context, req InitRequest) error {
	raw4, err := codec.HexDecode(req.Hex8)
	if err != nil || len(raw4) != 4 {
		return errs.New(errs.KindInvalidParameter, "registration: hex8 is not a valid 8-character hex string")
	}
	npAccountID := codec.B64Encode(req.PSNAccountLE8[:])
	altRegistKey := codec.B64Encode(raw4)

	client := newInitClient(req.DialTimeout)
	defer client.CloseIdleConnections()

	resp, err := sendSessionInit(ctx, client, req, req.Hex8, npAccountID)
	if err != nil {
		return errs.Wrap(errs.KindNetwork, err)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode != http.StatusForbidden {
		return errs.New(errs.KindProtocol, fmt.Sprintf("registration: session-init rejected with status %d", resp.StatusCode))
	}

	resp, err = sendSessionInit(ctx, client, req, altRegistKey, npAccountID)
	if err != nil {
		return errs.Wrap(errs.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.New(errs.KindProtocol, fmt.Sprintf("registration: session-init rejected with status %d after retrying alternate RP-Registkey encoding", resp.StatusCode))
	}
	return nil
}

// newInitClient builds the single-use HTTP client for a session-init
// exchange: the connect phase gets its own net.Dialer timeout, and
// keep-alives are disabled since the request carries Connection: close.
func newInitClient(dialTimeout time.Duration) *http.Client {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:       (&net.Dialer{Timeout: dialTimeout}).DialContext,
			DisableKeepAlives: true,
		},
	}
}

func sendSessionInit(ctx context.Context, client *http.Client, r InitRequest, registKeyHeader, npAccountID string) (*http.Response, error) {
	url := fmt.Sprintf("http://%s:%d/sie/ps5/rp/sess/init", r.Address, r.Port)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	req.Host = "ps5.local"
	req.Close = true
	req.Header.Set("User-Agent", r.ClientName)
	req.Header.Set("RP-Registkey", registKeyHeader)
	req.Header.Set("Np-AccountId", npAccountID)
	req.Header.Set("RP-Version", "1.0")
	req.Header.Set("Client-Type", "vitaki")
	req.Header.Set("Content-Length", "0")

	return client.Do(req)
}
