// Package wake sends the Wake-On-LAN-style control datagram that
// transitions a standby console to ready.
package wake

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/mauricio-gg/remoteplay-core/pkg/codec"
)

// Port is a UDP destination port a wake datagram may be sent to — the same
// pair discovery probes use.
type Port int

const (
	PortPS5 Port = 9302
	PortPS4 Port = 987
)

// Result classifies the outcome of a wake send.
type Result int

const (
	ResultSuccess Result = iota
	ResultInvalidCredential
	ResultTimeout
	ResultNetworkError
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultInvalidCredential:
		return "invalid-credential"
	case ResultTimeout:
		return "timeout"
	case ResultNetworkError:
		return "network-error"
	default:
		return "unknown"
	}
}

// datagramTemplate is the wake packet's line-terminated text body, missing only the user-credential value.
const datagramTemplate = "WAKEUP * HTTP/1.1\nclient-type:vr\nauth-type:R\nmodel:w\napp-type:r\nuser-credential:%s\ndevice-discovery-protocol-version:00030010\n"

// BuildDatagram composes the wake datagram for hex8, without the trailing
// NUL a sender must append to the wire.
func BuildDatagram(hex8 string) ([]byte, error) {
	dec, err := codec.Hex8ToWakeCredentialDec(hex8)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(datagramTemplate, dec)), nil
}

// BuildDatagramWithNUL returns BuildDatagram's result with the trailing NUL
// PS5 firmware expects in the sent byte count.
func BuildDatagramWithNUL(hex8 string) ([]byte, error) {
	body, err := BuildDatagram(hex8)
	if err != nil {
		return nil, err
	}
	return append(body, 0), nil
}

// Send transmits the wake datagram for hex8 to address:port on a freshly
// created UDP socket. It does not wait for a reply — confirming the console
// woke is the job of a subsequent discovery scan.
func Send(ctx context.Context, address string, port Port, hex8 string) (Result, error) {
	datagram, err := BuildDatagramWithNUL(hex8)
	if err != nil {
		return ResultInvalidCredential, err
	}

	conn, err := net.Dial("udp4", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		return ResultNetworkError, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return ResultNetworkError, err
		}
	}

	if _, err := conn.Write(datagram); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return ResultTimeout, err
		}
		return ResultNetworkError, err
	}

	return ResultSuccess, nil
}
