package takion

import (
	"errors"
	"net"

	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
)

var (
	// ErrPortsEqual is a fatal configuration error: control and stream
	// ports must differ.
	ErrPortsEqual = errors.New("takion: control_port and stream_port must differ")
	// ErrNotConnected is returned by sends that require the connected
	// state.
	ErrNotConnected = errors.New("takion: association is not connected")
	// ErrAlreadyConnecting is returned by Connect when called more than
	// once on the same Association.
	ErrAlreadyConnecting = errors.New("takion: Connect has already been called")
	// ErrHandshakeFailed is returned when every handshake attempt is
	// exhausted without reaching connected.
	ErrHandshakeFailed = errors.New("takion: handshake failed after all attempts")
	// ErrZeroRemoteTag is a protocol violation: INIT_ACK carried a zero
	// tag_remote.
	ErrZeroRemoteTag = errors.New("takion: INIT_ACK carried tag_remote == 0")
	// ErrUnexpectedChunk is returned when a received chunk does not match
	// what the current handshake state expects.
	ErrUnexpectedChunk = errors.New("takion: received chunk does not match expected handshake state")
)

// errorKindFor classifies an internal error into the taxonomic Kind
// surfaced to callers.
func errorKindFor(err error) errs.Kind {
	if err == nil {
		return errs.KindUnknown
	}
	switch err {
	case ErrZeroRemoteTag, ErrUnexpectedChunk:
		return errs.KindProtocol
	case ErrPortsEqual:
		return errs.KindInvalidParameter
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.KindTimeout
	}
	return errs.KindNetwork
}
