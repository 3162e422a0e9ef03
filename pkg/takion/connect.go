package takion

import (
	"context"
	"net"
)

// Connect establishes the Association: dials both sockets, then either
// short-circuits straight to connected (PS5 peers) or
// drives the INIT/INIT_ACK/COOKIE/COOKIE_ACK handshake with up to
// HandshakeRetries attempts, recreating both sockets and draining the
// control socket between attempts. On success the receive loop is started.
func (a *Association) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.connecting {
		a.mu.Unlock()
		return ErrAlreadyConnecting
	}
	a.connecting = true
	a.mu.Unlock()

	a.setState(StateConnecting)

	isPS5 := a.cfg.ConsoleVersion >= PS5VersionThreshold

	var lastErr error
	for attempt := 0; attempt < a.cfg.HandshakeRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Each attempt (after the first) re-enters connecting, recreates
		// both sockets, and drains stale data rather than resuming from
		// whatever leg the previous attempt failed at.
		a.setState(StateConnecting)

		control, stream, err := connectSockets(a.cfg.Address, a.cfg.ControlPort, a.cfg.StreamPort)
		if err != nil {
			lastErr = err
			a.log.Warnf("takion: socket setup attempt %d failed: %v", attempt+1, err)
			continue
		}

		if isPS5 {
			a.adoptSockets(control, stream, 0)
			a.setState(StateConnected)
			a.startReceiveLoop()
			return nil
		}

		tagRemote, err := a.runPS4Handshake(control)
		if err != nil {
			lastErr = err
			a.log.Warnf("takion: handshake attempt %d failed: %v", attempt+1, err)
			control.Close()
			stream.Close()
			continue
		}

		a.adoptSockets(control, stream, tagRemote)
		a.setState(StateConnected)
		a.startReceiveLoop()
		return nil
	}

	a.setState(StateError)
	a.cfg.Callbacks.OnError(errorKindFor(lastErr), "takion: handshake failed after all attempts")
	if lastErr != nil {
		return lastErr
	}
	return ErrHandshakeFailed
}

// runPS4Handshake drives the four-message exchange on control, setting the
// Association's state after each leg.
func (a *Association) runPS4Handshake(control *net.UDPConn) (uint32, error) {
	if err := sendInit(control, a.tagLocal, a.cfg.HandshakeTimeout); err != nil {
		return 0, err
	}
	a.setState(StateInitSent)

	ack, err := awaitInitAck(control, a.cfg.HandshakeTimeout)
	if err != nil {
		return 0, err
	}
	a.setState(StateInitAckReceived)

	if err := sendCookie(control, ack.TagRemote, ack.Cookie, a.cfg.HandshakeTimeout); err != nil {
		return 0, err
	}
	a.setState(StateCookieSent)

	if err := awaitCookieAck(control, a.cfg.HandshakeTimeout); err != nil {
		return 0, err
	}

	return ack.TagRemote, nil
}

// adoptSockets installs the established sockets and learned remote tag
// under the Association's lock.
func (a *Association) adoptSockets(control, stream *net.UDPConn, tagRemote uint32) {
	a.mu.Lock()
	a.control = control
	a.stream = stream
	a.tagRemote = tagRemote
	a.mu.Unlock()
}
