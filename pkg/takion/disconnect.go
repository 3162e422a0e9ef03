package takion

import (
	"time"

	"github.com/mauricio-gg/remoteplay-core/pkg/takion/wire"
)

// joinTimeout bounds how long Disconnect waits for the receive worker to
// exit before force-abandoning it.
const joinTimeout = 5 * time.Second

// Disconnect sends a single disconnect-flagged DATA chunk on the control
// socket, stops the receive worker, and closes both sockets — strictly
// after the worker has stopped, never before, to avoid a race that wedges
// the worker mid-Read.
func (a *Association) Disconnect() error {
	a.setState(StateDisconnecting)

	a.mu.Lock()
	control := a.control
	a.mu.Unlock()

	if control != nil {
		msg := wire.EncodeMessage(wire.Header{
			PacketType: wire.PacketControl,
			Tag:        a.TagRemote(),
			ChunkType:  wire.ChunkData,
			ChunkFlags: wire.DisconnectFlag,
		}, nil)
		if _, err := control.Write(msg); err != nil {
			a.log.Warnf("takion: failed to send disconnect chunk: %v", err)
		}
	}

	if a.stopCh != nil {
		close(a.stopCh)
		select {
		case <-a.doneCh:
		case <-time.After(joinTimeout):
			a.log.Warnf("takion: receive worker did not exit within %s; closing sockets anyway", joinTimeout)
		}
	}

	a.mu.Lock()
	if a.control != nil {
		a.control.Close()
	}
	if a.stream != nil {
		a.stream.Close()
	}
	a.mu.Unlock()

	a.setState(StateIdle)
	return nil
}
