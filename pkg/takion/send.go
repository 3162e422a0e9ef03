package takion

import (
	"net"

	"github.com/mauricio-gg/remoteplay-core/pkg/takion/wire"
)

// SendPacket raw-sends already-framed bytes on the stream socket.
func (a *Association) SendPacket(data []byte) error {
	_, stream, err := a.connectedSockets()
	if err != nil {
		return err
	}
	return a.writeAndCount(stream, data)
}

// SendDataChunk wraps payload in a DATA chunk (tag = tag_remote, key_pos =
// 0) and sends it on both sockets, succeeding if either delivers.
func (a *Association) SendDataChunk(payload []byte) error {
	control, stream, err := a.connectedSockets()
	if err != nil {
		return err
	}

	msg := wire.EncodeMessage(wire.Header{
		PacketType: wire.PacketData,
		Tag:        a.TagRemote(),
		ChunkType:  wire.ChunkData,
	}, payload)

	streamErr := a.writeAndCount(stream, msg)
	controlErr := a.writeAndCount(control, msg)
	if streamErr == nil || controlErr == nil {
		return nil
	}
	return streamErr
}

// SendFeedbackState sends a chunk 0x8E feedback-state payload, tagged
// tag_remote with a monotonically increasing key_pos.
func (a *Association) SendFeedbackState(payload []byte) error {
	return a.sendFeedback(wire.ChunkFeedbackState, payload)
}

// SendFeedbackHistory sends a chunk 0x8F feedback-history payload,
// otherwise identical to SendFeedbackState.
func (a *Association) SendFeedbackHistory(payload []byte) error {
	return a.sendFeedback(wire.ChunkFeedbackHistory, payload)
}

func (a *Association) sendFeedback(chunkType wire.ChunkType, payload []byte) error {
	control, _, err := a.connectedSockets()
	if err != nil {
		return err
	}

	a.mu.Lock()
	keyPos := uint32(a.seqLocal)
	a.seqLocal++
	tagRemote := a.tagRemote
	a.mu.Unlock()

	msg := wire.EncodeMessage(wire.Header{
		PacketType: wire.PacketData,
		Tag:        tagRemote,
		KeyPos:     keyPos,
		ChunkType:  chunkType,
	}, payload)

	return a.writeAndCount(control, msg)
}

// SendInput sends an input packet on the stream socket, tagged tag_local
//. Allowed only in the connected state.
func (a *Association) SendInput(data []byte) error {
	_, stream, err := a.connectedSockets()
	if err != nil {
		return err
	}

	msg := wire.EncodeMessage(wire.Header{
		PacketType: wire.PacketData,
		Tag:        a.tagLocal,
		ChunkType:  wire.ChunkData,
	}, data)

	return a.writeAndCount(stream, msg)
}

// connectedSockets returns the control and stream sockets if the
// Association is connected, or ErrNotConnected otherwise.
func (a *Association) connectedSockets() (control, stream *net.UDPConn, err error) {
	if a.State() != StateConnected {
		return nil, nil, ErrNotConnected
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.control, a.stream, nil
}

func (a *Association) writeAndCount(conn *net.UDPConn, data []byte) error {
	n, err := conn.Write(data)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.stats.PacketsSent++
	a.stats.BytesSent += uint64(n)
	a.mu.Unlock()
	return nil
}
