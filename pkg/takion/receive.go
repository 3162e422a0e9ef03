package takion

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/mauricio-gg/remoteplay-core/pkg/takion/wire"
)

// socketPollInterval bounds how long a reader goroutine blocks in Read
// before it re-checks for shutdown — this module's rendering of "select
// with a ~1s timeout" using per-socket goroutines
// instead of a raw fd-level select, since Go's net package exposes
// readiness as blocking reads with deadlines, not select(2) directly.
const socketPollInterval = 1 * time.Second

var videoNALMarker = []byte{0x00, 0x00, 0x00, 0x01}

// startReceiveLoop spawns the two per-socket readers and the dispatch
// goroutine that prefers control over stream on a tie.
func (a *Association) startReceiveLoop() {
	a.mu.Lock()
	control, stream := a.control, a.stream
	a.mu.Unlock()

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})

	controlCh := make(chan []byte, 16)
	streamCh := make(chan []byte, 16)

	var readers sync.WaitGroup
	readers.Add(2)
	go a.readSocket(control, controlCh, &readers)
	go a.readSocket(stream, streamCh, &readers)

	go a.dispatchLoop(controlCh, streamCh, &readers)
}

// readSocket relays datagrams from conn onto ch until stopCh fires or the
// socket errors for a reason other than a read timeout.
func (a *Association) readSocket(conn *net.UDPConn, ch chan<- []byte, wg *sync.WaitGroup) {
	defer wg.Done()

	buf := make([]byte, 1500) // MTU ceiling for a single message
	for {
		select {
		case <-a.stopCh:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(socketPollInterval)); err != nil {
			return
		}
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case ch <- data:
		case <-a.stopCh:
			return
		}
	}
}

// dispatchLoop is the single background worker that serializes delivery to
// the data callback. It checks the control channel
// first, unconditionally, before a combined select — the standard Go idiom
// for giving one channel priority without relying on select's
// pseudo-random tie-breaking.
func (a *Association) dispatchLoop(controlCh, streamCh <-chan []byte, readers *sync.WaitGroup) {
	defer close(a.doneCh)
	defer readers.Wait()

	for {
		select {
		case data := <-controlCh:
			a.handleDatagram(data)
			continue
		default:
		}

		select {
		case <-a.stopCh:
			return
		case data := <-controlCh:
			a.handleDatagram(data)
		case data := <-streamCh:
			a.handleDatagram(data)
		}
	}
}

func (a *Association) handleDatagram(data []byte) {
	a.mu.Lock()
	a.stats.PacketsReceived++
	a.stats.BytesReceived += uint64(len(data))
	a.stats.LastPacketAtUnixMilli = time.Now().UnixMilli()
	a.mu.Unlock()

	msg, err := wire.DecodeMessage(data)
	if err != nil {
		a.log.Debugf("takion: dropping malformed datagram: %v", err)
		return
	}

	switch msg.Header.ChunkType {
	case wire.ChunkData:
		kind := DataKindProtobuf
		if len(msg.Payload) >= len(videoNALMarker) && bytes.Equal(msg.Payload[:len(videoNALMarker)], videoNALMarker) {
			kind = DataKindVideo
		}
		a.cfg.Callbacks.OnData(kind, msg.Payload)
	case wire.ChunkFeedbackState, wire.ChunkFeedbackHistory:
		a.cfg.Callbacks.OnData(DataKindProtobuf, msg.Payload)
	default:
		a.log.Debugf("takion: dropping unexpected chunk type 0x%02X while connected", byte(msg.Header.ChunkType))
	}
}
