package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// connection owns one socket. gorilla allows a single concurrent writer, so every outbound frame
// goes through send and writePump.
type connection struct {
	id     string
	ws     *websocket.Conn
	logger *slog.Logger

	send chan []byte
	done chan struct{}
	once sync.Once

	// highest room version delivered per room code
	versionsMutex sync.Mutex
	versions      map[string]uint64
}

func newConnection(id string, ws *websocket.Conn, logger *slog.Logger) *connection {
	return &connection{
		id:       id,
		ws:       ws,
		logger:   logger.With("participant", id),
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		versions: make(map[string]uint64),
	}
}

// enqueue queues a frame. A client that cannot keep up is disconnected rather than stalling the room.
func (that *connection) enqueue(frame []byte) bool {
	select {
	case <-that.done:
		return false
	default:
	}

	select {
	case that.send <- frame:
		return true
	default:
		that.logger.Warn("send buffer full, closing connection")
		that.close()

		return false
	}
}

// enqueueVersioned queues a room update unless a newer one for the same room was already queued.
func (that *connection) enqueueVersioned(code string, version uint64, frame []byte) bool {
	that.versionsMutex.Lock()
	defer that.versionsMutex.Unlock()

	if version < that.versions[code] {
		return false
	}

	if !that.enqueue(frame) {
		return false
	}

	that.versions[code] = version

	return true
}

func (that *connection) close() {
	that.once.Do(func() {
		close(that.done)
	})
}

func (that *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.ws.Close()
	}()

	for {
		select {
		case frame := <-that.send:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				that.logger.Debug("failed to write message", "error", err)
				that.close()

				return
			}
		case <-ticker.C:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				that.close()

				return
			}
		case <-that.done:
			that.flush()

			_ = that.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))

			return
		}
	}
}

// flush writes whatever is still queued, best effort.
func (that *connection) flush() {
	for {
		select {
		case frame := <-that.send:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}
