package live

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/architect/interactive-content/internal/collector/models"
	"github.com/architect/interactive-content/pkg/logger"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans accepted progress snapshots out to dashboard subscribers.
// Subscribers are read-only; a slow or dead connection is dropped rather
// than allowed to stall the broadcast path.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*websocket.Conn]chan []byte
}

// NewHub creates a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboards are served cross-origin
			},
		},
		conns: make(map[*websocket.Conn]chan []byte),
	}
}

// Subscribe upgrades the request to a WebSocket and streams broadcasts
// until the client disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	send := make(chan []byte, 64)
	h.mu.Lock()
	h.conns[conn] = send
	h.mu.Unlock()

	go h.writeLoop(conn, send)
	go h.readLoop(conn)
	return nil
}

// BroadcastProgress ships one accepted progress row to all subscribers.
func (h *Hub) BroadcastProgress(record *models.ContentProgress) {
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, send := range h.conns {
		select {
		case send <- raw:
		default:
			// Subscriber too slow; it will be reaped by its write loop.
			logger.Warn("dropping live update for slow subscriber",
				zap.String("remote", conn.RemoteAddr().String()))
		}
	}
}

// SubscriberCount returns the number of connected dashboards.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) writeLoop(conn *websocket.Conn, send chan []byte) {
	defer h.remove(conn)
	for msg := range send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readLoop drains (and discards) client frames so pings and close frames
// are processed.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		close(send)
	}
	h.mu.Unlock()
	conn.Close()
}
