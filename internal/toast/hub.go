package toast

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

// Snapshot is the frame pushed to the page after every change.
type Snapshot struct {
	Type   string  `json:"type"`
	Toasts []Toast `json:"toasts"`
}

// Command is a frame sent by the page.
type Command struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func NewSnapshot(ts []Toast) Snapshot {
	if ts == nil {
		ts = []Toast{}
	}
	return Snapshot{Type: "toasts", Toasts: ts}
}

// Hub fans snapshots out to the websocket connections of one session.
// Writes happen under mu, so each connection has a single writer.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

// Add registers ws; it reports false when the hub is already closed.
func (h *Hub) Add(ws *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[ws] = struct{}{}
	return true
}

func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("marshal broadcast", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.clients {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			h.logger.Debug("drop websocket client", "err", err)
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close sends a close frame to every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended")
	for ws := range h.clients {
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = ws.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}
