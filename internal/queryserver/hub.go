package queryserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeTimeout = 10 * time.Second
	// sendBuffer bounds queued snapshots per client; a client that cannot
	// drain this many updates is dropped rather than back-pressuring the
	// ingest path.
	sendBuffer = 8
)

// Hub fans state snapshots out to connected overlay websockets.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]bool
	closed  bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub. The overlay is served from the same origin
// in normal use, but OBS-style browser sources connect with no Origin
// header at all, so the origin check is permissive.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*hubClient]bool),
	}
}

// Handler upgrades the request and serves the client until it disconnects.
// The first message a client receives is the snapshot passed by initial,
// which runs under the hub lock and must not call back into the hub.
// Registering and greeting happen atomically so a broadcast arriving while
// a client connects is queued rather than lost.
func (h *Hub) Handler(initial func() []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Str("peer", r.RemoteAddr).Msg("websocket upgrade failed")
			return
		}

		c := &hubClient{conn: conn, send: make(chan []byte, sendBuffer)}

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			_ = conn.Close()
			return
		}
		h.clients[c] = true
		if b := initial(); b != nil {
			c.send <- b
		}
		n := len(h.clients)
		h.mu.Unlock()
		h.log.Info().Str("peer", r.RemoteAddr).Int("clients", n).Msg("overlay client connected")

		go h.writePump(c)
		h.readUntilClose(c)
		h.drop(c)
		h.log.Info().Str("peer", r.RemoteAddr).Msg("overlay client disconnected")
	}
}

// Broadcast queues payload for every connected client. Clients with a full
// queue are dropped.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	var stale []*hubClient
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	for _, c := range stale {
		h.log.Warn().Msg("dropping slow overlay client")
		_ = c.conn.Close()
	}
}

// Close disconnects every client and rejects future registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*hubClient]bool)
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
		_ = c.conn.Close()
	}
}

func (h *Hub) writePump(c *hubClient) {
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
}

// readUntilClose discards client messages; the overlay never sends any, but
// reading is what surfaces the close handshake.
func (h *Hub) readUntilClose(c *hubClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}
