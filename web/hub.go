package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message is what websocket clients receive.
type Message struct {
	Type    string  `json:"type"`
	Payload Listing `json:"payload"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes a fresh listing to every websocket client after each controller
// change.
type Hub struct {
	sync.Mutex
	clients  map[*wsClient]struct{}
	snapshot func() Listing
}

// NewHub creates a hub that renders listings with snapshot.
func NewHub(snapshot func() Listing) *Hub {
	return &Hub{
		clients:  make(map[*wsClient]struct{}),
		snapshot: snapshot,
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.Lock()
	defer h.Unlock()
	return len(h.clients)
}

func (h *Hub) encode() []byte {
	out, err := json.Marshal(Message{Type: "snapshot", Payload: h.snapshot()})
	if err != nil {
		log.Err(err).Msg("Failed to marshal snapshot")
		return nil
	}
	return out
}

// Broadcast sends the current listing to all clients. Slow clients drop the
// update; a later one supersedes it anyway.
func (h *Hub) Broadcast() {
	msg := h.encode()
	if msg == nil {
		return
	}

	h.Lock()
	defer h.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Debug().Str("client", c.id).Msg("Dropping snapshot for slow client")
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.Lock()
	defer h.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, 8),
	}
	if msg := h.encode(); msg != nil {
		c.send <- msg
	}

	h.Lock()
	h.clients[c] = struct{}{}
	h.Unlock()
	log.Debug().Str("client", c.id).Str("addr", r.RemoteAddr).Msg("WebSocket client connected")

	go c.writePump()
	go h.readPump(c)
}

func (h *Hub) remove(c *wsClient) {
	h.Lock()
	defer h.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; clients send nothing.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		log.Debug().Str("client", c.id).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
