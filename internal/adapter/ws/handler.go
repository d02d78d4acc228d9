// Package ws implements the WebSocket adapter feeding the dashboard in
// real time.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Message is the envelope for every event pushed to dashboard clients:
// agent turns, approval decisions, blocked tool calls, budget updates.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// client is one subscribed dashboard connection. writeMu serializes
// writes: coder/websocket forbids concurrent writers on a single
// connection, and two engagement events can broadcast at once.
type client struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
}

func (c *client) send(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// Hub tracks subscribed dashboard clients and fans engagement events
// out to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

// HandleWS upgrades the request to a WebSocket and subscribes it to
// engagement events until the peer disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &client{ws: ws, cancel: cancel}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("dashboard client connected", "remote", r.RemoteAddr)

	// The dashboard never sends application data; the read loop exists to
	// consume pings and notice the disconnect.
	go func() {
		defer func() {
			h.drop(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// Broadcast fans the message out to every subscribed client. Clients
// whose write fails are dropped.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if err := c.send(ctx, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
			go h.drop(c)
		}
	}
}

// ConnectionCount returns the number of subscribed clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		c.cancel()
		delete(h.clients, c)
		slog.Info("dashboard client disconnected")
	}
}
