// Package websocket pushes component change notifications to connected
// browsers. A Hub owns the set of clients, subscribes to the watch event bus
// and broadcasts one component-update message per event.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/pagelume/internal/events"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/types"
)

// MessageTypeComponentUpdate is the type of the message sent when a
// component's files change.
const MessageTypeComponentUpdate = "component-update"

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// UpdateMessage is the JSON document sent to the browser.
type UpdateMessage struct {
	Type string `json:"type"`
	// Path is the component directory that changed
	Path string `json:"path"`
	// Component is the type/variation key, used by previews to decide
	// whether to reload
	Component string `json:"component,omitempty"`
}

// NewUpdateMessage builds the message announcing ev.
func NewUpdateMessage(ev types.WatchEvent) UpdateMessage {
	return UpdateMessage{
		Type:      MessageTypeComponentUpdate,
		Path:      ev.ComponentPath,
		Component: ev.Type + "/" + ev.Variation,
	}
}

// Client is one connected browser.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients and broadcasts to all of them. Slow clients
// whose send buffer is full are disconnected.
type Hub struct {
	originPatterns []string
	logger         logging.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewHub creates a hub. originPatterns is passed to the websocket
// handshake; when empty only same-origin connections are accepted.
func NewHub(originPatterns []string, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		originPatterns: originPatterns,
		logger:         logger.WithComponent("websocket"),
		clients:        make(map[*Client]struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.originPatterns,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		// Accept has already written the response.
		h.logger.Warn(r.Context(), err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(client) {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	h.logger.Debug(r.Context(), "websocket client connected", "remote", r.RemoteAddr, "clients", h.Clients())

	go h.writeLoop(client)
	h.readLoop(client)
	h.unregister(client)
}

func (h *Hub) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		_ = c.conn.CloseNow()
		h.logger.Debug(context.Background(), "websocket client disconnected", "clients", h.Clients())
	}
}

// readLoop discards client messages and returns when the connection ends.
func (h *Hub) readLoop(c *Client) {
	for {
		if _, _, err := c.conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.logger.Debug(h.ctx, "websocket write failed", "error", err)
				_ = c.conn.CloseNow()
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				_ = c.conn.CloseNow()
				return
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// Broadcast queues msg for every connected client and returns the number
// of clients it was queued for.
func (h *Hub) Broadcast(msg UpdateMessage) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "failed to encode broadcast message")
		return 0
	}

	h.mu.RLock()
	var slow []*Client
	queued := 0
	for c := range h.clients {
		select {
		case c.send <- data:
			queued++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Debug(h.ctx, "dropping slow websocket client")
		h.unregister(c)
	}
	return queued
}

// Run broadcasts every event published on bus until ctx is cancelled, the
// bus is closed or the hub shuts down.
func (h *Hub) Run(ctx context.Context, bus *events.Bus[types.WatchEvent]) {
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			n := h.Broadcast(NewUpdateMessage(ev))
			h.logger.Debug(ctx, "component update broadcast",
				"component", ev.Type+"/"+ev.Variation,
				"clients", n,
			)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client and refuses new ones.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		clients := make([]*Client, 0, len(h.clients))
		for c := range h.clients {
			clients = append(clients, c)
		}
		h.mu.Unlock()

		h.cancel()
		for _, c := range clients {
			h.unregister(c)
		}
		h.logger.Info(ctx, "websocket hub shut down", "clients", len(clients))
	})
	return nil
}
