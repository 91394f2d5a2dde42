// Package mirror publishes measurement snapshots to websocket clients.
// The mirror is publish-only: anything a client sends is discarded.
package mirror

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-rta/measure/measurement"
	"github.com/cwbudde/algo-rta/measure/snapshot"
)

const (
	sendQueue    = 4
	writeTimeout = 5 * time.Second
)

// Hub fans snapshots out to the connected clients. A client that cannot
// keep up misses payloads instead of stalling the others.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub returns an empty hub. A nil logger disables logging.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}

	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 65536,
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the connection until the
// peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))

		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueue)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()

		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Info("mirror client connected", zap.String("remote", r.RemoteAddr), zap.Int("clients", n))

	go c.writePump()
	h.readPump(c)
}

// readPump drains the connection so control frames are processed and
// returns when the peer closes.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.log.Info("mirror client disconnected", zap.Int("clients", n))
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Broadcast queues payload for every client.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Debug("mirror client lagging, payload dropped")
		}
	}
}

// Publish encodes s as JSON and broadcasts it.
func (h *Hub) Publish(s *snapshot.Snapshot) error {
	var buf bytes.Buffer
	if err := s.WriteJSON(&buf); err != nil {
		return err
	}

	h.Broadcast(buf.Bytes())

	return nil
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

// Run polls c every interval and publishes a snapshot whenever its
// generation changes. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context, c *measurement.Controller, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last uint64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gen := c.Generation()
			if gen == last || h.Clients() == 0 {
				continue
			}

			last = gen
			if err := h.Publish(snapshot.Capture(c)); err != nil {
				h.log.Warn("mirror publish failed", zap.Error(err))
			}
		}
	}
}
