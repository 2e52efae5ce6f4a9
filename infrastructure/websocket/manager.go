package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"criminal-registry/pkg/logger"
)

// TextMessage matches the websocket text frame opcode
const TextMessage = 1

const (
	// sendBuffer is how many events a client may fall behind before it is dropped
	sendBuffer = 64
	writeWait  = 10 * time.Second
)

// Conn is the subset of a websocket connection the hub writes to
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type deadlineConn interface {
	SetWriteDeadline(t time.Time) error
}

// Message is the envelope pushed to dashboards
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type client struct {
	id     uuid.UUID
	conn   Conn
	topics map[string]bool // empty = everything
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *client) wants(eventType string) bool {
	if len(c.topics) == 0 {
		return true
	}
	return c.topics[eventType]
}

// enqueue never blocks; false means the client is too far behind
func (c *client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// Hub fans domain events out to connected operator dashboards
type Hub struct {
	mu      sync.RWMutex
	clients map[Conn]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[Conn]*client)}
}

// RegisterClient adds a connection. topics limits which event types it receives.
func (h *Hub) RegisterClient(conn Conn, topics []string) uuid.UUID {
	c := &client{
		id:     uuid.New(),
		conn:   conn,
		topics: make(map[string]bool, len(topics)),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	for _, t := range topics {
		if t != "" {
			c.topics[t] = true
		}
	}

	h.mu.Lock()
	h.clients[conn] = c
	total := len(h.clients)
	h.mu.Unlock()

	go h.writePump(c)

	logger.WebSocket("client_registered", "Dashboard connected", map[string]interface{}{
		"client_id": c.id.String(),
		"clients":   total,
	})
	return c.id
}

// writePump is the only goroutine writing to the client's connection
func (h *Hub) writePump(c *client) {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if dc, ok := c.conn.(deadlineConn); ok {
				_ = dc.SetWriteDeadline(time.Now().Add(writeWait))
			}
			if err := c.conn.WriteMessage(TextMessage, payload); err != nil {
				logger.WebSocketError("write_failed", "Dropping dashboard after write error", err, map[string]interface{}{
					"client_id": c.id.String(),
				})
				h.drop(c)
				return
			}
		}
	}
}

func (h *Hub) UnregisterClient(conn Conn) {
	h.mu.Lock()
	c, ok := h.clients[conn]
	delete(h.clients, conn)
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.stop()
		logger.WebSocket("client_unregistered", "Dashboard disconnected", map[string]interface{}{
			"client_id": c.id.String(),
			"clients":   total,
		})
	}
}

// drop unregisters the client and closes its connection, which also ends the read loop
func (h *Hub) drop(c *client) {
	h.UnregisterClient(c.conn)
	_ = c.conn.Close()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish implements services.EventPublisher. It never waits on a connection;
// clients whose queue is full are dropped.
func (h *Hub) Publish(eventType string, data map[string]interface{}) {
	payload, err := json.Marshal(Message{Type: eventType, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		logger.WebSocketError("marshal_failed", "Failed to encode event", err, map[string]interface{}{"type": eventType})
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.wants(eventType) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(payload) {
			logger.Warn(logger.CategoryWebSocket, "client_too_slow", "Dropping dashboard that stopped reading", map[string]interface{}{
				"client_id": c.id.String(),
				"type":      eventType,
			})
			h.drop(c)
		}
	}
}

// HandleMessage answers client frames; only ping is understood
func (h *Hub) HandleMessage(conn Conn, message []byte) {
	var incoming struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &incoming); err != nil {
		return
	}

	if incoming.Type == "ping" {
		h.mu.RLock()
		c, ok := h.clients[conn]
		h.mu.RUnlock()
		if !ok {
			return
		}
		payload, _ := json.Marshal(Message{Type: "pong", Timestamp: time.Now().UTC()})
		c.enqueue(payload)
	}
}
