package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/rollcall/internal/model"
)

const (
	TypeSessionUpdated = "session_updated"
	TypeSessionClosed  = "session_closed"
)

// Message is pushed to every client watching a session whenever its pending
// list changes, and once more when the session is replaced.
type Message struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Session   *model.Session `json:"session,omitempty"`
	Complete  bool           `json:"complete"`
}

func NewSessionMessage(sess *model.Session) Message {
	return Message{
		Type:      TypeSessionUpdated,
		SessionID: sess.PublicID,
		Session:   sess,
		Complete:  sess.Complete(),
	}
}

// Hub tracks connected clients by the public session reference they watch.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]string
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]string),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = c.topic
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel. Calling it twice
// is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Send queues data for c alone. It reports false if c is no longer
// registered or its buffer is full.
func (h *Hub) Send(c *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// CloseSession tells the clients watching publicID that the session was
// replaced, then drops them. Their connections close once the notice is
// written.
func (h *Hub) CloseSession(publicID string) {
	data, err := json.Marshal(Message{Type: TypeSessionClosed, SessionID: publicID})
	if err != nil {
		h.logger.Error("marshal close notice", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for c, t := range h.clients {
		if t != publicID {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
		delete(h.clients, c)
		close(c.send)
		n++
	}
	if n > 0 {
		h.logger.Info("closed session watchers", "session", publicID, "clients", n)
	}
}

// PublishSession sends the session to the clients watching it.
func (h *Hub) PublishSession(sess *model.Session) {
	h.Broadcast(sess.PublicID, NewSessionMessage(sess))
}

// Broadcast sends msg to every client on topic. A client whose buffer is
// full misses the message rather than blocking the sender.
func (h *Hub) Broadcast(topic string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c, t := range h.clients {
		if t != topic {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Debug("dropped message for slow client", "topic", topic)
		}
	}
}

// ClientCount returns the number of clients watching topic.
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, t := range h.clients {
		if t == topic {
			n++
		}
	}
	return n
}
