package ws

import (
	"context"
	"encoding/json"
)

const (
	SessionRevoked     = "session_revoked"
	PermissionsChanged = "permissions_changed"
)

// SessionMessage is pushed to a single user's open sessions.
type SessionMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type sessionNotification struct {
	userID  uint
	payload []byte
}

// SessionHub keeps one connection per user so account changes such as
// deactivation reach the user's browser immediately.
type SessionHub struct {
	done       chan struct{}
	register   chan *client
	unregister chan *client
	notify     chan sessionNotification
	clients    map[uint]*client
}

func NewSessionHub() *SessionHub {
	return &SessionHub{
		done:       make(chan struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		notify:     make(chan sessionNotification, 256),
		clients:    make(map[uint]*client),
	}
}

func (h *SessionHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, client := range h.clients {
				delete(h.clients, id)
				client.conn.Close()
			}
			return
		case client := <-h.register:
			if existing, ok := h.clients[client.userID]; ok {
				existing.conn.Close()
			}
			h.clients[client.userID] = client
		case client := <-h.unregister:
			if stored, ok := h.clients[client.userID]; ok && stored == client {
				delete(h.clients, client.userID)
			}
		case msg := <-h.notify:
			if client, ok := h.clients[msg.userID]; ok {
				select {
				case client.send <- msg.payload:
				default:
					client.conn.Close()
					delete(h.clients, msg.userID)
				}
			}
		}
	}
}

func (h *SessionHub) Notify(userID uint, message SessionMessage) {
	if h == nil {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case h.notify <- sessionNotification{userID: userID, payload: data}:
	default:
	}
}

func (h *SessionHub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *SessionHub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
