package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/piriven/piriven_backend/internal/logger"
)

const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Event announces a change made through the admin API.
type Event struct {
	Type  string `json:"type"`
	Model string `json:"model"` // label such as "content.News"
	ID    uint   `json:"id"`
}

// contentMessage is either an event for model or, when disconnect is set, a
// request to close that user's clients.
type contentMessage struct {
	model      string
	payload    []byte
	disconnect uint
}

// ContentHub fans admin mutations out to connected staff dashboards. Each
// client only receives events for models it may view.
type ContentHub struct {
	done       chan struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan contentMessage
	clients    map[*client]struct{}
}

func NewContentHub() *ContentHub {
	return &ContentHub{
		done:       make(chan struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan contentMessage, 256),
		clients:    make(map[*client]struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *ContentHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case msg := <-h.broadcast:
			if msg.disconnect != 0 {
				for client := range h.clients {
					if client.userID == msg.disconnect {
						h.drop(client)
					}
				}
				continue
			}
			for client := range h.clients {
				if !client.allowed(msg.model) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					h.drop(client)
				}
			}
		}
	}
}

func (h *ContentHub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

// Broadcast queues ev for delivery. Events are dropped when the queue is full
// so admin writes never wait on slow dashboards.
func (h *ContentHub) Broadcast(ev Event) {
	if h == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error(context.Background(), "ws: failed to marshal event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- contentMessage{model: ev.Model, payload: data}:
	default:
		logger.Warn(context.Background(), "ws: content event dropped", zap.String("model", ev.Model), zap.Uint("id", ev.ID))
	}
}

// Disconnect closes every connection of userID. Their permissions were taken
// at upgrade time, so the dashboard has to reconnect to pick up new ones. It
// shares the event queue, so no event queued after it reaches the old
// connections.
func (h *ContentHub) Disconnect(userID uint) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- contentMessage{disconnect: userID}:
	case <-h.done:
	}
}

func (h *ContentHub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *ContentHub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
