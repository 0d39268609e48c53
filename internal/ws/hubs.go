package ws

import "context"

type Hubs struct {
	Content *ContentHub
	Session *SessionHub
}

func NewHubs() *Hubs {
	return &Hubs{
		Content: NewContentHub(),
		Session: NewSessionHub(),
	}
}

// Run starts every hub and returns immediately.
func (h *Hubs) Run(ctx context.Context) {
	go h.Content.Run(ctx)
	go h.Session.Run(ctx)
}

func (h *Hubs) Broadcast(ev Event) {
	if h == nil {
		return
	}
	h.Content.Broadcast(ev)
}

// Notify tells userID that their account changed and drops their content
// streams so they reconnect with current permissions.
func (h *Hubs) Notify(userID uint, message SessionMessage) {
	if h == nil {
		return
	}
	h.Content.Disconnect(userID)
	h.Session.Notify(userID, message)
}
