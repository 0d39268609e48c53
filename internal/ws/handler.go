package ws

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/piriven/piriven_backend/internal/middleware"
	"github.com/piriven/piriven_backend/internal/models"
)

// NewUpgrader accepts same-host connections and the given CORS origins.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[strings.ToLower(origin)]; ok {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// ContentHandler streams content events to staff. labels lists every model
// the admin API manages; the client is subscribed to those it may view.
func ContentHandler(hubs *Hubs, upgrader *websocket.Upgrader, labels []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hubs == nil || hubs.Content == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": "realtime not available"})
			return
		}
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		if !user.CanAccessAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
			return
		}

		viewable := make(map[string]struct{}, len(labels))
		for _, label := range labels {
			if user.HasPerm(models.Perm(label, "view")) || user.HasPerm(models.Perm(label, "change")) {
				viewable[label] = struct{}{}
			}
		}
		allowed := func(label string) bool {
			_, ok := viewable[label]
			return ok
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newClient(conn, user.ID, allowed, hubs.Content.leave)
		if !hubs.Content.join(client) {
			conn.Close()
			return
		}

		go client.writePump()
		client.readPump()
	}
}

// SessionHandler lets any signed-in user listen for changes to their account.
func SessionHandler(hubs *Hubs, upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hubs == nil || hubs.Session == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": "realtime not available"})
			return
		}
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newClient(conn, user.ID, nil, hubs.Session.leave)
		if !hubs.Session.join(client) {
			conn.Close()
			return
		}

		go client.writePump()
		client.readPump()
	}
}
