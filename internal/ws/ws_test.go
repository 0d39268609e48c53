package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/piriven/piriven_backend/internal/database"
	"github.com/piriven/piriven_backend/internal/middleware"
	"github.com/piriven/piriven_backend/internal/models"
)

const secret = "ws-secret"

var labels = []string{"content.News", "content.Album"}

type fixture struct {
	server *httptest.Server
	hubs   *Hubs
	users  map[string]*models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	newsDesk := models.Group{Name: "news desk", Permissions: []string{"content.view_news"}}
	require.NoError(t, db.Create(&newsDesk).Error)
	users := map[string]*models.User{
		"root":   {Username: "root", IsActive: true, IsStaff: true, IsSuperuser: true},
		"editor": {Username: "editor", IsActive: true, IsStaff: true, Groups: []models.Group{newsDesk}},
		"reader": {Username: "reader", IsActive: true},
	}
	for _, u := range users {
		require.NoError(t, db.Create(u).Error)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hubs := NewHubs()
	hubs.Run(ctx)

	upgrader := NewUpgrader([]string{"http://localhost:3000"})
	r := gin.New()
	r.Use(middleware.Authentication(db, middleware.AuthConfig{Secret: secret}))
	r.GET("/events", ContentHandler(hubs, upgrader, labels))
	r.GET("/session", SessionHandler(hubs, upgrader))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, hubs: hubs, users: users}
}

func (f *fixture) dial(t *testing.T, path, user string, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if user != "" {
		tok, err := middleware.IssueAccessToken(secret, f.users[user], time.Minute)
		require.NoError(t, err)
		header.Set("Authorization", "Bearer "+tok)
	}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

// receive keeps sending until the registration has reached the hub and a
// message arrives.
func receive(t *testing.T, conn *websocket.Conn, send func()) []byte {
	t.Helper()
	got := make(chan []byte, 1)
	go func() {
		if _, msg, err := conn.ReadMessage(); err == nil {
			got <- msg
		}
	}()
	var msg []byte
	require.Eventually(t, func() bool {
		send()
		select {
		case msg = <-got:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
	return msg
}

func TestContentEventsReachSuperuser(t *testing.T) {
	f := setup(t)
	conn, _, err := f.dial(t, "/events", "root", "")
	require.NoError(t, err)

	msg := receive(t, conn, func() {
		f.hubs.Broadcast(Event{Type: Created, Model: "content.News", ID: 7})
	})
	require.JSONEq(t, `{"type":"created","model":"content.News","id":7}`, string(msg))
}

func TestContentEventsAreFilteredByPermission(t *testing.T) {
	f := setup(t)
	conn, _, err := f.dial(t, "/events", "editor", "")
	require.NoError(t, err)

	msg := receive(t, conn, func() {
		f.hubs.Broadcast(Event{Type: Updated, Model: "content.Album", ID: 1})
		f.hubs.Broadcast(Event{Type: Updated, Model: "content.News", ID: 2})
	})
	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	require.Equal(t, "content.News", ev.Model)
	require.Equal(t, uint(2), ev.ID)
}

func TestContentHandlerRejectsNonStaff(t *testing.T) {
	f := setup(t)

	_, resp, err := f.dial(t, "/events", "", "")
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = f.dial(t, "/events", "reader", "")
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUpgraderChecksOrigin(t *testing.T) {
	f := setup(t)

	_, _, err := f.dial(t, "/events", "root", "http://localhost:3000")
	require.NoError(t, err)

	_, resp, err := f.dial(t, "/events", "root", "http://evil.test")
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSessionNotify(t *testing.T) {
	f := setup(t)
	conn, _, err := f.dial(t, "/session", "reader", "")
	require.NoError(t, err)

	id := f.users["reader"].ID
	msg := receive(t, conn, func() {
		f.hubs.Notify(id+100, SessionMessage{Type: PermissionsChanged})
		f.hubs.Notify(id, SessionMessage{Type: SessionRevoked, Message: "account disabled"})
	})
	require.JSONEq(t, `{"type":"session_revoked","message":"account disabled"}`, string(msg))
}

func TestNilHubsAreSafe(t *testing.T) {
	var hubs *Hubs
	hubs.Broadcast(Event{Type: Deleted, Model: "content.News", ID: 1})
	hubs.Notify(1, SessionMessage{Type: SessionRevoked})
}

func TestNotifyDropsContentStreams(t *testing.T) {
	f := setup(t)
	editor, _, err := f.dial(t, "/events", "editor", "")
	require.NoError(t, err)
	root, _, err := f.dial(t, "/events", "root", "")
	require.NoError(t, err)

	hello := func() { f.hubs.Broadcast(Event{Type: "hello", Model: "content.News"}) }
	receive(t, editor, hello)
	receive(t, root, hello)

	f.hubs.Notify(f.users["editor"].ID, SessionMessage{Type: PermissionsChanged})
	f.hubs.Broadcast(Event{Type: Created, Model: "content.News", ID: 9})

	editor.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev Event
		err := editor.ReadJSON(&ev)
		if err != nil {
			require.False(t, errors.Is(err, os.ErrDeadlineExceeded), "editor stream stayed open")
			break
		}
		require.Equal(t, "hello", ev.Type, "no event after the disconnect")
	}

	root.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev Event
		require.NoError(t, root.ReadJSON(&ev))
		if ev.Type != "hello" {
			require.Equal(t, Event{Type: Created, Model: "content.News", ID: 9}, ev)
			break
		}
	}
}
