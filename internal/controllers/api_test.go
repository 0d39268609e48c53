package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/config"
	"github.com/piriven/piriven_backend/internal/database"
	"github.com/piriven/piriven_backend/internal/middleware"
	"github.com/piriven/piriven_backend/internal/models"
	"github.com/piriven/piriven_backend/internal/routes"
	"github.com/piriven/piriven_backend/internal/utils"
	"github.com/piriven/piriven_backend/internal/ws"
)

const testPassword = "blue-harbour-lantern"

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	t     *testing.T
	cfg   *config.Config
	db    *gorm.DB
	r     *gin.Engine
	users map[string]*models.User
}

// newAPI wires the full router against a private in-memory database with
// four accounts: root (superuser), editor (news editors group), viewer (can
// only view news) and reader (not staff).
func newAPI(t *testing.T) *api {
	t.Helper()
	return newAPIWithHubs(t, nil)
}

// newAPIWithHubs is newAPI with realtime hubs attached. 127.0.0.1 is an
// allowed host so the router can sit behind httptest.NewServer.
func newAPIWithHubs(t *testing.T, hubs *ws.Hubs) *api {
	t.Helper()
	t.Setenv("PIRIVEN_BASE_DIR", t.TempDir())
	t.Setenv("DJANGO_ALLOWED_HOSTS", "example.com,127.0.0.1")
	t.Setenv("DJANGO_SECRET_KEY", "controller-test-secret")
	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	hashed, err := utils.HashPassword(testPassword)
	require.NoError(t, err)

	editors := models.Group{Name: "news editors", Permissions: []string{
		"content.view_news", "content.add_news", "content.change_news", "content.delete_news",
	}}
	viewers := models.Group{Name: "news viewers", Permissions: []string{"content.view_news"}}
	require.NoError(t, db.Create(&editors).Error)
	require.NoError(t, db.Create(&viewers).Error)

	users := map[string]*models.User{
		"root":   {Username: "root", Password: hashed, IsActive: true, IsStaff: true, IsSuperuser: true},
		"editor": {Username: "editor", Password: hashed, IsActive: true, IsStaff: true, Groups: []models.Group{editors}},
		"viewer": {Username: "viewer", Password: hashed, IsActive: true, IsStaff: true, Groups: []models.Group{viewers}},
		"reader": {Username: "reader", Password: hashed, IsActive: true},
	}
	for _, u := range users {
		require.NoError(t, db.Create(u).Error)
	}

	return &api{
		t:     t,
		cfg:   cfg,
		db:    db,
		r:     routes.New(db, cfg, hubs, prometheus.NewRegistry()),
		users: users,
	}
}

func (a *api) token(username string) string {
	a.t.Helper()
	tok, err := middleware.IssueAccessToken(a.cfg.SecretKey, a.users[username], time.Minute)
	require.NoError(a.t, err)
	return tok
}

// do sends body as JSON. as names the user whose Bearer token is attached;
// empty means anonymous.
func (a *api) do(method, path string, body any, as string) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(as))
	}
	return a.serve(req)
}

func (a *api) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type errorBody struct {
	Detail string              `json:"detail"`
	Errors map[string][]string `json:"errors"`
}

func newJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
