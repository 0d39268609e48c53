package routes

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/config"
	"github.com/piriven/piriven_backend/internal/controllers"
	"github.com/piriven/piriven_backend/internal/middleware"
	"github.com/piriven/piriven_backend/internal/models"
	"github.com/piriven/piriven_backend/internal/pagination"
	"github.com/piriven/piriven_backend/internal/utils"
	"github.com/piriven/piriven_backend/internal/ws"
)

// New builds the engine with every route registered.
func New(db *gorm.DB, cfg *config.Config, hubs *ws.Hubs, reg *prometheus.Registry) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	Register(r, db, cfg, hubs, reg)
	return r
}

// Pipeline returns the configured middleware in order. "session" has no
// handler of its own: sessions are the access cookie read by authentication.
func Pipeline(db *gorm.DB, cfg *config.Config) []gin.HandlerFunc {
	byName := map[string]gin.HandlerFunc{
		"cors":     middleware.CORS(cfg.CORS.AllowedOrigins, cfg.CORS.AllowCredentials),
		"security": middleware.SecurityHeaders(),
		"common":   middleware.AllowedHosts(cfg.AllowedHosts, cfg.Debug),
		"csrf":     middleware.CSRF(cfg.CSRFTrustedOrigins),
		"authentication": middleware.Authentication(db, middleware.AuthConfig{
			Secret:    cfg.SecretKey,
			AccessTTL: cfg.Auth.AccessTTL,
		}),
		"clickjacking": middleware.FrameOptions(),
	}
	out := make([]gin.HandlerFunc, 0, len(config.Middleware))
	for _, name := range config.Middleware {
		if h, ok := byName[name]; ok {
			out = append(out, h)
		}
	}
	return out
}

func Register(r *gin.Engine, db *gorm.DB, cfg *config.Config, hubs *ws.Hubs, reg *prometheus.Registry) {
	metrics := middleware.NewMetrics(reg)
	r.Use(middleware.Recovery(), middleware.RequestLogger(), metrics.Handler())
	r.Use(Pipeline(db, cfg)...)

	deps := &controllers.Deps{
		DB:        db,
		Paginator: paginator(cfg),
		Hubs:      hubs,
	}
	handlers := controllers.Resources(deps)
	labels := controllers.Labels(handlers)
	upgrader := ws.NewUpgrader(cfg.CORS.AllowedOrigins)

	authCtrl := &controllers.AuthController{
		DB:            db,
		AccessSecret:  cfg.SecretKey,
		RefreshSecret: utils.SHA256Hex("refresh:" + cfg.SecretKey),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		SecureCookies: !cfg.Debug,
	}
	newsletterCtrl := &controllers.NewsletterController{Deps: deps}
	mediaCtrl := &controllers.MediaController{Deps: deps, Root: cfg.MediaRoot, URL: cfg.MediaURL, MaxBytes: cfg.MaxUploadBytes}
	siteCtrl := &controllers.SiteController{Cfg: cfg, Handlers: handlers}
	userCtrl := controllers.NewUserController(deps, cfg.PasswordMinLength)
	groups := controllers.GroupResource(deps, controllers.Permissions(labels))
	healthCtrl := &controllers.HealthController{DB: db}

	r.GET("/healthz", healthCtrl.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	r.StaticFS(strings.TrimRight(cfg.StaticURL, "/"), staticFS(cfg))
	r.StaticFS(strings.TrimRight(cfg.MediaURL, "/"), gin.Dir(cfg.MediaRoot, false))

	api := r.Group("/api/v1")
	for _, h := range handlers {
		if !h.Public() {
			continue
		}
		api.GET("/"+h.Path(), h.List)
		api.GET("/"+h.Path()+"/:id", h.Retrieve)
	}
	api.POST("/newsletter/subscribe", newsletterCtrl.Subscribe)
	api.POST("/newsletter/unsubscribe", newsletterCtrl.Unsubscribe)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authCtrl.Login)
		auth.POST("/refresh", authCtrl.Refresh)
		auth.POST("/logout", authCtrl.Logout)
		auth.GET("/me", authCtrl.Me)
		auth.GET("/csrf", authCtrl.CSRF)
		auth.GET("/ws", ws.SessionHandler(hubs, upgrader))
	}

	admin := api.Group("/admin", middleware.RequireStaff())
	{
		admin.GET("/site", siteCtrl.Get)
		admin.POST("/media", mediaCtrl.Upload)
		admin.GET("/ws", ws.ContentHandler(hubs, upgrader, labels))
		admin.GET("/newsletter/export", middleware.RequirePerm(
			models.Perm("content.NewsletterSubscription", "view"),
			models.Perm("content.NewsletterSubscription", "change"),
		), newsletterCtrl.Export)

		for _, h := range handlers {
			crud(admin, h.Path(), h.Label(), h.AdminList, h.AdminRetrieve, h.Create, h.Update, h.Delete)
		}

		super := admin.Group("", middleware.RequireSuperuser())
		super.GET("/users", userCtrl.List)
		super.POST("/users", userCtrl.Create)
		super.GET("/users/:id", userCtrl.Retrieve)
		super.PUT("/users/:id", userCtrl.Update)
		super.PATCH("/users/:id", userCtrl.Update)
		super.DELETE("/users/:id", userCtrl.Delete)
		crud(super, groups.Path(), groups.Label(), groups.AdminList, groups.AdminRetrieve, groups.Create, groups.Update, groups.Delete)
	}
}

func crud(g *gin.RouterGroup, path, label string, list, retrieve, create, update, del gin.HandlerFunc) {
	view := middleware.RequirePerm(models.Perm(label, "view"), models.Perm(label, "change"))
	change := middleware.RequirePerm(models.Perm(label, "change"))

	g.GET("/"+path, view, list)
	g.POST("/"+path, middleware.RequirePerm(models.Perm(label, "add")), create)
	g.GET("/"+path+"/:id", view, retrieve)
	g.PUT("/"+path+"/:id", change, update)
	g.PATCH("/"+path+"/:id", change, update)
	g.DELETE("/"+path+"/:id", middleware.RequirePerm(models.Perm(label, "delete")), del)
}

func paginator(cfg *config.Config) pagination.Paginator {
	p := pagination.New(cfg.REST.PageSize, cfg.REST.MaxPageSize)
	if cfg.REST.PageQueryParam != "" {
		p.PageQueryParam = cfg.REST.PageQueryParam
	}
	if cfg.REST.PageSizeQueryParam != "" {
		p.PageSizeQueryParam = cfg.REST.PageSizeQueryParam
	}
	return p
}

// staticFS serves STATIC_ROOT. In debug the source directories are searched
// first so assets work before collectstatic has run.
func staticFS(cfg *config.Config) http.FileSystem {
	if !cfg.Debug {
		return gin.Dir(cfg.StaticRoot, false)
	}
	dirs := make(layeredFS, 0, len(cfg.StaticFilesDirs)+1)
	for _, d := range cfg.StaticFilesDirs {
		dirs = append(dirs, gin.Dir(d, false))
	}
	return append(dirs, gin.Dir(cfg.StaticRoot, false))
}

// layeredFS opens a name from the first directory that has it.
type layeredFS []http.FileSystem

func (l layeredFS) Open(name string) (http.File, error) {
	for _, fs := range l {
		f, err := fs.Open(name)
		if err == nil {
			return f, nil
		}
	}
	return nil, os.ErrNotExist
}
