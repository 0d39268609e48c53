package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/piriven/piriven_backend/internal/apperr"
	"github.com/piriven/piriven_backend/internal/config"
	"github.com/piriven/piriven_backend/internal/middleware"
	"github.com/piriven/piriven_backend/internal/models"
)

// SiteController describes the admin site to the admin UI: branding, the
// models the current user may manage and where their endpoints live.
type SiteController struct {
	Cfg      *config.Config
	Handlers []Handler
}

type siteModel struct {
	Label    string            `json:"label"`
	App      string            `json:"app"`
	Name     string            `json:"name"`
	Icon     string            `json:"icon"`
	Endpoint string            `json:"endpoint"`
	Public   string            `json:"public_endpoint,omitempty"`
	Perms    map[string]bool   `json:"perms"`
	Links    []config.MenuLink `json:"custom_links,omitempty"`
}

func (s *SiteController) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, apperr.With(apperr.ErrUnauthorized, "Authentication credentials were not provided."))
		return
	}
	theme := s.Cfg.Theme

	entries := make([]siteModel, 0, len(s.Handlers)+2)
	add := func(label, name, endpoint, public string) {
		perms := map[string]bool{}
		for _, action := range []string{"view", "add", "change", "delete"} {
			perms[action] = user.HasPerm(models.Perm(label, action))
		}
		if !perms["view"] && !perms["change"] {
			return
		}
		app, _, _ := strings.Cut(label, ".")
		for _, hidden := range theme.HideApps {
			if hidden == app {
				return
			}
		}
		for _, hidden := range theme.HideModels {
			if hidden == label {
				return
			}
		}
		entries = append(entries, siteModel{
			Label:    label,
			App:      app,
			Name:     name,
			Icon:     theme.Icon(label),
			Endpoint: endpoint,
			Public:   public,
			Perms:    perms,
			Links:    theme.CustomLinks[label],
		})
	}
	for _, h := range s.Handlers {
		public := ""
		if h.Public() {
			public = "/api/v1/" + h.Path()
		}
		add(h.Label(), h.Name(), "/api/v1/admin/"+h.Path(), public)
	}
	if user.IsSuperuser {
		add("auth.User", "users", "/api/v1/admin/users", "")
		add("auth.Group", "groups", "/api/v1/admin/groups", "")
	}

	static := s.Cfg.StaticURL
	c.JSON(http.StatusOK, gin.H{
		"theme":     theme,
		"ui_tweaks": s.Cfg.UITweaks,
		"models":    entries,
		"user":      userPayload(user),
		"assets": gin.H{
			"static_url": static,
			"media_url":  s.Cfg.MediaURL,
			"custom_css": static + theme.CustomCSS,
			"custom_js":  prefixed(static, theme.CustomJS),
		},
		"language_code": s.Cfg.LanguageCode,
		"time_zone":     s.Cfg.TimeZone,
	})
}

func prefixed(prefix string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, prefix+p)
	}
	return out
}
