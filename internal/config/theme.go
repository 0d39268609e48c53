package config

// MenuLink is an entry in the admin top menu, user menu or a model's custom links.
type MenuLink struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Icon        string   `json:"icon,omitempty"`
	NewWindow   bool     `json:"new_window,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// AdminTheme is the branding and navigation descriptor served to the admin UI.
type AdminTheme struct {
	SiteTitle          string                `json:"site_title"`
	SiteHeader         string                `json:"site_header"`
	SiteBrand          string                `json:"site_brand"`
	WelcomeSign        string                `json:"welcome_sign"`
	SiteLogo           *string               `json:"site_logo"`
	SiteIcon           *string               `json:"site_icon"`
	Copyright          string                `json:"copyright"`
	SearchModel        string                `json:"search_model"`
	ShowUIBuilder      bool                  `json:"show_ui_builder"`
	RelatedModalActive bool                  `json:"related_modal_active"`
	TopMenuLinks       []MenuLink            `json:"topmenu_links"`
	UserMenuLinks      []MenuLink            `json:"usermenu_links"`
	Icons              map[string]string     `json:"icons"`
	CustomCSS          string                `json:"custom_css"`
	CustomJS           []string              `json:"custom_js"`
	CustomLinks        map[string][]MenuLink `json:"custom_links"`
	HideApps           []string              `json:"hide_apps"`
	HideModels         []string              `json:"hide_models"`
}

type UITweaks struct {
	Theme            string            `json:"theme"`
	DarkModeTheme    *string           `json:"dark_mode_theme"`
	Navbar           string            `json:"navbar"`
	Sidebar          string            `json:"sidebar"`
	BrandColour      string            `json:"brand_colour"`
	Accent           string            `json:"accent"`
	ActionsStickyTop bool              `json:"actions_sticky_top"`
	ButtonClasses    map[string]string `json:"button_classes"`
}

func DefaultTheme() AdminTheme {
	return AdminTheme{
		SiteTitle:          "Admin",
		SiteHeader:         "Admin",
		SiteBrand:          "Admin",
		WelcomeSign:        "Site Content Management",
		SearchModel:        "content.News",
		RelatedModalActive: true,
		TopMenuLinks: []MenuLink{
			{Name: "Dashboard", URL: "admin:index", Permissions: []string{"auth.view_user"}},
			{Name: "Site", URL: "/", NewWindow: true},
		},
		UserMenuLinks: []MenuLink{
			{Name: "View site", URL: "/", NewWindow: true},
		},
		Icons: map[string]string{
			"apps.content":                   "fas fa-layer-group",
			"content.Album":                  "fas fa-images",
			"content.GalleryImage":           "far fa-image",
			"content.News":                   "far fa-newspaper",
			"content.Notice":                 "fas fa-bullhorn",
			"content.Publication":            "fas fa-download",
			"content.DownloadCategory":       "fas fa-folder-open",
			"content.Video":                  "fas fa-video",
			"content.Event":                  "far fa-calendar-alt",
			"content.Stat":                   "fas fa-chart-bar",
			"content.ExternalLink":           "fas fa-link",
			"content.HeroSlide":              "fas fa-photo-video",
			"content.NewsletterSubscription": "far fa-envelope",
			"library.PublicationEntry":       "fas fa-book",
			"library.PublicationCategory":    "fas fa-book-open",
			"auth.User":                      "fas fa-user",
			"auth.Group":                     "fas fa-users",
		},
		CustomCSS: "admin/custom.css",
		CustomJS:  []string{"admin/custom.js"},
		CustomLinks: map[string][]MenuLink{
			"content.News": {
				{Name: "View on site", URL: "/", Icon: "fas fa-external-link-alt", NewWindow: true},
			},
		},
		HideApps:   []string{},
		HideModels: []string{},
	}
}

func DefaultUITweaks() UITweaks {
	return UITweaks{
		Theme:            "flatly",
		Navbar:           "navbar-dark bg-black",
		Sidebar:          "sidebar-dark-danger",
		BrandColour:      "navbar-dark bg-black",
		Accent:           "danger",
		ActionsStickyTop: true,
		ButtonClasses: map[string]string{
			"primary":   "btn btn-danger",
			"secondary": "btn btn-outline-secondary",
			"success":   "btn btn-success",
			"warning":   "btn btn-warning",
			"info":      "btn btn-info",
			"danger":    "btn btn-outline-danger",
		},
	}
}

// Icon returns the icon class for a model label such as "content.News".
func (t AdminTheme) Icon(label string) string {
	if icon, ok := t.Icons[label]; ok {
		return icon
	}
	return "fas fa-circle"
}
