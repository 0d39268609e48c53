package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// InsecureSecretKey is used when DJANGO_SECRET_KEY is not set. It is only
	// accepted while Debug is on.
	InsecureSecretKey = "change-me-unsafe-secret-key"

	DefaultAllowedHosts = "122.255.40.206,piriven.moe.gov.lk"

	// PublicDevOrigin is trusted for CORS and CSRF only in debug mode.
	PublicDevOrigin = "http://122.255.40.206:8000"
)

var corsBaseOrigins = []string{
	"http://localhost:8080",
	"http://127.0.0.1:8080",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

var csrfBaseOrigins = []string{
	"http://localhost:8080",
	"http://127.0.0.1:8080",
}

// InstalledApps lists the application components in load order.
var InstalledApps = []string{
	"admin",
	"auth",
	"contenttypes",
	"sessions",
	"staticfiles",
	"rest",
	"cors",
	"filters",
	"content",
	"library",
}

// Middleware lists the request pipeline in the order the router applies it.
var Middleware = []string{
	"cors",
	"security",
	"session",
	"common",
	"csrf",
	"authentication",
	"clickjacking",
}

// environment is the raw process environment. Derived values are computed in
// build so the env-tagged struct stays flat.
type environment struct {
	SecretKey    string `env:"DJANGO_SECRET_KEY" env-default:"change-me-unsafe-secret-key"`
	Debug        string `env:"DJANGO_DEBUG" env-default:"True"`
	AllowedHosts string `env:"DJANGO_ALLOWED_HOSTS" env-default:"122.255.40.206,piriven.moe.gov.lk"`
	BaseDir      string `env:"PIRIVEN_BASE_DIR"`
	Port         string `env:"PORT" env-default:"8000"`

	DBEngine   string `env:"DB_ENGINE" env-default:"sqlite"`
	DBName     string `env:"DB_NAME"`
	DBHost     string `env:"DB_HOST" env-default:"localhost"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`
	DBUser     string `env:"DB_USER" env-default:"postgres"`
	DBPassword string `env:"DB_PASSWORD" env-default:"postgres"`
	DBSSLMode  string `env:"DB_SSLMODE" env-default:"disable"`

	AccessTokenTTLMinutes int `env:"ACCESS_TOKEN_TTL_MINUTES" env-default:"15"`
	RefreshTokenTTLDays   int `env:"REFRESH_TOKEN_TTL_DAYS" env-default:"7"`

	AdminUsername string `env:"ADMIN_USERNAME" env-default:"admin"`
	AdminEmail    string `env:"ADMIN_EMAIL" env-default:"admin@example.com"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	PageSize         int `env:"PAGE_SIZE" env-default:"10"`
	MaxPageSize      int `env:"MAX_PAGE_SIZE" env-default:"100"`
	MediaMaxUploadMB int `env:"MEDIA_MAX_UPLOAD_MB" env-default:"10"`

	LogLevel string `env:"LOG_LEVEL"`
}

type Database struct {
	Engine   string // sqlite | postgres
	Name     string // file path for sqlite
	Host     string
	Port     string
	User     string
	Password string
	SSLMode  string
}

type Auth struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Bootstrap describes the superuser created on first start.
type Bootstrap struct {
	Username string
	Email    string
	Password string
}

type REST struct {
	PageSize           int
	MaxPageSize        int
	PageQueryParam     string
	PageSizeQueryParam string
}

type CORS struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

type Config struct {
	BaseDir      string
	SecretKey    string
	Debug        bool
	AllowedHosts []string
	Port         string

	Database  Database
	Auth      Auth
	Bootstrap Bootstrap
	REST      REST

	CORS               CORS
	CSRFTrustedOrigins []string

	StaticURL       string
	StaticRoot      string
	StaticFilesDirs []string
	MediaURL        string
	MediaRoot       string
	TemplatesDir    string
	MaxUploadBytes  int64

	LanguageCode string
	TimeZone     string
	UseTZ        bool

	PasswordMinLength int
	LogLevel          string

	Theme    AdminTheme
	UITweaks UITweaks
}

// Load reads the process environment and returns the resulting settings.
// Unset variables fall back to their defaults.
func Load() (*Config, error) {
	var env environment
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("could not read environment: %w", err)
	}
	return build(env)
}

func build(env environment) (*Config, error) {
	base := env.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve base dir: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	debug := env.Debug == "True"

	hosts := ParseHosts(env.AllowedHosts)

	cors := append([]string(nil), corsBaseOrigins...)
	csrf := append([]string(nil), csrfBaseOrigins...)
	if debug {
		cors = append(cors, PublicDevOrigin)
		csrf = append(csrf, PublicDevOrigin)
	}

	db := Database{
		Engine:   strings.ToLower(strings.TrimSpace(env.DBEngine)),
		Name:     env.DBName,
		Host:     env.DBHost,
		Port:     env.DBPort,
		User:     env.DBUser,
		Password: env.DBPassword,
		SSLMode:  env.DBSSLMode,
	}
	if db.Name == "" {
		if db.Engine == "postgres" {
			db.Name = "piriven"
		} else {
			db.Name = filepath.Join(base, "db.sqlite3")
		}
	}

	logLevel := env.LogLevel
	if logLevel == "" {
		logLevel = "info"
		if debug {
			logLevel = "debug"
		}
	}

	pageSize := env.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	return &Config{
		BaseDir:      base,
		SecretKey:    env.SecretKey,
		Debug:        debug,
		AllowedHosts: hosts,
		Port:         env.Port,
		Database:     db,
		Auth: Auth{
			AccessTTL:  time.Duration(env.AccessTokenTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(env.RefreshTokenTTLDays) * 24 * time.Hour,
		},
		Bootstrap: Bootstrap{
			Username: env.AdminUsername,
			Email:    env.AdminEmail,
			Password: env.AdminPassword,
		},
		REST: REST{
			PageSize:           pageSize,
			MaxPageSize:        env.MaxPageSize,
			PageQueryParam:     "page",
			PageSizeQueryParam: "page_size",
		},
		CORS:               CORS{AllowedOrigins: cors, AllowCredentials: true},
		CSRFTrustedOrigins: csrf,
		StaticURL:          "/static/",
		StaticRoot:         filepath.Join(base, "static"),
		StaticFilesDirs:    []string{filepath.Join(base, "assets")},
		MediaURL:           "/media/",
		MediaRoot:          filepath.Join(base, "media"),
		TemplatesDir:       filepath.Join(base, "templates"),
		MaxUploadBytes:     int64(env.MediaMaxUploadMB) << 20,
		LanguageCode:       "en-us",
		TimeZone:           "UTC",
		UseTZ:              true,
		PasswordMinLength:  8,
		LogLevel:           logLevel,
		Theme:              DefaultTheme(),
		UITweaks:           DefaultUITweaks(),
	}, nil
}

// ParseHosts splits a comma-separated host list, trimming whitespace and
// dropping empty entries.
func ParseHosts(raw string) []string {
	hosts := []string{}
	for _, h := range strings.Split(raw, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Validate rejects settings that must not reach a production process.
func (c *Config) Validate() error {
	var errs []error
	if !c.Debug && (c.SecretKey == "" || c.SecretKey == InsecureSecretKey) {
		errs = append(errs, errors.New("DJANGO_SECRET_KEY must be set when DJANGO_DEBUG is not True"))
	}
	if c.Database.Engine != "sqlite" && c.Database.Engine != "postgres" {
		errs = append(errs, fmt.Errorf("unsupported DB_ENGINE %q", c.Database.Engine))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.REST.PageSize <= 0 || c.REST.MaxPageSize <= 0 {
		errs = append(errs, errors.New("PAGE_SIZE and MAX_PAGE_SIZE must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MEDIA_MAX_UPLOAD_MB must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	port := c.Port
	if port == "" {
		port = "8000"
	}
	return ":" + port
}

// Masked returns a copy that is safe to print.
func (c *Config) Masked() Config {
	out := *c
	if out.SecretKey != "" {
		out.SecretKey = "********"
	}
	if out.Database.Password != "" {
		out.Database.Password = "********"
	}
	if out.Bootstrap.Password != "" {
		out.Bootstrap.Password = "********"
	}
	return out
}
