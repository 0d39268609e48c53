package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/piriven/piriven_backend/internal/utils"
)

const (
	CSRFCookie = "csrftoken"
	CSRFHeader = "X-CSRFToken"
)

var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// CSRF protects cookie-authenticated unsafe requests with an origin check and
// a double-submit token. Bearer requests and requests without an access
// cookie pass through untouched.
func CSRF(trustedOrigins []string) gin.HandlerFunc {
	trusted := make(map[string]struct{}, len(trustedOrigins))
	for _, o := range trustedOrigins {
		trusted[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(c *gin.Context) {
		if safeMethods[c.Request.Method] {
			c.Next()
			return
		}
		if _, bearer := BearerToken(c.Request); bearer {
			c.Next()
			return
		}
		if cookie, err := c.Cookie(AccessCookie); err != nil || cookie == "" {
			c.Next()
			return
		}

		if origin := c.GetHeader("Origin"); origin != "" {
			if !originTrusted(c.Request, origin, trusted) {
				reject(c, "CSRF Failed: Origin checking failed - "+origin+" does not match any trusted origins.")
				return
			}
		}

		cookieToken, err := c.Cookie(CSRFCookie)
		if err != nil || cookieToken == "" {
			reject(c, "CSRF Failed: CSRF cookie not set.")
			return
		}
		headerToken := c.GetHeader(CSRFHeader)
		if headerToken == "" {
			reject(c, "CSRF Failed: CSRF token missing.")
			return
		}
		if !utils.EqualTokens(cookieToken, headerToken) {
			reject(c, "CSRF Failed: CSRF token incorrect.")
			return
		}
		c.Next()
	}
}

func originTrusted(r *http.Request, origin string, trusted map[string]struct{}) bool {
	origin = strings.ToLower(origin)
	if _, ok := trusted[origin]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return u.Scheme == scheme && u.Host == strings.ToLower(r.Host)
}

func reject(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": detail})
}

// SetCSRFCookie issues a fresh token cookie readable by scripts and returns it.
func SetCSRFCookie(c *gin.Context, secure bool) (string, error) {
	if tok, err := c.Cookie(CSRFCookie); err == nil && len(tok) == 32 {
		return tok, nil
	}
	tok, err := utils.RandomString(32)
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CSRFCookie, tok, 365*24*3600, "/", "", secure, false)
	return tok, nil
}
