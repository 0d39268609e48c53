package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SplitHostPort lower-cases the Host header value and drops the port and
// any trailing dot. IPv6 literals keep their brackets.
func SplitHostPort(host string) (domain, port string) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", ""
	}
	if host[len(host)-1] == ']' {
		return host, ""
	}
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i+1:], "]") {
		domain, port = host[:i], host[i+1:]
	} else {
		domain = host
	}
	return strings.TrimSuffix(domain, "."), port
}

// HostAllowed matches domain against patterns. "*" matches everything and a
// leading dot matches the domain and all of its subdomains.
func HostAllowed(domain string, patterns []string) bool {
	if domain == "" {
		return false
	}
	for _, p := range patterns {
		p = strings.ToLower(p)
		switch {
		case p == "*":
			return true
		case p == domain:
			return true
		case strings.HasPrefix(p, ".") && (strings.HasSuffix(domain, p) || domain == p[1:]):
			return true
		}
	}
	return false
}

// debugHosts are accepted when the allow-list is empty and debug is on.
var debugHosts = []string{".localhost", "127.0.0.1", "[::1]"}

// AllowedHosts rejects requests whose Host header is not in the allow-list.
// With debug on, an empty list falls back to the local development hosts.
func AllowedHosts(patterns []string, debug bool) gin.HandlerFunc {
	if len(patterns) == 0 && debug {
		patterns = debugHosts
	}
	return func(c *gin.Context) {
		domain, _ := SplitHostPort(c.Request.Host)
		if !HostAllowed(domain, patterns) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"detail": fmt.Sprintf("Invalid HTTP_HOST header: %q.", c.Request.Host),
			})
			return
		}
		c.Next()
	}
}
