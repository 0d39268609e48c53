package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsAllowMethods = "DELETE, GET, OPTIONS, PATCH, POST, PUT"
	corsAllowHeaders = "accept, authorization, content-type, user-agent, x-csrftoken, x-requested-with"
)

const corsMaxAge = "86400"

// CORS echoes allowed origins back with credentials enabled. Preflight
// requests are answered directly; unknown origins get no CORS headers.
func CORS(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		c.Writer.Header().Add("Vary", "Origin")

		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""
		_, ok := allowed[origin]

		if origin != "" && ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			if allowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if preflight {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
			}
		}

		if preflight {
			c.Header("Content-Length", "0")
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
