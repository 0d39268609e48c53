package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/models"
)

const (
	// AccessCookie carries the access token for browser sessions.
	AccessCookie = "access_token"

	userKey       = "user"
	authMethodKey = "auth_method"

	Issuer = "piriven_backend"
)

type AuthConfig struct {
	Secret    string
	AccessTTL time.Duration
}

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Staff    bool   `json:"staff"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs a short-lived HS256 access token for user.
func IssueAccessToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Staff:    user.IsStaff || user.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAccessToken verifies an HS256 access token.
func ParseAccessToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(auth[7:])
	return tok, tok != ""
}

// Authentication resolves the current user from a bearer token or the access
// cookie. Requests without credentials continue anonymously, as do requests
// carrying a stale cookie. An invalid bearer token is rejected.
func Authentication(db *gorm.DB, cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, bearer := BearerToken(c.Request)
		method := "bearer"
		if !bearer {
			cookie, err := c.Cookie(AccessCookie)
			if err != nil || cookie == "" {
				c.Next()
				return
			}
			raw, method = cookie, "cookie"
		}

		user, err := resolveUser(c, db, cfg.Secret, raw)
		if err != nil {
			if bearer {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
				return
			}
			c.Next()
			return
		}

		c.Set(userKey, user)
		c.Set(authMethodKey, method)
		c.Next()
	}
}

func resolveUser(c *gin.Context, db *gorm.DB, secret, raw string) (*models.User, error) {
	claims, err := ParseAccessToken(secret, raw)
	if err != nil {
		return nil, errors.New("Given token not valid for any token type")
	}
	var user models.User
	if err := db.WithContext(c.Request.Context()).Preload("Groups").
		Where("id = ? AND is_active = ?", claims.UserID, true).First(&user).Error; err != nil {
		return nil, errors.New("User not found or inactive")
	}
	return &user, nil
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}

// RequireStaff admits active staff and superusers.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		if !user.CanAccessAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
			return
		}
		c.Next()
	}
}

func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		if !user.IsActive || !user.IsSuperuser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
			return
		}
		c.Next()
	}
}

// RequirePerm admits staff holding any of perms, e.g. "content.delete_news".
func RequirePerm(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		if !user.CanAccessAdmin() || !hasAny(user, perms) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
			return
		}
		c.Next()
	}
}

func hasAny(user *models.User, perms []string) bool {
	for _, p := range perms {
		if user.HasPerm(p) {
			return true
		}
	}
	return false
}
