package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/apperr"
	"github.com/piriven/piriven_backend/internal/logger"
	"github.com/piriven/piriven_backend/internal/middleware"
	"github.com/piriven/piriven_backend/internal/models"
	"github.com/piriven/piriven_backend/internal/utils"
)

const RefreshCookie = "refresh_token"

type AuthController struct {
	DB            *gorm.DB
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// SecureCookies marks auth cookies Secure; off in debug so plain http works.
	SecureCookies bool
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

var errBadCredentials = apperr.With(apperr.ErrUnauthorized, "No active account found with the given credentials")

func (a *AuthController) Login(c *gin.Context) {
	ctx := c.Request.Context()
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	var user models.User
	if err := a.DB.WithContext(ctx).Preload("Groups").Where("username = ?", req.Username).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperr.FromDB(err, "user"))
			return
		}
		respondError(c, errBadCredentials)
		return
	}
	if !user.IsActive || !utils.CheckPassword(user.Password, req.Password) {
		logger.Info(ctx, "failed login", zap.String("username", req.Username))
		respondError(c, errBadCredentials)
		return
	}

	access, refresh, err := a.issueTokens(a.DB.WithContext(ctx), user)
	if err != nil {
		respondError(c, err)
		return
	}
	now := time.Now().UTC()
	a.DB.WithContext(ctx).Model(&user).Update("last_login", &now)

	a.setSession(c, access.Token, refresh.Token)
	if _, err := middleware.SetCSRFCookie(c, a.SecureCookies); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":       access.Token,
		"token_type":         "Bearer",
		"expires_in":         int(a.AccessTTL.Seconds()),
		"refresh_token":      refresh.Token,
		"refresh_expires_in": int(a.RefreshTTL.Seconds()),
		"user":               userPayload(&user),
	})
}

func (a *AuthController) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, apperr.With(apperr.ErrUnauthorized, "Authentication credentials were not provided."))
		return
	}
	c.JSON(http.StatusOK, userPayload(user))
}

// CSRF issues the double-submit cookie browser clients echo in X-CSRFToken.
func (a *AuthController) CSRF(c *gin.Context) {
	tok, err := middleware.SetCSRFCookie(c, a.SecureCookies)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"csrfToken": tok})
}

type tokenPair struct {
	Token string
	JTI   string
}

func (a *AuthController) issueTokens(db *gorm.DB, user models.User) (access tokenPair, refresh tokenPair, err error) {
	now := time.Now().UTC()
	atStr, err := middleware.IssueAccessToken(a.AccessSecret, &user, a.AccessTTL)
	if err != nil {
		return
	}
	access = tokenPair{Token: atStr}

	jti := uuid.NewString()
	rcl := jwt.RegisteredClaims{
		Issuer:    middleware.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.RefreshTTL)),
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		ID:        jti,
	}
	rtStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, rcl).SignedString([]byte(a.RefreshSecret))
	if err != nil {
		return
	}
	refresh = tokenPair{Token: rtStr, JTI: jti}

	rec := models.RefreshToken{
		TokenID:   jti,
		UserIDRef: user.ID,
		TokenHash: utils.SHA256Hex(rtStr),
		ExpiresAt: now.Add(a.RefreshTTL),
	}
	if err = db.Create(&rec).Error; err != nil {
		err = apperr.FromDB(err, "refresh token")
	}
	return
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshToken reads the token from the body, falling back to the cookie.
func (a *AuthController) refreshToken(c *gin.Context) string {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	cookie, _ := c.Cookie(RefreshCookie)
	return cookie
}

var errBadRefresh = apperr.With(apperr.ErrUnauthorized, "Token is invalid or expired")

// Refresh exchanges a refresh token for a new pair and revokes the old one.
func (a *AuthController) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	raw := a.refreshToken(c)
	if raw == "" {
		respondError(c, apperr.Field("refresh_token", "This field is required."))
		return
	}
	tok, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(a.RefreshSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		respondError(c, errBadRefresh)
		return
	}

	var rec models.RefreshToken
	if err := a.DB.WithContext(ctx).Where("token_hash = ?", utils.SHA256Hex(raw)).First(&rec).Error; err != nil {
		respondError(c, errBadRefresh)
		return
	}
	if rec.RevokedAt != nil || time.Now().UTC().After(rec.ExpiresAt) {
		respondError(c, errBadRefresh)
		return
	}
	var user models.User
	if err := a.DB.WithContext(ctx).Where("id = ? AND is_active = ?", rec.UserIDRef, true).First(&user).Error; err != nil {
		respondError(c, errBadRefresh)
		return
	}

	// The revoke only matches an unrevoked row, so of two concurrent
	// refreshes with the same token exactly one commits.
	var access, newRefresh tokenPair
	err = a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if access, newRefresh, err = a.issueTokens(tx, user); err != nil {
			return err
		}
		now := time.Now().UTC()
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", rec.ID).
			Updates(map[string]interface{}{
				"revoked_at":           &now,
				"replaced_by_token_id": newRefresh.JTI,
			})
		if res.Error != nil {
			return apperr.FromDB(res.Error, "refresh token")
		}
		if res.RowsAffected != 1 {
			return errBadRefresh
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	a.setSession(c, access.Token, newRefresh.Token)
	c.JSON(http.StatusOK, gin.H{
		"access_token":       access.Token,
		"token_type":         "Bearer",
		"expires_in":         int(a.AccessTTL.Seconds()),
		"refresh_token":      newRefresh.Token,
		"refresh_expires_in": int(a.RefreshTTL.Seconds()),
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	All          bool   `json:"all"`
}

// Logout revokes the given refresh token, or every token of the current user
// with "all". Access tokens stay valid until they expire.
func (a *AuthController) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(RefreshCookie)
	}
	now := time.Now().UTC()
	if req.RefreshToken != "" {
		a.DB.WithContext(ctx).Model(&models.RefreshToken{}).
			Where("token_hash = ? AND revoked_at IS NULL", utils.SHA256Hex(req.RefreshToken)).
			Update("revoked_at", &now)
	}
	if req.All {
		if user, ok := middleware.CurrentUser(c); ok {
			RevokeRefreshTokens(a.DB.WithContext(ctx), user.ID)
		}
	}
	a.clearSession(c)
	c.JSON(http.StatusOK, gin.H{"detail": "logged out"})
}

// RevokeRefreshTokens revokes every live refresh token of a user.
func RevokeRefreshTokens(db *gorm.DB, userID uint) {
	now := time.Now().UTC()
	db.Model(&models.RefreshToken{}).Where("user_id_ref = ? AND revoked_at IS NULL", userID).Update("revoked_at", &now)
}

func (a *AuthController) setSession(c *gin.Context, access, refresh string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookie, access, int(a.AccessTTL.Seconds()), "/", "", a.SecureCookies, true)
	c.SetCookie(RefreshCookie, refresh, int(a.RefreshTTL.Seconds()), "/api/v1/auth", "", a.SecureCookies, true)
}

func (a *AuthController) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookie, "", -1, "/", "", a.SecureCookies, true)
	c.SetCookie(RefreshCookie, "", -1, "/api/v1/auth", "", a.SecureCookies, true)
}

func userPayload(u *models.User) gin.H {
	groups := make([]string, 0, len(u.Groups))
	perms := []string{}
	seen := map[string]bool{}
	for _, g := range u.Groups {
		groups = append(groups, g.Name)
		for _, p := range g.Permissions {
			if !seen[p] {
				seen[p] = true
				perms = append(perms, p)
			}
		}
	}
	return gin.H{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"is_staff":     u.IsStaff,
		"is_superuser": u.IsSuperuser,
		"is_active":    u.IsActive,
		"last_login":   u.LastLogin,
		"groups":       groups,
		"permissions":  perms,
	}
}
