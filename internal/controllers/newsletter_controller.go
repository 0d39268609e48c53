package controllers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/apperr"
	"github.com/piriven/piriven_backend/internal/logger"
	"github.com/piriven/piriven_backend/internal/models"
	"github.com/piriven/piriven_backend/internal/ws"
)

const newsletterLabel = "content.NewsletterSubscription"

type NewsletterController struct {
	*Deps
}

type newsletterRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

// Subscribe is idempotent. Returning subscribers are reactivated.
func (n *NewsletterController) Subscribe(c *gin.Context) {
	ctx := c.Request.Context()
	var req newsletterRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	email := models.NormalizeEmail(req.Email)

	var sub models.NewsletterSubscription
	err := n.DB.WithContext(ctx).Where("email = ?", email).First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = models.NewsletterSubscription{Email: email}
		if err := n.DB.WithContext(ctx).Create(&sub).Error; err != nil {
			respondError(c, apperr.FromDB(err, "subscription"))
			return
		}
		logger.Info(ctx, "newsletter subscription created", zap.Uint("id", sub.ID))
		n.Hubs.Broadcast(ws.Event{Type: ws.Created, Model: newsletterLabel, ID: sub.ID})
		c.JSON(http.StatusCreated, gin.H{"email": sub.Email, "subscribed": true})
		return
	case err != nil:
		respondError(c, apperr.FromDB(err, "subscription"))
		return
	}

	if sub.UnsubscribedAt != nil {
		if err := n.DB.WithContext(ctx).Model(&sub).Update("unsubscribed_at", nil).Error; err != nil {
			respondError(c, apperr.FromDB(err, "subscription"))
			return
		}
		n.Hubs.Broadcast(ws.Event{Type: ws.Updated, Model: newsletterLabel, ID: sub.ID})
	}
	c.JSON(http.StatusOK, gin.H{"email": sub.Email, "subscribed": true})
}

// Unsubscribe always answers 200 so the endpoint does not reveal which
// addresses are subscribed.
func (n *NewsletterController) Unsubscribe(c *gin.Context) {
	ctx := c.Request.Context()
	var req newsletterRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	email := models.NormalizeEmail(req.Email)

	now := n.now()
	res := n.DB.WithContext(ctx).Model(&models.NewsletterSubscription{}).
		Where("email = ? AND unsubscribed_at IS NULL", email).
		Update("unsubscribed_at", &now)
	if res.Error != nil {
		respondError(c, apperr.FromDB(res.Error, "subscription"))
		return
	}
	if res.RowsAffected > 0 {
		var sub models.NewsletterSubscription
		if err := n.DB.WithContext(ctx).Select("id").Where("email = ?", email).First(&sub).Error; err == nil {
			n.Hubs.Broadcast(ws.Event{Type: ws.Updated, Model: newsletterLabel, ID: sub.ID})
		}
	}
	c.JSON(http.StatusOK, gin.H{"email": email, "subscribed": false})
}

// Export streams subscriptions as CSV. ?active=true limits the export to
// current subscribers.
func (n *NewsletterController) Export(c *gin.Context) {
	ctx := c.Request.Context()
	q := n.DB.WithContext(ctx).Model(&models.NewsletterSubscription{}).Order("email")
	if raw := c.Query("active"); raw != "" {
		next, err := subscribed(q, raw, n.now())
		if err != nil {
			respondError(c, apperr.Field("active", apperr.Detail(err)))
			return
		}
		q = next
	}
	var subs []models.NewsletterSubscription
	if err := q.Find(&subs).Error; err != nil {
		respondError(c, apperr.FromDB(err, "subscription"))
		return
	}

	filename := fmt.Sprintf("newsletter-subscriptions-%s.csv", n.now().Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"email", "confirmed", "subscribed_at", "unsubscribed_at"})
	for _, s := range subs {
		unsubscribed := ""
		if s.UnsubscribedAt != nil {
			unsubscribed = s.UnsubscribedAt.UTC().Format(time.RFC3339)
		}
		_ = w.Write([]string{
			s.Email,
			fmt.Sprintf("%t", s.Confirmed),
			s.CreatedAt.UTC().Format(time.RFC3339),
			unsubscribed,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logger.Error(ctx, "newsletter export failed", zap.Error(err))
	}
}
