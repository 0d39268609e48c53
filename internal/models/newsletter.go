package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type NewsletterSubscription struct {
	Base
	Email          string     `gorm:"size:254;uniqueIndex;not null" json:"email" binding:"required,email,max=254"`
	Confirmed      bool       `json:"confirmed"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at"`
}

func (s *NewsletterSubscription) BeforeSave(tx *gorm.DB) error {
	s.Email = NormalizeEmail(s.Email)
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
