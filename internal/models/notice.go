package models

import "time"

type Notice struct {
	Base
	Title      string     `gorm:"size:255;not null" json:"title" binding:"required,max=255"`
	Body       string     `gorm:"type:text" json:"body"`
	Attachment string     `gorm:"size:512" json:"attachment" binding:"max=512"`
	Important  bool       `json:"important"`
	Published  bool       `gorm:"index" json:"published"`
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at"`
}

// Expired reports whether the notice should be hidden at now.
func (n *Notice) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}
