package models

import "time"

type RefreshToken struct {
	ID                uint      `gorm:"primaryKey"`
	TokenID           string    `gorm:"size:64;index"` // jti
	UserIDRef         uint      `gorm:"index"`
	TokenHash         string    `gorm:"size:64;uniqueIndex"`
	ExpiresAt         time.Time `gorm:"index"`
	RevokedAt         *time.Time
	ReplacedByTokenID *string
	CreatedAt         time.Time
}
