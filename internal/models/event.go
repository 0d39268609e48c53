package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/apperr"
)

type Event struct {
	Base
	Title       string     `gorm:"size:255;not null" json:"title" binding:"required,max=255"`
	Description string     `gorm:"type:text" json:"description"`
	Location    string     `gorm:"size:255" json:"location" binding:"max=255"`
	StartsAt    time.Time  `gorm:"index;not null" json:"starts_at" binding:"required"`
	EndsAt      *time.Time `json:"ends_at"`
	Published   bool       `gorm:"index" json:"published"`
}

func (e *Event) BeforeSave(tx *gorm.DB) error {
	if e.EndsAt != nil && e.EndsAt.Before(e.StartsAt) {
		return apperr.With(apperr.ErrBadRequest, "ends_at must not be before starts_at")
	}
	return nil
}
