package models

import (
	"time"

	"gorm.io/gorm"
)

type News struct {
	Base
	Title       string     `gorm:"size:255;not null" json:"title" binding:"required,max=255"`
	Slug        string     `gorm:"size:255;uniqueIndex" json:"slug" binding:"max=255"`
	Summary     string     `gorm:"type:text" json:"summary"`
	Body        string     `gorm:"type:text" json:"body"`
	CoverImage  string     `gorm:"size:512" json:"cover_image" binding:"max=512"`
	Published   bool       `gorm:"index" json:"published"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	Featured    bool       `json:"featured"`
}

func (n *News) BeforeSave(tx *gorm.DB) error {
	if n.Slug == "" {
		slug, err := uniqueSlug(tx, &News{}, n.ID, n.Title)
		if err != nil {
			return err
		}
		n.Slug = slug
	}
	stampPublished(tx, n.Published, &n.PublishedAt)
	return nil
}

// stampPublished records the first publication time.
func stampPublished(tx *gorm.DB, published bool, at **time.Time) {
	if published && *at == nil {
		now := tx.NowFunc()
		*at = &now
	}
}
