package models

import (
	"time"

	"gorm.io/gorm"
)

// DownloadCategory groups downloadable publications.
type DownloadCategory struct {
	Base
	Name      string `gorm:"size:150;not null" json:"name" binding:"required,max=150"`
	Slug      string `gorm:"size:150;uniqueIndex" json:"slug" binding:"max=150"`
	SortOrder int    `json:"sort_order"`
}

func (d *DownloadCategory) BeforeSave(tx *gorm.DB) error {
	if d.Slug == "" {
		slug, err := uniqueSlug(tx, &DownloadCategory{}, d.ID, d.Name)
		if err != nil {
			return err
		}
		d.Slug = slug
	}
	return nil
}

type Publication struct {
	Base
	Title       string            `gorm:"size:255;not null" json:"title" binding:"required,max=255"`
	Description string            `gorm:"type:text" json:"description"`
	File        string            `gorm:"size:512;not null" json:"file" binding:"required,max=512"`
	CategoryID  *uint             `gorm:"index" json:"category"`
	Category    *DownloadCategory `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Published   bool              `gorm:"index" json:"published"`
	PublishedAt *time.Time        `gorm:"index" json:"published_at"`
}

func (p *Publication) BeforeSave(tx *gorm.DB) error {
	stampPublished(tx, p.Published, &p.PublishedAt)
	return nil
}
