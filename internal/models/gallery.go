package models

import (
	"time"

	"gorm.io/gorm"
)

type Album struct {
	Base
	Title       string         `gorm:"size:255;not null" json:"title" binding:"required,max=255"`
	Slug        string         `gorm:"size:255;uniqueIndex" json:"slug" binding:"max=255"`
	Description string         `gorm:"type:text" json:"description"`
	CoverImage  string         `gorm:"size:512" json:"cover_image" binding:"max=512"`
	EventDate   *time.Time     `json:"event_date"`
	Published   bool           `gorm:"index" json:"published"`
	Images      []GalleryImage `gorm:"foreignKey:AlbumID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

func (a *Album) BeforeSave(tx *gorm.DB) error {
	if a.Slug == "" {
		slug, err := uniqueSlug(tx, &Album{}, a.ID, a.Title)
		if err != nil {
			return err
		}
		a.Slug = slug
	}
	return nil
}

type GalleryImage struct {
	Base
	AlbumID   uint   `gorm:"index;not null" json:"album" binding:"required"`
	Image     string `gorm:"size:512;not null" json:"image" binding:"required,max=512"`
	Caption   string `gorm:"size:255" json:"caption" binding:"max=255"`
	SortOrder int    `gorm:"index" json:"sort_order"`
}
