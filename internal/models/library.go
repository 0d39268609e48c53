package models

import "gorm.io/gorm"

type PublicationCategory struct {
	Base
	Name        string `gorm:"size:150;not null" json:"name" binding:"required,max=150"`
	Slug        string `gorm:"size:150;uniqueIndex" json:"slug" binding:"max=150"`
	Description string `gorm:"type:text" json:"description"`
}

func (PublicationCategory) TableName() string { return "library_publication_categories" }

func (p *PublicationCategory) BeforeSave(tx *gorm.DB) error {
	if p.Slug == "" {
		slug, err := uniqueSlug(tx, &PublicationCategory{}, p.ID, p.Name)
		if err != nil {
			return err
		}
		p.Slug = slug
	}
	return nil
}

// PublicationEntry is a catalogued book or paper in the library.
type PublicationEntry struct {
	Base
	Title      string               `gorm:"size:255;not null" json:"title" binding:"required,max=255"`
	Author     string               `gorm:"size:255" json:"author" binding:"max=255"`
	Year       int                  `json:"year" binding:"omitempty,min=1000,max=9999"`
	ISBN       string               `gorm:"size:20;index" json:"isbn" binding:"max=20"`
	File       string               `gorm:"size:512" json:"file" binding:"max=512"`
	CoverImage string               `gorm:"size:512" json:"cover_image" binding:"max=512"`
	CategoryID *uint                `gorm:"index" json:"category"`
	Category   *PublicationCategory `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Published  bool                 `gorm:"index" json:"published"`
}

func (PublicationEntry) TableName() string { return "library_publication_entries" }
