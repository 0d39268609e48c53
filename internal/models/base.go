package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/utils"
)

// Base holds the columns shared by every table.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) GetBase() *Base { return b }

// Entity is implemented by every model through the embedded Base.
type Entity interface {
	GetBase() *Base
}

// uniqueSlug derives a slug from source that no other row of model uses.
// Collisions get a numeric suffix: "annual-report", "annual-report-2", ...
func uniqueSlug(tx *gorm.DB, model any, id uint, source string) (string, error) {
	base := utils.Slugify(source)
	if base == "" {
		base = "item"
	}
	db := tx.Session(&gorm.Session{NewDB: true})
	candidate := base
	for i := 2; ; i++ {
		var count int64
		q := db.Model(model).Where("slug = ?", candidate)
		if id != 0 {
			q = q.Where("id <> ?", id)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
