package database

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/config"
	"github.com/piriven/piriven_backend/internal/logger"
	"github.com/piriven/piriven_backend/internal/models"
	"github.com/piriven/piriven_backend/internal/utils"
)

// ErrWeakPassword is returned when a superuser password fails validation.
var ErrWeakPassword = errors.New("password rejected by validators")

// SeedAdmin creates the bootstrap superuser when no superuser exists and a
// password is configured.
func SeedAdmin(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if cfg.Bootstrap.Password == "" {
		logger.Debug(ctx, "ADMIN_PASSWORD not set, skipping superuser seed")
		return nil
	}
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("is_superuser = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if _, err := CreateSuperuser(ctx, db, cfg, cfg.Bootstrap.Username, cfg.Bootstrap.Email, cfg.Bootstrap.Password); err != nil {
		return err
	}
	logger.Info(ctx, "seeded initial superuser", zap.String("username", cfg.Bootstrap.Username))
	return nil
}

// CreateSuperuser validates the password and stores an active staff superuser.
func CreateSuperuser(ctx context.Context, db *gorm.DB, cfg *config.Config, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if problems := utils.ValidatePassword(password, cfg.PasswordMinLength, username, email); len(problems) > 0 {
		return nil, errors.Join(append([]error{ErrWeakPassword}, toErrors(problems)...)...)
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username:    username,
		Email:       models.NormalizeEmail(email),
		Password:    hashed,
		IsStaff:     true,
		IsSuperuser: true,
		IsActive:    true,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func toErrors(msgs []string) []error {
	out := make([]error, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, errors.New(m))
	}
	return out
}

// SeedDefaults creates the categories the public site expects to exist.
func SeedDefaults(ctx context.Context, db *gorm.DB) error {
	downloads := []models.DownloadCategory{
		{Name: "Circulars", SortOrder: 1},
		{Name: "Forms", SortOrder: 2},
		{Name: "Syllabi", SortOrder: 3},
		{Name: "Reports", SortOrder: 4},
	}
	for i := range downloads {
		c := downloads[i]
		if err := db.WithContext(ctx).Where(models.DownloadCategory{Slug: utils.Slugify(c.Name)}).
			Attrs(models.DownloadCategory{Name: c.Name, SortOrder: c.SortOrder}).
			FirstOrCreate(&c).Error; err != nil {
			return err
		}
	}
	library := []string{"Buddhist Studies", "Languages", "General"}
	for _, name := range library {
		c := models.PublicationCategory{}
		if err := db.WithContext(ctx).Where(models.PublicationCategory{Slug: utils.Slugify(name)}).
			Attrs(models.PublicationCategory{Name: name}).
			FirstOrCreate(&c).Error; err != nil {
			return err
		}
	}
	logger.Debug(ctx, "default categories ensured")
	return nil
}
