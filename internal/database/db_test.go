package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piriven/piriven_backend/internal/apperr"
	"github.com/piriven/piriven_backend/internal/config"
	"github.com/piriven/piriven_backend/internal/database"
	"github.com/piriven/piriven_backend/internal/models"
	"github.com/piriven/piriven_backend/internal/utils"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("PIRIVEN_BASE_DIR", t.TempDir())
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestConnectSqliteFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Name = filepath.Join(cfg.BaseDir, "data", "db.sqlite3")

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.Migrate(db))
	require.FileExists(t, cfg.Database.Name)
	require.True(t, db.Migrator().HasTable(&models.News{}))
	require.True(t, db.Migrator().HasTable("library_publication_entries"))
}

func TestConnectUnknownEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Engine = "mssql"
	_, err := database.Connect(cfg)
	require.Error(t, err)
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	require.NoError(t, database.SeedAdmin(ctx, db, cfg), "no password configured is a no-op")
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)

	cfg.Bootstrap.Password = "Vesak-Lantern-2024"
	require.NoError(t, database.SeedAdmin(ctx, db, cfg))
	require.NoError(t, database.SeedAdmin(ctx, db, cfg), "second run keeps the existing superuser")
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var admin models.User
	require.NoError(t, db.First(&admin).Error)
	require.True(t, admin.IsSuperuser)
	require.True(t, admin.CanAccessAdmin())
	require.True(t, utils.CheckPassword(admin.Password, "Vesak-Lantern-2024"))
}

func TestCreateSuperuserRejectsWeakPassword(t *testing.T) {
	cfg := testConfig(t)
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	_, err = database.CreateSuperuser(context.Background(), db, cfg, "admin", "admin@example.com", "12345")
	require.ErrorIs(t, err, database.ErrWeakPassword)
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	require.NoError(t, database.SeedDefaults(ctx, db))
	require.NoError(t, database.SeedDefaults(ctx, db))

	var count int64
	require.NoError(t, db.Model(&models.DownloadCategory{}).Count(&count).Error)
	require.EqualValues(t, 4, count)
	require.NoError(t, db.Model(&models.PublicationCategory{}).Count(&count).Error)
	require.EqualValues(t, 3, count)
}

func TestSlugsAreUnique(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	a := models.News{Title: "Exam Results"}
	b := models.News{Title: "Exam results!"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)
	require.Equal(t, "exam-results", a.Slug)
	require.Equal(t, "exam-results-2", b.Slug)

	a.Summary = "updated"
	require.NoError(t, db.Save(&a).Error)
	require.Equal(t, "exam-results", a.Slug, "saving keeps the slug")

	dup := models.News{Title: "Other", Slug: "exam-results"}
	require.Error(t, db.Create(&dup).Error)
}

func TestPublishedAtIsStamped(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	n := models.News{Title: "Draft"}
	require.NoError(t, db.Create(&n).Error)
	require.Nil(t, n.PublishedAt)

	n.Published = true
	require.NoError(t, db.Save(&n).Error)
	require.NotNil(t, n.PublishedAt)
	require.Equal(t, time.UTC, n.PublishedAt.Location())
}

func TestEventRejectsEndBeforeStart(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	start := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	err = db.Create(&models.Event{Title: "Vesak", StartsAt: start, EndsAt: &end}).Error
	require.ErrorIs(t, err, apperr.ErrBadRequest)

	end = start.Add(time.Hour)
	require.NoError(t, db.Create(&models.Event{Title: "Vesak", StartsAt: start, EndsAt: &end}).Error)
}

func TestNewsletterEmailNormalized(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	s := models.NewsletterSubscription{Email: "  Reader@Example.COM "}
	require.NoError(t, db.Create(&s).Error)
	require.Equal(t, "reader@example.com", s.Email)

	require.Error(t, db.Create(&models.NewsletterSubscription{Email: "READER@example.com"}).Error)
}

func TestGalleryCascade(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	album := models.Album{Title: "Vesak 2024"}
	require.NoError(t, db.Create(&album).Error)
	require.NoError(t, db.Create(&models.GalleryImage{AlbumID: album.ID, Image: "/media/a.jpg"}).Error)

	require.NoError(t, db.Delete(&album).Error)
	var count int64
	require.NoError(t, db.Model(&models.GalleryImage{}).Count(&count).Error)
	require.Zero(t, count)
}
