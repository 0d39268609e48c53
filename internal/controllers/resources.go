package controllers

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/apperr"
	"github.com/piriven/piriven_backend/internal/models"
)

func published(q *gorm.DB, _ time.Time) *gorm.DB { return q.Where("published = ?", true) }
func active(q *gorm.DB, _ time.Time) *gorm.DB    { return q.Where("active = ?", true) }
func everything(q *gorm.DB, _ time.Time) *gorm.DB { return q }

func withImages(q *gorm.DB) *gorm.DB {
	return q.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order").Order("id")
	})
}

// exists reports a missing referenced row as a field error.
func exists(db *gorm.DB, model any, field string, id uint) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperr.FromDB(err, field)
	}
	if count == 0 {
		return apperr.Field(field, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
	}
	return nil
}

var upcoming Filter = func(q *gorm.DB, raw string, now time.Time) (*gorm.DB, error) {
	v, ok := parseBool(raw)
	if !ok {
		return nil, errInvalidChoice
	}
	if v {
		return q.Where("starts_at >= ?", now), nil
	}
	return q.Where("starts_at < ?", now), nil
}

var subscribed Filter = func(q *gorm.DB, raw string, _ time.Time) (*gorm.DB, error) {
	v, ok := parseBool(raw)
	if !ok {
		return nil, errInvalidChoice
	}
	if v {
		return q.Where("unsubscribed_at IS NULL"), nil
	}
	return q.Where("unsubscribed_at IS NOT NULL"), nil
}

var publishedFilter = map[string]Filter{"published": BoolFilter("published")}

// Resources builds the handler for every model managed through the API, in
// admin menu order.
func Resources(d *Deps) []Handler {
	return []Handler{
		NewResource[models.News](d, Schema[models.News]{
			Label:           "content.News",
			Name:            "news",
			Path:            "news",
			Search:          []string{"title", "summary", "body"},
			Ordering:        []string{"published_at", "created_at", "title"},
			DefaultOrdering: "-published_at,-created_at",
			Filters:         map[string]Filter{"featured": BoolFilter("featured")},
			AdminFilters:    publishedFilter,
			Public:          published,
			SlugLookup:      true,
		}),
		NewResource[models.Album](d, Schema[models.Album]{
			Label:           "content.Album",
			Name:            "albums",
			Path:            "albums",
			Search:          []string{"title", "description"},
			Ordering:        []string{"event_date", "created_at", "title"},
			DefaultOrdering: "-event_date,-created_at",
			AdminFilters:    publishedFilter,
			Public:          published,
			Preload:         withImages,
			SlugLookup:      true,
		}),
		NewResource[models.GalleryImage](d, Schema[models.GalleryImage]{
			Label:           "content.GalleryImage",
			Name:            "gallery images",
			Path:            "gallery-images",
			Search:          []string{"caption"},
			Ordering:        []string{"sort_order", "created_at"},
			DefaultOrdering: "sort_order,id",
			Filters:         map[string]Filter{"album": IntFilter("album_id")},
			Public: func(q *gorm.DB, _ time.Time) *gorm.DB {
				return q.Where("album_id IN (?)", q.Session(&gorm.Session{NewDB: true}).
					Model(&models.Album{}).Select("id").Where("published = ?", true))
			},
			Validate: func(ctx context.Context, db *gorm.DB, img *models.GalleryImage) error {
				return exists(db, &models.Album{}, "album", img.AlbumID)
			},
		}),
		NewResource[models.Notice](d, Schema[models.Notice]{
			Label:           "content.Notice",
			Name:            "notices",
			Path:            "notices",
			Search:          []string{"title", "body"},
			Ordering:        []string{"created_at", "expires_at", "title"},
			DefaultOrdering: "-important,-created_at",
			Filters:         map[string]Filter{"important": BoolFilter("important")},
			AdminFilters:    publishedFilter,
			Public: func(q *gorm.DB, now time.Time) *gorm.DB {
				return q.Where("published = ?", true).Where("expires_at IS NULL OR expires_at > ?", now)
			},
		}),
		NewResource[models.DownloadCategory](d, Schema[models.DownloadCategory]{
			Label:           "content.DownloadCategory",
			Name:            "download categories",
			Path:            "download-categories",
			Search:          []string{"name"},
			Ordering:        []string{"sort_order", "name"},
			DefaultOrdering: "sort_order,name",
			Public:          everything,
			SlugLookup:      true,
		}),
		NewResource[models.Publication](d, Schema[models.Publication]{
			Label:           "content.Publication",
			Name:            "publications",
			Path:            "publications",
			Search:          []string{"title", "description"},
			Ordering:        []string{"published_at", "created_at", "title"},
			DefaultOrdering: "-published_at,-created_at",
			Filters:         map[string]Filter{"category": IntFilter("category_id")},
			AdminFilters:    publishedFilter,
			Public:          published,
			Validate: func(ctx context.Context, db *gorm.DB, p *models.Publication) error {
				if p.CategoryID == nil {
					return nil
				}
				return exists(db, &models.DownloadCategory{}, "category", *p.CategoryID)
			},
		}),
		NewResource[models.Video](d, Schema[models.Video]{
			Label:           "content.Video",
			Name:            "videos",
			Path:            "videos",
			Search:          []string{"title", "description"},
			Ordering:        []string{"sort_order", "created_at", "title"},
			DefaultOrdering: "sort_order,-created_at",
			AdminFilters:    publishedFilter,
			Public:          published,
		}),
		NewResource[models.Event](d, Schema[models.Event]{
			Label:           "content.Event",
			Name:            "events",
			Path:            "events",
			Search:          []string{"title", "description", "location"},
			Ordering:        []string{"starts_at", "ends_at", "title"},
			DefaultOrdering: "starts_at",
			Filters:         map[string]Filter{"upcoming": upcoming},
			AdminFilters:    publishedFilter,
			Public:          published,
			Validate: func(ctx context.Context, db *gorm.DB, e *models.Event) error {
				if e.StartsAt.IsZero() {
					return apperr.Field("starts_at", "This field is required.")
				}
				if e.EndsAt != nil && e.EndsAt.Before(e.StartsAt) {
					return apperr.Field("ends_at", "ends_at must not be before starts_at")
				}
				return nil
			},
		}),
		NewResource[models.Stat](d, Schema[models.Stat]{
			Label:           "content.Stat",
			Name:            "stats",
			Path:            "stats",
			Search:          []string{"label"},
			Ordering:        []string{"sort_order", "label"},
			DefaultOrdering: "sort_order",
			Public:          everything,
		}),
		NewResource[models.ExternalLink](d, Schema[models.ExternalLink]{
			Label:           "content.ExternalLink",
			Name:            "external links",
			Path:            "external-links",
			Search:          []string{"title", "url"},
			Ordering:        []string{"sort_order", "title"},
			DefaultOrdering: "sort_order,title",
			AdminFilters:    map[string]Filter{"active": BoolFilter("active")},
			Public:          active,
			New:             func() *models.ExternalLink { return &models.ExternalLink{Active: true} },
		}),
		NewResource[models.HeroSlide](d, Schema[models.HeroSlide]{
			Label:           "content.HeroSlide",
			Name:            "hero slides",
			Path:            "hero-slides",
			Search:          []string{"title", "subtitle"},
			Ordering:        []string{"sort_order", "created_at"},
			DefaultOrdering: "sort_order",
			AdminFilters:    map[string]Filter{"active": BoolFilter("active")},
			Public:          active,
			New:             func() *models.HeroSlide { return &models.HeroSlide{Active: true} },
		}),
		NewResource[models.NewsletterSubscription](d, Schema[models.NewsletterSubscription]{
			Label:           "content.NewsletterSubscription",
			Name:            "newsletter subscriptions",
			Path:            "newsletter",
			Search:          []string{"email"},
			Ordering:        []string{"email", "created_at", "unsubscribed_at"},
			DefaultOrdering: "-created_at",
			AdminFilters: map[string]Filter{
				"confirmed": BoolFilter("confirmed"),
				"active":    subscribed,
			},
			Validate: func(ctx context.Context, db *gorm.DB, s *models.NewsletterSubscription) error {
				var count int64
				err := db.Model(&models.NewsletterSubscription{}).
					Where("email = ? AND id <> ?", models.NormalizeEmail(s.Email), s.ID).Count(&count).Error
				if err != nil {
					return apperr.FromDB(err, "subscription")
				}
				if count > 0 {
					return apperr.Field("email", "newsletter subscription with this email already exists.")
				}
				return nil
			},
		}),
		NewResource[models.PublicationEntry](d, Schema[models.PublicationEntry]{
			Label:           "library.PublicationEntry",
			Name:            "library entries",
			Path:            "library/entries",
			Search:          []string{"title", "author", "isbn"},
			Ordering:        []string{"year", "title", "created_at"},
			DefaultOrdering: "-year,title",
			Filters: map[string]Filter{
				"category": IntFilter("category_id"),
				"year":     IntFilter("year"),
			},
			AdminFilters: publishedFilter,
			Public:       published,
			Validate: func(ctx context.Context, db *gorm.DB, e *models.PublicationEntry) error {
				if e.CategoryID == nil {
					return nil
				}
				return exists(db, &models.PublicationCategory{}, "category", *e.CategoryID)
			},
		}),
		NewResource[models.PublicationCategory](d, Schema[models.PublicationCategory]{
			Label:           "library.PublicationCategory",
			Name:            "library categories",
			Path:            "library/categories",
			Search:          []string{"name", "description"},
			Ordering:        []string{"name", "created_at"},
			DefaultOrdering: "name",
			Public:          everything,
			SlugLookup:      true,
		}),
	}
}

// GroupResource manages permission groups. Members are told to refresh their
// permissions whenever a group changes.
func GroupResource(d *Deps, known []string) *Resource[models.Group, *models.Group] {
	return NewResource[models.Group](d, Schema[models.Group]{
		Label:           "auth.Group",
		Name:            "groups",
		Path:            "groups",
		Search:          []string{"name"},
		Ordering:        []string{"name", "created_at"},
		DefaultOrdering: "name",
		Validate: func(ctx context.Context, db *gorm.DB, g *models.Group) error {
			fe := apperr.FieldErrors{}
			for _, p := range g.Permissions {
				if !contains(known, p) {
					fe.Add("permissions", fmt.Sprintf("Unknown permission %q.", p))
				}
			}
			if g.Permissions == nil {
				g.Permissions = []string{}
			}
			var count int64
			if err := db.Model(&models.Group{}).Where("name = ? AND id <> ?", g.Name, g.ID).Count(&count).Error; err != nil {
				return apperr.FromDB(err, "group")
			}
			if count > 0 {
				fe.Add("name", "group with this name already exists.")
			}
			if len(fe) > 0 {
				return fe
			}
			return nil
		},
		Audience: func(ctx context.Context, db *gorm.DB, g *models.Group) ([]uint, error) {
			var members []uint
			err := db.Table("user_groups").Where("group_id = ?", g.ID).Pluck("user_id", &members).Error
			return members, err
		},
	})
}

// Permissions lists every codename that can be granted for labels.
func Permissions(labels []string) []string {
	out := make([]string, 0, len(labels)*4)
	for _, label := range labels {
		for _, action := range []string{"add", "change", "delete", "view"} {
			out = append(out, models.Perm(label, action))
		}
	}
	return out
}

// Labels returns the model labels of handlers plus the auth models.
func Labels(handlers []Handler) []string {
	out := make([]string, 0, len(handlers)+2)
	for _, h := range handlers {
		out = append(out, h.Label())
	}
	return append(out, "auth.User", "auth.Group")
}
