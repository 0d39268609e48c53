package models

import "strings"

// All returns every model in migration order.
func All() []any {
	return []any{
		&Group{},
		&User{},
		&RefreshToken{},
		&News{},
		&Album{},
		&GalleryImage{},
		&Notice{},
		&DownloadCategory{},
		&Publication{},
		&Video{},
		&Event{},
		&Stat{},
		&ExternalLink{},
		&HeroSlide{},
		&NewsletterSubscription{},
		&PublicationCategory{},
		&PublicationEntry{},
	}
}

// Perm builds a permission codename from a model label and an action:
// Perm("content.News", "change") is "content.change_news".
func Perm(label, action string) string {
	app, model, ok := strings.Cut(label, ".")
	if !ok {
		return action + "_" + strings.ToLower(label)
	}
	return app + "." + action + "_" + strings.ToLower(model)
}
