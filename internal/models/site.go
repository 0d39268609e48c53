package models

type Video struct {
	Base
	Title       string `gorm:"size:255;not null" json:"title" binding:"required,max=255"`
	URL         string `gorm:"size:512;not null" json:"url" binding:"required,url,max=512"`
	Description string `gorm:"type:text" json:"description"`
	Published   bool   `gorm:"index" json:"published"`
	SortOrder   int    `json:"sort_order"`
}

// Stat is a headline figure shown on the home page, e.g. "Pirivenas: 800+".
type Stat struct {
	Base
	Label     string `gorm:"size:150;not null" json:"label" binding:"required,max=150"`
	Value     string `gorm:"size:50;not null" json:"value" binding:"required,max=50"`
	Icon      string `gorm:"size:100" json:"icon" binding:"max=100"`
	SortOrder int    `json:"sort_order"`
}

type ExternalLink struct {
	Base
	Title     string `gorm:"size:255;not null" json:"title" binding:"required,max=255"`
	URL       string `gorm:"size:512;not null" json:"url" binding:"required,url,max=512"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `gorm:"index" json:"active"`
}

type HeroSlide struct {
	Base
	Title     string `gorm:"size:255" json:"title" binding:"max=255"`
	Subtitle  string `gorm:"size:255" json:"subtitle" binding:"max=255"`
	Image     string `gorm:"size:512;not null" json:"image" binding:"required,max=512"`
	LinkURL   string `gorm:"size:512" json:"link_url" binding:"omitempty,max=512"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `gorm:"index" json:"active"`
}
