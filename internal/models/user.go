package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	Base
	Username    string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"size:254;index" json:"email"`
	FirstName   string     `gorm:"size:150" json:"first_name"`
	LastName    string     `gorm:"size:150" json:"last_name"`
	Password    string     `gorm:"size:128" json:"-"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	IsActive    bool       `json:"is_active"`
	LastLogin   *time.Time `json:"last_login"`
	Groups      []Group    `gorm:"many2many:user_groups;" json:"groups,omitempty"`
}

// Group bundles permission codenames such as "content.change_news".
type Group struct {
	Base
	Name        string   `gorm:"size:150;uniqueIndex;not null" json:"name" binding:"required,max=150"`
	Permissions []string `gorm:"serializer:json" json:"permissions"`
}

// BeforeDelete drops memberships so the join table never points at a
// missing group.
func (g *Group) BeforeDelete(tx *gorm.DB) error {
	return tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM user_groups WHERE group_id = ?", g.ID).Error
}

// CanAccessAdmin reports whether the user may use the admin API at all.
func (u *User) CanAccessAdmin() bool {
	return u.IsActive && (u.IsStaff || u.IsSuperuser)
}

// HasPerm reports whether the user holds perm through one of its groups.
// Active superusers hold every permission. Groups must be preloaded.
func (u *User) HasPerm(perm string) bool {
	if !u.IsActive {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	for _, g := range u.Groups {
		for _, p := range g.Permissions {
			if strings.EqualFold(p, perm) {
				return true
			}
		}
	}
	return false
}
