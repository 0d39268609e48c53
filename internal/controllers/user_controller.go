package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/piriven/piriven_backend/internal/apperr"
	"github.com/piriven/piriven_backend/internal/middleware"
	"github.com/piriven/piriven_backend/internal/models"
	"github.com/piriven/piriven_backend/internal/utils"
	"github.com/piriven/piriven_backend/internal/ws"
)

const userLabel = "auth.User"

// UserController manages admin accounts. Listing and detail reuse the generic
// resource; writes handle passwords, group membership and session revocation.
type UserController struct {
	*Deps
	PasswordMinLength int
	list              *Resource[models.User, *models.User]
}

func NewUserController(d *Deps, minLength int) *UserController {
	return &UserController{
		Deps:              d,
		PasswordMinLength: minLength,
		list: NewResource[models.User](d, Schema[models.User]{
			Label:           userLabel,
			Name:            "users",
			Path:            "users",
			Search:          []string{"username", "email", "first_name", "last_name"},
			Ordering:        []string{"username", "email", "created_at", "last_login"},
			DefaultOrdering: "username",
			AdminFilters: map[string]Filter{
				"is_staff":     BoolFilter("is_staff"),
				"is_superuser": BoolFilter("is_superuser"),
				"is_active":    BoolFilter("is_active"),
			},
			Preload: func(q *gorm.DB) *gorm.DB { return q.Preload("Groups") },
		}),
	}
}

func (u *UserController) List(c *gin.Context)     { u.list.AdminList(c) }
func (u *UserController) Retrieve(c *gin.Context) { u.list.AdminRetrieve(c) }

type createUserRequest struct {
	Username    string       `json:"username" binding:"required,max=150"`
	Email       string       `json:"email" binding:"omitempty,email,max=254"`
	FirstName   string       `json:"first_name" binding:"max=150"`
	LastName    string       `json:"last_name" binding:"max=150"`
	Password    string       `json:"password" binding:"required"`
	IsStaff     *bool        `json:"is_staff"`
	IsSuperuser bool         `json:"is_superuser"`
	IsActive    *bool        `json:"is_active"`
	Groups      []FlexibleID `json:"groups"`
}

type updateUserRequest struct {
	Username    *string       `json:"username" binding:"omitempty,min=1,max=150"`
	Email       *string       `json:"email" binding:"omitempty,max=254"`
	FirstName   *string       `json:"first_name" binding:"omitempty,max=150"`
	LastName    *string       `json:"last_name" binding:"omitempty,max=150"`
	Password    *string       `json:"password"`
	IsStaff     *bool         `json:"is_staff"`
	IsSuperuser *bool         `json:"is_superuser"`
	IsActive    *bool         `json:"is_active"`
	Groups      *[]FlexibleID `json:"groups"`
}

func (u *UserController) Create(c *gin.Context) {
	ctx := c.Request.Context()
	var req createUserRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, idFieldError(err, "groups"))
		return
	}
	user := models.User{
		Username:    strings.TrimSpace(req.Username),
		Email:       models.NormalizeEmail(req.Email),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		IsStaff:     req.IsStaff == nil || *req.IsStaff,
		IsSuperuser: req.IsSuperuser,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}

	fe := apperr.FieldErrors{}
	if err := u.checkUsername(ctx, user.Username, 0, fe); err != nil {
		respondError(c, err)
		return
	}
	u.checkPassword(&user, req.Password, fe)
	groups, err := u.loadGroups(ctx, ids(req.Groups), fe)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(fe) > 0 {
		respondError(c, fe)
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.ErrInternal, err, ""))
		return
	}
	user.Password = hashed
	user.Groups = groups
	if err := u.DB.WithContext(ctx).Omit("Groups.*").Create(&user).Error; err != nil {
		respondError(c, apperr.FromDB(err, "user"))
		return
	}
	u.Hubs.Broadcast(ws.Event{Type: ws.Created, Model: userLabel, ID: user.ID})
	c.JSON(http.StatusCreated, user)
}

func (u *UserController) Update(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req updateUserRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, idFieldError(err, "groups"))
		return
	}
	user, err := u.load(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	actor, _ := middleware.CurrentUser(c)

	fe := apperr.FieldErrors{}
	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
		if err := u.checkUsername(ctx, user.Username, user.ID, fe); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.Email != nil {
		user.Email = models.NormalizeEmail(*req.Email)
		if user.Email != "" && !validEmail(user.Email) {
			fe.Add("email", "Enter a valid email address.")
		}
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.IsStaff != nil {
		user.IsStaff = *req.IsStaff
	}
	if req.IsSuperuser != nil {
		user.IsSuperuser = *req.IsSuperuser
	}
	wasActive := user.IsActive
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if actor != nil && actor.ID == user.ID && (!user.IsActive || !user.IsSuperuser) {
		fe.Add("non_field_errors", "You cannot remove your own superuser or active status.")
	}
	if req.Password != nil {
		u.checkPassword(user, *req.Password, fe)
	}
	var groups []models.Group
	if req.Groups != nil {
		if groups, err = u.loadGroups(ctx, ids(*req.Groups), fe); err != nil {
			respondError(c, err)
			return
		}
	}
	if len(fe) > 0 {
		respondError(c, fe)
		return
	}

	revoke := wasActive && !user.IsActive
	if req.Password != nil {
		hashed, err := utils.HashPassword(*req.Password)
		if err != nil {
			respondError(c, apperr.Wrap(apperr.ErrInternal, err, ""))
			return
		}
		user.Password = hashed
		revoke = true
	}

	err = u.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(user).Error; err != nil {
			return err
		}
		if req.Groups != nil {
			if err := tx.Model(user).Association("Groups").Replace(groups); err != nil {
				return err
			}
			user.Groups = groups
		}
		if revoke {
			RevokeRefreshTokens(tx, user.ID)
		}
		return nil
	})
	if err != nil {
		respondError(c, apperr.FromDB(err, "user"))
		return
	}

	switch {
	case revoke:
		u.Hubs.Notify(user.ID, ws.SessionMessage{Type: ws.SessionRevoked})
	case req.Groups != nil || req.IsStaff != nil || req.IsSuperuser != nil:
		u.Hubs.Notify(user.ID, ws.SessionMessage{Type: ws.PermissionsChanged})
	}
	u.Hubs.Broadcast(ws.Event{Type: ws.Updated, Model: userLabel, ID: user.ID})
	c.JSON(http.StatusOK, user)
}

func (u *UserController) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if actor, ok := middleware.CurrentUser(c); ok && actor.ID == id {
		respondError(c, apperr.With(apperr.ErrBadRequest, "You cannot delete your own account."))
		return
	}
	user, err := u.load(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	err = u.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Association("Groups").Clear(); err != nil {
			return err
		}
		RevokeRefreshTokens(tx, user.ID)
		return tx.Delete(user).Error
	})
	if err != nil {
		respondError(c, apperr.FromDB(err, "user"))
		return
	}
	u.Hubs.Notify(user.ID, ws.SessionMessage{Type: ws.SessionRevoked})
	u.Hubs.Broadcast(ws.Event{Type: ws.Deleted, Model: userLabel, ID: user.ID})
	c.Status(http.StatusNoContent)
}

func (u *UserController) load(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := u.DB.WithContext(ctx).Preload("Groups").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound
		}
		return nil, apperr.FromDB(err, "user")
	}
	return &user, nil
}

func (u *UserController) checkUsername(ctx context.Context, username string, id uint, fe apperr.FieldErrors) error {
	if username == "" {
		fe.Add("username", "This field may not be blank.")
		return nil
	}
	var count int64
	if err := u.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", username, id).Count(&count).Error; err != nil {
		return apperr.FromDB(err, "user")
	}
	if count > 0 {
		fe.Add("username", "A user with that username already exists.")
	}
	return nil
}

func (u *UserController) checkPassword(user *models.User, password string, fe apperr.FieldErrors) {
	for _, msg := range utils.ValidatePassword(password, u.PasswordMinLength, user.Username, user.Email, user.FirstName, user.LastName) {
		fe.Add("password", msg)
	}
}

func (u *UserController) loadGroups(ctx context.Context, groupIDs []uint, fe apperr.FieldErrors) ([]models.Group, error) {
	groups := []models.Group{}
	if len(groupIDs) == 0 {
		return groups, nil
	}
	if err := u.DB.WithContext(ctx).Where("id IN ?", groupIDs).Find(&groups).Error; err != nil {
		return nil, apperr.FromDB(err, "group")
	}
	found := make(map[uint]bool, len(groups))
	for _, g := range groups {
		found[g.ID] = true
	}
	for _, id := range groupIDs {
		if !found[id] {
			fe.Add("groups", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
		}
	}
	return groups, nil
}
