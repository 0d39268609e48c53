package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/piriven/piriven_backend/internal/apperr"
	"github.com/piriven/piriven_backend/internal/logger"
	"github.com/piriven/piriven_backend/internal/middleware"
	"github.com/piriven/piriven_backend/internal/models"
	"github.com/piriven/piriven_backend/internal/pagination"
	"github.com/piriven/piriven_backend/internal/ws"
)

// Deps are the collaborators shared by every controller.
type Deps struct {
	DB        *gorm.DB
	Paginator pagination.Paginator
	Hubs      *ws.Hubs
	Now       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// Filter narrows a list query from a raw query-string value.
type Filter func(q *gorm.DB, raw string, now time.Time) (*gorm.DB, error)

func BoolFilter(column string) Filter {
	return func(q *gorm.DB, raw string, _ time.Time) (*gorm.DB, error) {
		v, ok := parseBool(raw)
		if !ok {
			return nil, errInvalidChoice
		}
		return q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: v}), nil
	}
}

func IntFilter(column string) Filter {
	return func(q *gorm.DB, raw string, _ time.Time) (*gorm.DB, error) {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, errEnterNumber
		}
		return q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: v}), nil
	}
}

var (
	errInvalidChoice = apperr.With(apperr.ErrBadRequest, "Select a valid choice.")
	errEnterNumber   = apperr.With(apperr.ErrBadRequest, "Enter a number.")
)

// Schema describes how a model is exposed over the API.
type Schema[T any] struct {
	Label string // model label, e.g. "content.News"
	Name  string // human readable plural
	Path  string // URL segment below /api/v1 and /api/v1/admin

	Search          []string
	Ordering        []string
	DefaultOrdering string
	Filters         map[string]Filter
	AdminFilters    map[string]Filter

	// Public restricts rows visible without authentication. A nil Public
	// keeps the model admin-only.
	Public     func(q *gorm.DB, now time.Time) *gorm.DB
	Preload    func(q *gorm.DB) *gorm.DB
	SlugLookup bool

	New      func() *T
	Validate func(ctx context.Context, db *gorm.DB, v *T) error
	// Audience lists the users whose permissions depend on v. They are
	// notified after every write; for deletes the list is taken first.
	Audience func(ctx context.Context, db *gorm.DB, v *T) ([]uint, error)
}

// Handler is the untyped view of a Resource used by the router.
type Handler interface {
	Label() string
	Name() string
	Path() string
	Public() bool

	List(c *gin.Context)
	Retrieve(c *gin.Context)
	AdminList(c *gin.Context)
	AdminRetrieve(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// Resource serves list, detail and CRUD endpoints for one model.
type Resource[T any, PT interface {
	*T
	models.Entity
}] struct {
	*Deps
	schema Schema[T]
}

func NewResource[T any, PT interface {
	*T
	models.Entity
}](d *Deps, schema Schema[T]) *Resource[T, PT] {
	return &Resource[T, PT]{Deps: d, schema: schema}
}

func (r *Resource[T, PT]) Label() string { return r.schema.Label }
func (r *Resource[T, PT]) Name() string  { return r.schema.Name }
func (r *Resource[T, PT]) Path() string  { return r.schema.Path }
func (r *Resource[T, PT]) Public() bool  { return r.schema.Public != nil }

func (r *Resource[T, PT]) List(c *gin.Context)          { r.list(c, true) }
func (r *Resource[T, PT]) AdminList(c *gin.Context)     { r.list(c, false) }
func (r *Resource[T, PT]) Retrieve(c *gin.Context)      { r.retrieve(c, true) }
func (r *Resource[T, PT]) AdminRetrieve(c *gin.Context) { r.retrieve(c, false) }

func (r *Resource[T, PT]) base(ctx context.Context, public bool) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(new(T))
	if public && r.schema.Public != nil {
		q = r.schema.Public(q, r.now())
	}
	return q
}

func (r *Resource[T, PT]) list(c *gin.Context, public bool) {
	ctx := c.Request.Context()
	q := r.base(ctx, public)

	values := c.Request.URL.Query()
	fe := apperr.FieldErrors{}
	apply := func(filters map[string]Filter) {
		for param, filter := range filters {
			raw := values.Get(param)
			if raw == "" {
				continue
			}
			next, err := filter(q, raw, r.now())
			if err != nil {
				fe.Add(param, apperr.Detail(err))
				continue
			}
			q = next
		}
	}
	apply(r.schema.Filters)
	if !public {
		apply(r.schema.AdminFilters)
	}
	if len(fe) > 0 {
		respondError(c, fe)
		return
	}

	if expr := searchExpr(r.schema.Search, c.Query("search")); expr != nil {
		q = q.Where(expr)
	}

	scopes := []func(*gorm.DB) *gorm.DB{r.orderScope(c.Query("ordering"))}
	if r.schema.Preload != nil {
		scopes = append(scopes, r.schema.Preload)
	}
	page, err := pagination.Paginate[T](ctx, q, c.Request, r.Paginator, scopes...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// searchExpr matches rows where every whitespace or comma separated term
// appears, case-insensitively, in at least one of fields.
func searchExpr(fields []string, raw string) clause.Expression {
	if len(fields) == 0 {
		return nil
	}
	terms := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	if len(terms) == 0 {
		return nil
	}
	and := make([]clause.Expression, 0, len(terms))
	for _, term := range terms {
		like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		or := make([]clause.Expression, 0, len(fields))
		for _, f := range fields {
			or = append(or, clause.Expr{SQL: `LOWER(?) LIKE ? ESCAPE '\'`, Vars: []any{clause.Column{Name: f}, like}})
		}
		and = append(and, clause.Or(or...))
	}
	return clause.And(and...)
}

// orderScope applies ?ordering=field,-other restricted to the allowed fields.
// Unknown fields are ignored; id breaks ties so pages are stable.
func (r *Resource[T, PT]) orderScope(raw string) func(*gorm.DB) *gorm.DB {
	columns := parseOrdering(raw, r.schema.Ordering)
	if len(columns) == 0 {
		columns = parseOrdering(r.schema.DefaultOrdering, nil)
	}
	hasID := false
	for _, col := range columns {
		if col.Column.Name == "id" {
			hasID = true
		}
	}
	if !hasID {
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
	}
	return func(q *gorm.DB) *gorm.DB {
		for _, col := range columns {
			q = q.Order(col)
		}
		return q
	}
}

// parseOrdering turns "-published_at,title" into order columns. A nil
// allowed list accepts every field.
func parseOrdering(raw string, allowed []string) []clause.OrderByColumn {
	var out []clause.OrderByColumn
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimPrefix(part, "-")
		if field == "" {
			continue
		}
		if allowed != nil && !contains(allowed, field) && field != "id" {
			continue
		}
		out = append(out, clause.OrderByColumn{Column: clause.Column{Name: field}, Desc: desc})
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *Resource[T, PT]) load(ctx context.Context, c *gin.Context, public bool) (*T, error) {
	q := r.base(ctx, public)
	if r.schema.Preload != nil {
		q = r.schema.Preload(q)
	}
	key := c.Param("id")
	if id, err := strconv.ParseUint(key, 10, 0); err == nil && id > 0 {
		q = q.Where(clause.Eq{Column: clause.PrimaryColumn, Value: id})
	} else if r.schema.SlugLookup && key != "" {
		q = q.Where(clause.Eq{Column: clause.Column{Name: "slug"}, Value: key})
	} else {
		return nil, errNotFound
	}
	obj := new(T)
	if err := q.First(obj).Error; err != nil {
		if apperr.Status(apperr.FromDB(err, r.schema.Name)) == http.StatusNotFound {
			return nil, errNotFound
		}
		return nil, apperr.FromDB(err, r.schema.Name)
	}
	return obj, nil
}

func (r *Resource[T, PT]) retrieve(c *gin.Context, public bool) {
	obj, err := r.load(c.Request.Context(), c, public)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, obj)
}

func (r *Resource[T, PT]) Create(c *gin.Context) {
	ctx := c.Request.Context()
	obj := new(T)
	if r.schema.New != nil {
		obj = r.schema.New()
	}
	if err := bindJSON(c, obj); err != nil {
		respondError(c, err)
		return
	}
	*PT(obj).GetBase() = models.Base{}

	if err := r.save(ctx, obj, true); err != nil {
		respondError(c, err)
		return
	}
	r.changed(c, obj, ws.Created, r.audience(ctx, obj))
	c.JSON(http.StatusCreated, obj)
}

// Update merges the request body into the stored row, so PUT and PATCH both
// accept partial documents.
func (r *Resource[T, PT]) Update(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := parseID(c, "id"); err != nil {
		respondError(c, err)
		return
	}
	obj, err := r.load(ctx, c, false)
	if err != nil {
		respondError(c, err)
		return
	}
	base := *PT(obj).GetBase()
	if err := bindJSON(c, obj); err != nil {
		respondError(c, err)
		return
	}
	*PT(obj).GetBase() = base

	if err := r.save(ctx, obj, false); err != nil {
		respondError(c, err)
		return
	}
	r.changed(c, obj, ws.Updated, r.audience(ctx, obj))
	c.JSON(http.StatusOK, obj)
}

func (r *Resource[T, PT]) save(ctx context.Context, obj *T, create bool) error {
	if r.schema.Validate != nil {
		if err := r.schema.Validate(ctx, r.DB.WithContext(ctx), obj); err != nil {
			return err
		}
	}
	q := r.DB.WithContext(ctx).Omit(clause.Associations)
	var err error
	if create {
		err = q.Create(obj).Error
	} else {
		err = q.Save(obj).Error
	}
	return apperr.FromDB(err, r.schema.Name)
}

func (r *Resource[T, PT]) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := parseID(c, "id"); err != nil {
		respondError(c, err)
		return
	}
	obj, err := r.load(ctx, c, false)
	if err != nil {
		respondError(c, err)
		return
	}
	audience, err := r.resolveAudience(ctx, obj)
	if err != nil {
		respondError(c, apperr.FromDB(err, r.schema.Name))
		return
	}
	if err := r.DB.WithContext(ctx).Delete(obj).Error; err != nil {
		respondError(c, apperr.FromDB(err, r.schema.Name))
		return
	}
	r.changed(c, obj, ws.Deleted, audience)
	c.Status(http.StatusNoContent)
}

func (r *Resource[T, PT]) resolveAudience(ctx context.Context, obj *T) ([]uint, error) {
	if r.schema.Audience == nil {
		return nil, nil
	}
	return r.schema.Audience(ctx, r.DB.WithContext(ctx), obj)
}

// audience resolves Schema.Audience after a write that already committed. A
// lookup failure is logged and nobody is notified.
func (r *Resource[T, PT]) audience(ctx context.Context, obj *T) []uint {
	ids, err := r.resolveAudience(ctx, obj)
	if err != nil {
		logger.Error(ctx, "resolve audience", zap.String("model", r.schema.Label), zap.Error(err))
	}
	return ids
}

func (r *Resource[T, PT]) changed(c *gin.Context, obj *T, action string, audience []uint) {
	ctx := c.Request.Context()
	id := PT(obj).GetBase().ID
	fields := []zap.Field{zap.String("model", r.schema.Label), zap.Uint("id", id)}
	if user, ok := middleware.CurrentUser(c); ok {
		fields = append(fields, zap.String("user", user.Username))
	}
	logger.Info(ctx, "content "+action, fields...)

	r.Hubs.Broadcast(ws.Event{Type: action, Model: r.schema.Label, ID: id})
	for _, uid := range audience {
		r.Hubs.Notify(uid, ws.SessionMessage{Type: ws.PermissionsChanged})
	}
}
