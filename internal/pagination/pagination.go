// Package pagination implements page-number pagination for list endpoints.
//
// A request selects a page with ?page=N (1-based, or "last") and optionally a
// size with ?page_size=M. Responses use the envelope
//
//	{"count": 42, "next": "http://host/api/v1/news?page=3", "previous": "http://host/api/v1/news", "results": [...]}
//
// where next and previous are absolute URLs or null.
package pagination

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/apperr"
)

// ErrInvalidPage is returned for pages that do not exist.
var ErrInvalidPage = apperr.With(apperr.ErrNotFound, "Invalid page.")

type Paginator struct {
	PageSize           int
	MaxPageSize        int // 0 means unbounded
	PageQueryParam     string
	PageSizeQueryParam string
}

func New(pageSize, maxPageSize int) Paginator {
	return Paginator{
		PageSize:           pageSize,
		MaxPageSize:        maxPageSize,
		PageQueryParam:     "page",
		PageSizeQueryParam: "page_size",
	}
}

// Window is a resolved page.
type Window struct {
	Number   int
	Size     int
	NumPages int
}

func (w Window) Offset() int { return (w.Number - 1) * w.Size }

func (w Window) HasNext() bool     { return w.Number < w.NumPages }
func (w Window) HasPrevious() bool { return w.Number > 1 }

type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Size returns the page size requested in q. Missing, unparsable or
// non-positive values fall back to the default.
func (p Paginator) Size(q url.Values) int {
	size := p.PageSize
	if size <= 0 {
		size = 10
	}
	if p.PageSizeQueryParam == "" {
		return size
	}
	if raw := q.Get(p.PageSizeQueryParam); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			size = n
		}
	}
	if p.MaxPageSize > 0 && size > p.MaxPageSize {
		size = p.MaxPageSize
	}
	return size
}

// Resolve picks the page requested in q for a result set of count rows.
// Page one of an empty result set is valid.
func (p Paginator) Resolve(q url.Values, count int64) (Window, error) {
	size := p.Size(q)
	numPages := 1
	if count > 0 {
		numPages = int(math.Ceil(float64(count) / float64(size)))
	}

	number := 1
	raw := strings.TrimSpace(q.Get(p.pageParam()))
	switch {
	case raw == "":
	case raw == "last":
		number = numPages
	default:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > numPages {
			return Window{}, ErrInvalidPage
		}
		number = n
	}
	return Window{Number: number, Size: size, NumPages: numPages}, nil
}

// Links builds the next and previous URLs for w from the request URL. The
// previous link of page two drops the page parameter.
func (p Paginator) Links(r *http.Request, w Window) (next, prev *string) {
	if w.HasNext() {
		s := p.withPage(r, w.Number+1)
		next = &s
	}
	if w.HasPrevious() {
		s := p.withPage(r, w.Number-1)
		prev = &s
	}
	return next, prev
}

func (p Paginator) withPage(r *http.Request, number int) string {
	u := AbsoluteURL(r)
	q := u.Query()
	if number <= 1 {
		q.Del(p.pageParam())
	} else {
		q.Set(p.pageParam(), strconv.Itoa(number))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (p Paginator) pageParam() string {
	if p.PageQueryParam == "" {
		return "page"
	}
	return p.PageQueryParam
}

// AbsoluteURL returns the full URL the client used for r.
func AbsoluteURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
}

// Paginate counts the rows matched by query, then loads the requested page
// into a Page. query must already carry its filters. scopes such as ordering
// and preloads only apply to the page query.
func Paginate[T any](ctx context.Context, query *gorm.DB, r *http.Request, p Paginator, scopes ...func(*gorm.DB) *gorm.DB) (*Page[T], error) {
	var count int64
	if err := query.WithContext(ctx).Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, apperr.FromDB(err, "page")
	}
	w, err := p.Resolve(r.URL.Query(), count)
	if err != nil {
		return nil, err
	}
	results := make([]T, 0, pageLen(count, w))
	if count > 0 {
		if err := query.WithContext(ctx).Scopes(scopes...).Offset(w.Offset()).Limit(w.Size).Find(&results).Error; err != nil {
			return nil, apperr.FromDB(err, "page")
		}
	}
	next, prev := p.Links(r, w)
	return &Page[T]{Count: count, Next: next, Previous: prev, Results: results}, nil
}

// pageLen is the number of rows w can hold out of count.
func pageLen(count int64, w Window) int {
	left := count - int64(w.Offset())
	if left <= 0 {
		return 0
	}
	return int(min(left, int64(w.Size)))
}
