package pagination_test

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/piriven/piriven_backend/internal/apperr"
	"github.com/piriven/piriven_backend/internal/database"
	"github.com/piriven/piriven_backend/internal/models"
	"github.com/piriven/piriven_backend/internal/pagination"
)

func TestSize(t *testing.T) {
	p := pagination.New(10, 50)
	tests := map[string]int{
		"":              10,
		"page_size=5":   5,
		"page_size=0":   10,
		"page_size=-3":  10,
		"page_size=abc": 10,
		"page_size=500": 50,
	}
	for raw, want := range tests {
		q, err := url.ParseQuery(raw)
		require.NoError(t, err)
		require.Equal(t, want, p.Size(q), raw)
	}

	unbounded := pagination.New(10, 0)
	require.Equal(t, 500, unbounded.Size(url.Values{"page_size": {"500"}}))
}

func TestResolve(t *testing.T) {
	p := pagination.New(10, 0)

	w, err := p.Resolve(url.Values{}, 0)
	require.NoError(t, err)
	require.Equal(t, pagination.Window{Number: 1, Size: 10, NumPages: 1}, w)
	require.False(t, w.HasNext())
	require.False(t, w.HasPrevious())

	w, err = p.Resolve(url.Values{"page": {"3"}}, 25)
	require.NoError(t, err)
	require.Equal(t, 3, w.Number)
	require.Equal(t, 20, w.Offset())
	require.False(t, w.HasNext())

	w, err = p.Resolve(url.Values{"page": {"last"}}, 25)
	require.NoError(t, err)
	require.Equal(t, 3, w.Number)

	for _, bad := range []string{"0", "-1", "4", "two", "1.5"} {
		_, err := p.Resolve(url.Values{"page": {bad}}, 25)
		require.ErrorIs(t, err, apperr.ErrNotFound, bad)
		require.Equal(t, "Invalid page.", apperr.Detail(err))
	}

	_, err = p.Resolve(url.Values{"page": {"2"}}, 0)
	require.Error(t, err, "only page one exists for an empty set")
}

func TestLinks(t *testing.T) {
	p := pagination.New(10, 0)

	r := httptest.NewRequest("GET", "/api/v1/news?search=exam&page=2", nil)
	r.Host = "piriven.moe.gov.lk"
	next, prev := p.Links(r, pagination.Window{Number: 2, Size: 10, NumPages: 3})
	require.NotNil(t, next)
	require.NotNil(t, prev)
	require.Equal(t, "http://piriven.moe.gov.lk/api/v1/news?page=3&search=exam", *next)
	require.Equal(t, "http://piriven.moe.gov.lk/api/v1/news?search=exam", *prev)

	r = httptest.NewRequest("GET", "/api/v1/news?page=3", nil)
	r.Host = "example.com"
	next, prev = p.Links(r, pagination.Window{Number: 3, Size: 10, NumPages: 3})
	require.Nil(t, next)
	require.Equal(t, "http://example.com/api/v1/news?page=2", *prev)
}

func TestPaginate(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	for i := 0; i < 23; i++ {
		require.NoError(t, db.Create(&models.Stat{Label: "stat", Value: "1", SortOrder: i}).Error)
	}
	p := pagination.New(10, 0)
	ctx := context.Background()

	r := httptest.NewRequest("GET", "/api/v1/stats?page=3", nil)
	page, err := pagination.Paginate[models.Stat](ctx, db.Model(&models.Stat{}).Order("sort_order"), r, p)
	require.NoError(t, err)
	require.EqualValues(t, 23, page.Count)
	require.Len(t, page.Results, 3)
	require.Equal(t, 20, page.Results[0].SortOrder)
	require.Nil(t, page.Next)
	require.NotNil(t, page.Previous)

	r = httptest.NewRequest("GET", "/api/v1/stats?page_size=5", nil)
	desc := func(q *gorm.DB) *gorm.DB { return q.Order("sort_order DESC") }
	page, err = pagination.Paginate[models.Stat](ctx, db.Model(&models.Stat{}), r, p, desc)
	require.NoError(t, err)
	require.Len(t, page.Results, 5)
	require.Equal(t, 22, page.Results[0].SortOrder)
	require.NotNil(t, page.Next)
	require.Nil(t, page.Previous)

	r = httptest.NewRequest("GET", "/api/v1/stats?page=9", nil)
	_, err = pagination.Paginate[models.Stat](ctx, db.Model(&models.Stat{}), r, p)
	require.ErrorIs(t, err, pagination.ErrInvalidPage)
}

func TestPaginateEmpty(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/v1/stats", nil)
	page, err := pagination.Paginate[models.Stat](context.Background(), db.Model(&models.Stat{}), r, pagination.New(10, 0))
	require.NoError(t, err)
	require.Zero(t, page.Count)
	require.NotNil(t, page.Results)
	require.Empty(t, page.Results)
}

func TestPaginateHugePageSize(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Stat{Label: "stat", Value: "1", SortOrder: i}).Error)
	}

	r := httptest.NewRequest("GET", "/api/v1/stats?page_size=9000000000000", nil)
	page, err := pagination.Paginate[models.Stat](context.Background(), db.Model(&models.Stat{}), r, pagination.New(10, 0))
	require.NoError(t, err)
	require.Len(t, page.Results, 3)

	page, err = pagination.Paginate[models.Stat](context.Background(), db.Model(&models.Stat{}), r, pagination.New(10, 2))
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
}
