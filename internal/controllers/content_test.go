package controllers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piriven/piriven_backend/internal/models"
)

func TestPublicNewsHidesDrafts(t *testing.T) {
	a := newAPI(t)
	require.NoError(t, a.db.Create(&models.News{Title: "Exam results released", Published: true}).Error)
	require.NoError(t, a.db.Create(&models.News{Title: "Draft circular"}).Error)

	w := a.do(http.MethodGet, "/api/v1/news", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[page[models.News]](t, w)
	require.EqualValues(t, 1, got.Count)
	require.Equal(t, "Exam results released", got.Results[0].Title)
	require.NotNil(t, got.Results[0].PublishedAt)

	w = a.do(http.MethodGet, "/api/v1/admin/news", nil, "root")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 2, decode[page[models.News]](t, w).Count)

	w = a.do(http.MethodGet, "/api/v1/admin/news?published=false", nil, "root")
	require.Equal(t, http.StatusOK, w.Code)
	drafts := decode[page[models.News]](t, w)
	require.EqualValues(t, 1, drafts.Count)
	require.Equal(t, "Draft circular", drafts.Results[0].Title)
}

func TestNewsDetailBySlugOrID(t *testing.T) {
	a := newAPI(t)
	news := models.News{Title: "Annual Report 2024", Published: true}
	require.NoError(t, a.db.Create(&news).Error)
	draft := models.News{Title: "Hidden", Published: false}
	require.NoError(t, a.db.Create(&draft).Error)

	w := a.do(http.MethodGet, "/api/v1/news/annual-report-2024", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, news.ID, decode[models.News](t, w).ID)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/v1/news/%d", news.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/v1/news/%d", draft.ID), nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Not found.", decode[errorBody](t, w).Detail)

	w = a.do(http.MethodGet, "/api/v1/news/missing-slug", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSearchOrderingAndPaging(t *testing.T) {
	a := newAPI(t)
	for i := 0; i < 12; i++ {
		title := fmt.Sprintf("Circular %02d", i)
		if i%4 == 0 {
			title = fmt.Sprintf("Scholarship notice %02d", i)
		}
		require.NoError(t, a.db.Create(&models.News{Title: title, Published: true}).Error)
	}

	w := a.do(http.MethodGet, "/api/v1/news?search=SCHOLARSHIP", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 3, decode[page[models.News]](t, w).Count)

	w = a.do(http.MethodGet, "/api/v1/news?search=scholarship+08", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[page[models.News]](t, w)
	require.EqualValues(t, 1, found.Count)
	require.Equal(t, "Scholarship notice 08", found.Results[0].Title)

	for _, wildcard := range []string{"%25", "_", "%25_"} {
		w = a.do(http.MethodGet, "/api/v1/news?search="+wildcard, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.EqualValues(t, 0, decode[page[models.News]](t, w).Count, wildcard)
	}

	w = a.do(http.MethodGet, "/api/v1/news?ordering=title&page_size=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	first := decode[page[models.News]](t, w)
	require.EqualValues(t, 12, first.Count)
	require.Len(t, first.Results, 5)
	require.Equal(t, "Circular 01", first.Results[0].Title)
	require.NotNil(t, first.Next)
	require.Nil(t, first.Previous)

	w = a.do(http.MethodGet, "/api/v1/news?ordering=-title&page=2&page_size=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[page[models.News]](t, w)
	require.Len(t, second.Results, 5)
	require.NotNil(t, second.Previous)

	w = a.do(http.MethodGet, "/api/v1/news?ordering=password", nil, "")
	require.Equal(t, http.StatusOK, w.Code, "unknown ordering fields are ignored")

	w = a.do(http.MethodGet, "/api/v1/news?page=99", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Invalid page.", decode[errorBody](t, w).Detail)
}

func TestInvalidFilterValue(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/api/v1/news?featured=maybe", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, []string{"Select a valid choice."}, decode[errorBody](t, w).Errors["featured"])

	w = a.do(http.MethodGet, "/api/v1/library/entries?year=soon", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, []string{"Enter a number."}, decode[errorBody](t, w).Errors["year"])
}

func TestAdminOnlyFilterIgnoredPublicly(t *testing.T) {
	a := newAPI(t)
	require.NoError(t, a.db.Create(&models.News{Title: "Live", Published: true}).Error)

	w := a.do(http.MethodGet, "/api/v1/news?published=false", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode[page[models.News]](t, w).Count)
}

func TestNoticesHideExpired(t *testing.T) {
	a := newAPI(t)
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, a.db.Create(&models.Notice{Title: "Old", Published: true, ExpiresAt: &past}).Error)
	require.NoError(t, a.db.Create(&models.Notice{Title: "Current", Published: true, ExpiresAt: &future}).Error)
	require.NoError(t, a.db.Create(&models.Notice{Title: "Forever", Published: true, Important: true}).Error)

	w := a.do(http.MethodGet, "/api/v1/notices", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[page[models.Notice]](t, w)
	require.EqualValues(t, 2, got.Count)
	require.Equal(t, "Forever", got.Results[0].Title, "important notices first")

	w = a.do(http.MethodGet, "/api/v1/notices?important=true", nil, "")
	require.EqualValues(t, 1, decode[page[models.Notice]](t, w).Count)
}

func TestEventsUpcomingFilter(t *testing.T) {
	a := newAPI(t)
	require.NoError(t, a.db.Create(&models.Event{Title: "Past", Published: true, StartsAt: time.Now().UTC().Add(-48 * time.Hour)}).Error)
	require.NoError(t, a.db.Create(&models.Event{Title: "Next", Published: true, StartsAt: time.Now().UTC().Add(48 * time.Hour)}).Error)

	w := a.do(http.MethodGet, "/api/v1/events?upcoming=true", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[page[models.Event]](t, w)
	require.EqualValues(t, 1, got.Count)
	require.Equal(t, "Next", got.Results[0].Title)

	w = a.do(http.MethodGet, "/api/v1/events?upcoming=false", nil, "")
	require.Equal(t, "Past", decode[page[models.Event]](t, w).Results[0].Title)
}

func TestGalleryVisibilityFollowsAlbum(t *testing.T) {
	a := newAPI(t)
	live := models.Album{Title: "Sports meet", Published: true}
	hidden := models.Album{Title: "Unreleased"}
	require.NoError(t, a.db.Create(&live).Error)
	require.NoError(t, a.db.Create(&hidden).Error)
	require.NoError(t, a.db.Create(&models.GalleryImage{AlbumID: live.ID, Image: "a.jpg", SortOrder: 2}).Error)
	require.NoError(t, a.db.Create(&models.GalleryImage{AlbumID: live.ID, Image: "b.jpg", SortOrder: 1}).Error)
	require.NoError(t, a.db.Create(&models.GalleryImage{AlbumID: hidden.ID, Image: "c.jpg"}).Error)

	w := a.do(http.MethodGet, "/api/v1/gallery-images", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	images := decode[page[models.GalleryImage]](t, w)
	require.EqualValues(t, 2, images.Count)
	require.Equal(t, "b.jpg", images.Results[0].Image)

	w = a.do(http.MethodGet, "/api/v1/albums/sports-meet", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	album := decode[models.Album](t, w)
	require.Len(t, album.Images, 2)
	require.Equal(t, "b.jpg", album.Images[0].Image)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/v1/gallery-images?album=%d", hidden.ID), nil, "")
	require.EqualValues(t, 0, decode[page[models.GalleryImage]](t, w).Count)
}

func TestActiveOnlyModels(t *testing.T) {
	a := newAPI(t)
	require.NoError(t, a.db.Create(&models.ExternalLink{Title: "Ministry", URL: "https://moe.gov.lk", Active: true}).Error)
	off := models.ExternalLink{Title: "Old portal", URL: "https://old.example.com", Active: true}
	require.NoError(t, a.db.Create(&off).Error)
	require.NoError(t, a.db.Model(&off).Update("active", false).Error)

	w := a.do(http.MethodGet, "/api/v1/external-links", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode[page[models.ExternalLink]](t, w).Count)
}

func TestNewsletterListIsAdminOnly(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/api/v1/newsletter", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/v1/admin/newsletter", nil, "root")
	require.Equal(t, http.StatusOK, w.Code)
}
