package controllers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"

	"github.com/piriven/piriven_backend/internal/apperr"
)

func TestFlexibleID(t *testing.T) {
	var got struct {
		Groups []FlexibleID `json:"groups"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"groups": [3, "7", " 9 "]}`), &got))
	require.Equal(t, []uint{3, 7, 9}, ids(got.Groups))

	var id FlexibleID
	var idErr *InvalidIDError
	err := json.Unmarshal([]byte(`"seven"`), &id)
	require.ErrorAs(t, err, &idErr)
	require.Equal(t, "Incorrect type. Expected pk value, received str.", idErr.Error())
	require.ErrorAs(t, json.Unmarshal([]byte(`-1`), &id), &idErr)
	require.ErrorAs(t, json.Unmarshal([]byte(`true`), &id), &idErr)
	require.Equal(t, "bool", idErr.Received)
	require.NoError(t, json.Unmarshal([]byte(`null`), &id))

	fe := idFieldError(bindingError(err), "groups")
	require.Equal(t, apperr.Field("groups", "Incorrect type. Expected pk value, received str."), fe)
	require.True(t, validEmail("clerk@example.com"))
	require.False(t, validEmail("not-an-email"))
}

func TestParseOrdering(t *testing.T) {
	allowed := []string{"title", "published_at"}

	got := parseOrdering("-published_at, title,password,,-id", allowed)
	require.Equal(t, []clause.OrderByColumn{
		{Column: clause.Column{Name: "published_at"}, Desc: true},
		{Column: clause.Column{Name: "title"}},
		{Column: clause.Column{Name: "id"}, Desc: true},
	}, got)

	require.Empty(t, parseOrdering("password", allowed))
	require.Len(t, parseOrdering("anything,-else", nil), 2)
}

func TestSearchExpr(t *testing.T) {
	require.Nil(t, searchExpr(nil, "exam"))
	require.Nil(t, searchExpr([]string{"title"}, "  , "))

	expr, ok := searchExpr([]string{"title", "body"}, "Exam, Results").(clause.AndConditions)
	require.True(t, ok)
	require.Len(t, expr.Exprs, 2)
	or, ok := expr.Exprs[0].(clause.OrConditions)
	require.True(t, ok)
	require.Len(t, or.Exprs, 2)
	require.Equal(t, "%exam%", or.Exprs[0].(clause.Expr).Vars[1])

	expr = searchExpr([]string{"title"}, `100% a_b\`).(clause.AndConditions)
	require.Equal(t, `%100\%%`, expr.Exprs[0].(clause.OrConditions).Exprs[0].(clause.Expr).Vars[1])
	require.Equal(t, `%a\_b\\%`, expr.Exprs[1].(clause.OrConditions).Exprs[0].(clause.Expr).Vars[1])
}

func TestParseBool(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "True": true, "1": true, "false": false, "False": false, "0": false} {
		got, ok := parseBool(raw)
		require.True(t, ok, raw)
		require.Equal(t, want, got, raw)
	}
	_, ok := parseBool("yes")
	require.False(t, ok)
}

func TestBindingError(t *testing.T) {
	var doc map[string]any
	err := json.Unmarshal([]byte(`{`), &doc)
	require.Error(t, err)
	require.Equal(t, 400, apperr.Status(bindingError(err)))

	var typed struct {
		Year int `json:"year"`
	}
	err = json.Unmarshal([]byte(`{"year": "soon"}`), &typed)
	fe, ok := bindingError(err).(apperr.FieldErrors)
	require.True(t, ok)
	require.Equal(t, []string{"Incorrect type."}, fe["year"])
}

func TestPermissionsAndLabels(t *testing.T) {
	labels := Labels(Resources(&Deps{}))
	require.Contains(t, labels, "content.News")
	require.Contains(t, labels, "library.PublicationEntry")
	require.Equal(t, []string{"auth.User", "auth.Group"}, labels[len(labels)-2:])

	perms := Permissions([]string{"content.News"})
	require.Equal(t, []string{
		"content.add_news", "content.change_news", "content.delete_news", "content.view_news",
	}, perms)
}
