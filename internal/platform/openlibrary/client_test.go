package openlibrary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookhub/internal/book"
	"bookhub/internal/platform/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchJSON = `{
  "numFound": 12,
  "docs": [
    {
      "key": "/works/OL893415W",
      "title": "Dune",
      "author_name": ["Frank Herbert", "Frank Herbert"],
      "subject": ["Science fiction"],
      "first_publish_year": 1965,
      "publisher": ["Chilton Books", "Ace"],
      "cover_i": 11481354
    },
    {"key": "/works/OL2W", "title": ""}
  ]
}`

const workJSON = `{
  "key": "/works/OL893415W",
  "title": "Dune",
  "description": {"type": "/type/text", "value": "Desert planet."},
  "subjects": ["Science fiction", "Arrakis"],
  "first_publish_date": "1965",
  "covers": [-1, 101, 202],
  "authors": [
    {"author": {"key": "/authors/OL79034A"}},
    {"author": {"key": "/authors/OLmissingA"}}
  ]
}`

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	getter := fetch.NewClient(fetch.Options{Name: "PROVIDER_B", Timeout: time.Second, Backoff: time.Millisecond})
	return NewClient(getter, Config{BaseURL: srv.URL, CoversURL: srv.URL + "/b"}, nil)
}

func TestClient_Search(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Dune", q.Get("title"))
		assert.Equal(t, "Science fiction", q.Get("subject"))
		assert.Equal(t, "1965", q.Get("first_publish_year"))
		assert.Equal(t, "5", q.Get("offset"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, searchFields, q.Get("fields"))
		assert.Empty(t, q.Get("description"))
		_, _ = w.Write([]byte(searchJSON))
	})
	c := newTestClient(t, mux)

	page, err := c.Search(context.Background(), book.Filters{
		book.FilterTitle:         "Dune",
		book.FilterCategory:      "Science fiction",
		book.FilterPublishedDate: "1965-08-01",
		book.FilterDescription:   "ignored",
	}, 2, 5)
	require.NoError(t, err)

	assert.Equal(t, book.SourceProviderB, page.Source)
	assert.Equal(t, 12, page.TotalItems)
	assert.Equal(t, 3, page.Pages)
	require.Len(t, page.Items, 1)

	got := page.Items[0]
	assert.Nil(t, got.ID)
	assert.Equal(t, "OL893415W", got.ExternalID)
	assert.Equal(t, "Chilton Books", got.Publisher)
	assert.Equal(t, "1965", got.PublishedDate)
	assert.Equal(t, []string{"Frank Herbert"}, got.Authors)
	assert.Equal(t, []string{"Science fiction"}, got.Categories)
	assert.Contains(t, got.Image, "/b/id/11481354-S.jpg")
}

func TestClient_Search_NoSupportedFilters(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())

	_, err := c.Search(context.Background(), book.Filters{book.FilterDescription: "x"}, 1, 10)

	var invalid *book.InvalidFilterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, book.SourceProviderB, invalid.Source)
	assert.Equal(t, []string{"title", "author", "category", "publisher", "publishedDate"}, invalid.Recognized)
}

func TestClient_Search_PublishedDateWithoutYear(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		_, sent := r.URL.Query()["first_publish_year"]
		assert.False(t, sent)
		assert.Equal(t, "Dune", r.URL.Query().Get("title"))
		_, _ = w.Write([]byte(`{"numFound":0,"docs":[]}`))
	})
	c := newTestClient(t, mux)

	_, err := c.Search(context.Background(), book.Filters{
		book.FilterTitle:         "Dune",
		book.FilterPublishedDate: "summer of '65",
	}, 1, 10)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), book.Filters{book.FilterPublishedDate: "August 1965"}, 1, 10)
	var invalid *book.InvalidFilterError
	require.ErrorAs(t, err, &invalid)
}

func TestLeadingYear(t *testing.T) {
	tests := map[string]string{
		"1965":        "1965",
		"1965-08-01":  "1965",
		" 2001 ":      "2001",
		"August 1965": "",
		"19650":       "",
		"65":          "",
		"":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, leadingYear(in), in)
	}
}

func TestClient_Search_UpstreamFailureIsEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"numFound": "lots"`))
	})
	c := newTestClient(t, mux)

	page, err := c.Search(context.Background(), book.Filters{book.FilterTitle: "Dune"}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalItems)
}

func TestClient_GetByID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/works/OL893415W.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(workJSON))
	})
	mux.HandleFunc("/authors/OL79034A.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"personal_name": "Frank Herbert"}`))
	})
	mux.HandleFunc("/b/id/101-S.jpg", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("default"))
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/b/id/101-M.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0xff, 0xd8})
	})
	c := newTestClient(t, mux)

	rec, err := c.GetByID(context.Background(), "/works/OL893415W")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "OL893415W", rec.ExternalID)
	assert.Equal(t, "Desert planet.", rec.Description)
	assert.Equal(t, []string{"Frank Herbert"}, rec.Authors)
	assert.Equal(t, []string{"Science fiction", "Arrakis"}, rec.Categories)
	assert.True(t, len(rec.Image) > 0)
	assert.Contains(t, rec.Image, "/b/id/101-M.jpg")
	assert.NotContains(t, rec.Image, "default=false")
}

func TestClient_GetByID_Missing(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())

	rec, err := c.GetByID(context.Background(), "OL0W")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestText_Unmarshal(t *testing.T) {
	var w Work
	require.NoError(t, jsonUnmarshal(`{"description": "plain"}`, &w))
	assert.Equal(t, "plain", w.Description.String())

	require.NoError(t, jsonUnmarshal(`{"description": {"value": " typed "}}`, &w))
	assert.Equal(t, "typed", w.Description.String())
}

func TestStringList_Unmarshal(t *testing.T) {
	var w Work
	require.NoError(t, jsonUnmarshal(`{"publishers": "Ace"}`, &w))
	assert.Equal(t, "Ace", w.Publishers.First())

	w = Work{}
	require.NoError(t, jsonUnmarshal(`{"publishers": [" ", "Chilton"]}`, &w))
	assert.Equal(t, "Chilton", w.Publishers.First())
}

func TestWorkKey(t *testing.T) {
	assert.Equal(t, "OL1W", workKey("/works/OL1W"))
	assert.Equal(t, "OL1W", workKey("OL1W"))
	assert.Equal(t, "", workKey("  "))
}

func jsonUnmarshal(s string, v any) error { return json.Unmarshal([]byte(s), v) }
