package googlebooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookhub/internal/book"
	"bookhub/internal/platform/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const volumesJSON = `{
  "totalItems": 23,
  "items": [
    {
      "id": "vol1",
      "volumeInfo": {
        "title": "Dune",
        "subtitle": "Deluxe Edition",
        "authors": ["Frank Herbert"],
        "categories": ["Fiction"],
        "publishedDate": "1965",
        "publisher": "Chilton",
        "description": "Spice.",
        "imageLinks": {"thumbnail": "http://img/thumb", "smallThumbnail": "http://img/small"}
      }
    },
    {
      "id": "vol2",
      "volumeInfo": {"title": "Dune Messiah", "imageLinks": {"medium": "http://img/medium"}}
    },
    {
      "id": "vol3",
      "volumeInfo": {}
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	getter := fetch.NewClient(fetch.Options{Name: "PROVIDER_A", Timeout: time.Second, Backoff: time.Millisecond})
	return NewClient(getter, Config{BaseURL: srv.URL, APIKey: "secret"}, nil)
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, `intitle:Dune inauthor:"Frank Herbert"`, q.Get("q"))
		assert.Equal(t, "10", q.Get("startIndex"))
		assert.Equal(t, "10", q.Get("maxResults"))
		assert.Equal(t, "secret", q.Get("key"))
		_, _ = w.Write([]byte(volumesJSON))
	})

	page, err := c.Search(context.Background(), book.Filters{
		book.FilterTitle:       "Dune",
		book.FilterAuthor:      "Frank Herbert",
		book.FilterDescription: "ignored",
	}, 2, 10)
	require.NoError(t, err)

	assert.Equal(t, book.SourceProviderA, page.Source)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 23, page.TotalItems)
	assert.Equal(t, 3, page.Pages)
	require.Len(t, page.Items, 2)

	first := page.Items[0]
	assert.Equal(t, "vol1", first.ExternalID)
	assert.Nil(t, first.ID)
	assert.Equal(t, "http://img/small", first.Image)
	assert.Equal(t, []string{"Frank Herbert"}, first.Authors)
	assert.Equal(t, "Chilton", first.Publisher)

	second := page.Items[1]
	assert.Equal(t, "http://img/medium", second.Image)
	assert.Equal(t, []string{}, second.Authors)
	assert.Equal(t, []string{}, second.Categories)
	assert.Equal(t, "", second.Publisher)
}

func TestClient_Search_EmptyFilters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	for _, f := range []book.Filters{{}, nil, {book.FilterDescription: "only unsupported"}} {
		_, err := c.Search(context.Background(), f, 1, 10)
		var fErr *book.InvalidFilterError
		require.ErrorAs(t, err, &fErr)
		assert.Equal(t, []string{"title", "author", "category", "publisher"}, fErr.Recognized)
	}
}

func TestClient_Search_ProviderFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	page, err := c.Search(context.Background(), book.Filters{book.FilterTitle: "Dune"}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalItems)
	assert.Zero(t, page.Pages)
	assert.Equal(t, book.SourceProviderA, page.Source)
}

func TestClient_Search_ClampsPageSize(t *testing.T) {
	var starts []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "40", r.URL.Query().Get("maxResults"))
		starts = append(starts, r.URL.Query().Get("startIndex"))
		_, _ = w.Write([]byte(`{"totalItems": 200}`))
	})
	filters := book.Filters{book.FilterCategory: "History"}

	first, err := c.Search(context.Background(), filters, 1, 100)
	require.NoError(t, err)
	assert.Empty(t, first.Items)
	assert.Equal(t, 40, first.MaxPerPage)
	assert.Equal(t, 5, first.Pages)

	second, err := c.Search(context.Background(), filters, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, 40, second.MaxPerPage)
	assert.Equal(t, 2, second.Page)

	assert.Equal(t, []string{"0", "40"}, starts)
}

func TestClient_GetByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/volumes/abc123":
			_, _ = w.Write([]byte(`{"id":"abc123","volumeInfo":{"title":"Emma","authors":["Jane Austen"]}}`))
		case "/volumes/broken":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	rec, err := c.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Emma", rec.Title)
	assert.Equal(t, book.SourceProviderA, rec.OriginalSource)
	assert.Equal(t, "abc123", rec.ExternalID)

	rec, err = c.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = c.GetByID(context.Background(), "broken")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "", buildQuery(book.Filters{}))
	assert.Equal(t, "intitle:Dune inpublisher:Ace subject:SF",
		buildQuery(book.Filters{book.FilterTitle: "Dune", book.FilterPublisher: "Ace", book.FilterCategory: "SF"}))
}
