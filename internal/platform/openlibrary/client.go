// Package openlibrary adapts the Open Library search and works APIs to the
// canonical book schema. It is the PROVIDER_B source.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bookhub/internal/book"
	"bookhub/internal/metrics"
	"bookhub/internal/platform/fetch"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://openlibrary.org"
	DefaultCoversURL = "https://covers.openlibrary.org/b"
)

// searchFields limits the search.json payload to what toRecord reads.
const searchFields = "key,title,subtitle,author_name,subject,first_publish_year,publisher,cover_i"

// coverSizes is the probe order for work covers, smallest first.
var coverSizes = []string{"S", "M", "L"}

// maxCoverProbes bounds the cover ids tried per work.
const maxCoverProbes = 3

// supportedFilters maps canonical keys to search.json parameters.
var supportedFilters = []struct {
	key   string
	param string
}{
	{book.FilterTitle, "title"},
	{book.FilterAuthor, "author"},
	{book.FilterCategory, "subject"},
	{book.FilterPublisher, "publisher"},
	{book.FilterPublishedDate, "first_publish_year"},
}

type Config struct {
	BaseURL   string
	CoversURL string
}

type Client struct {
	getter    fetch.Getter
	baseURL   string
	coversURL string
	logger    *zap.Logger
}

func NewClient(getter fetch.Getter, cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CoversURL == "" {
		cfg.CoversURL = DefaultCoversURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		getter:    getter,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		coversURL: strings.TrimRight(cfg.CoversURL, "/"),
		logger:    logger.With(zap.String("provider", string(book.SourceProviderB))),
	}
}

func (c *Client) Source() book.Source { return book.SourceProviderB }

// Properties lists the filter keys this provider understands.
func Properties() []string {
	out := make([]string, 0, len(supportedFilters))
	for _, f := range book.Properties() {
		for _, s := range supportedFilters {
			if s.key == f {
				out = append(out, f)
			}
		}
	}
	return out
}

func (c *Client) searchURL(filters book.Filters, page, maxPerPage int) (string, bool) {
	params := url.Values{}
	for _, f := range supportedFilters {
		v := filters.Get(f.key)
		if f.key == book.FilterPublishedDate {
			v = leadingYear(v)
		}
		if v != "" {
			params.Set(f.param, v)
		}
	}
	if len(params) == 0 {
		return "", false
	}
	params.Set("offset", strconv.Itoa(book.Offset(page, maxPerPage)))
	params.Set("limit", strconv.Itoa(maxPerPage))
	params.Set("fields", searchFields)
	return fmt.Sprintf("%s/search.json?%s", c.baseURL, params.Encode()), true
}

// leadingYear returns the four-digit year a free-text date starts with, or ""
// when it has none. first_publish_year only accepts a year.
func leadingYear(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if len(date) > 4 && date[4] >= '0' && date[4] <= '9' {
		return ""
	}
	return date[:4]
}

func (c *Client) Search(ctx context.Context, filters book.Filters, page, maxPerPage int) (book.Page, error) {
	if err := book.CheckPaging(page, maxPerPage); err != nil {
		return book.Page{}, err
	}
	u, ok := c.searchURL(filters, page, maxPerPage)
	if !ok {
		metrics.IncProviderOutcome(string(book.SourceProviderB), metrics.OutcomeBadFilters)
		return book.Page{}, &book.InvalidFilterError{Source: book.SourceProviderB, Recognized: Properties()}
	}

	var res SearchResponse
	if !c.getJSON(ctx, u, &res) {
		return book.EmptyPage(book.SourceProviderB, page, maxPerPage), nil
	}

	items := make([]book.Record, 0, len(res.Docs))
	for _, doc := range res.Docs {
		rec, err := c.docToRecord(doc)
		if err != nil {
			c.logger.Warn("skipping search doc", zap.String("key", doc.Key), zap.Error(err))
			continue
		}
		items = append(items, rec)
	}
	return book.NewPage(book.SourceProviderB, items, page, maxPerPage, res.NumFound), nil
}

// GetByID loads a work. Author names and the cover come from secondary
// lookups that are best-effort: a failure leaves the field empty.
func (c *Client) GetByID(ctx context.Context, externalID string) (*book.Record, error) {
	key := workKey(externalID)
	if key == "" {
		return nil, nil
	}

	var w Work
	if !c.getJSON(ctx, fmt.Sprintf("%s/works/%s.json", c.baseURL, url.PathEscape(key)), &w) {
		return nil, nil
	}

	authors := make([]string, 0, len(w.Authors))
	for _, a := range w.Authors {
		if name := c.authorName(ctx, a.Author.Key); name != "" {
			authors = append(authors, name)
		}
	}

	categories := w.Subjects
	if len(categories) == 0 {
		categories = w.SubjectPlaces
	}

	rec, err := book.NewRecord(book.Record{
		Title:          w.Title,
		Subtitle:       w.Subtitle,
		PublishedDate:  w.FirstPublishDate,
		Publisher:      w.Publishers.First(),
		Description:    w.Description.String(),
		Image:          c.coverURL(ctx, w.Covers),
		OriginalSource: book.SourceProviderB,
		ExternalID:     key,
		Authors:        authors,
		Categories:     categories,
	})
	if err != nil {
		c.logger.Warn("unusable work", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return &rec, nil
}

// authorName resolves an author key to its display name, or "".
func (c *Client) authorName(ctx context.Context, authorKey string) string {
	key := strings.TrimPrefix(authorKey, "/authors/")
	if key == "" {
		return ""
	}
	var a AuthorDetails
	if !c.getJSON(ctx, fmt.Sprintf("%s/authors/%s.json", c.baseURL, url.PathEscape(key)), &a) {
		return ""
	}
	for _, name := range []string{a.Name, a.FullerName, a.PersonalName} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return ""
}

// coverURL probes candidate cover images, smallest size first, and returns
// the first that exists.
func (c *Client) coverURL(ctx context.Context, covers []int) string {
	probed := 0
	for _, id := range covers {
		if id <= 0 {
			continue
		}
		if probed == maxCoverProbes {
			break
		}
		probed++
		for _, size := range coverSizes {
			u := c.coverImageURL(id, size)
			status, body, err := c.getter.Get(ctx, u+"?default=false")
			if err != nil {
				c.logger.Debug("cover probe failed", zap.Int("cover", id), zap.Error(err))
				return ""
			}
			if status == http.StatusOK && len(body) > 0 {
				return u
			}
		}
	}
	return ""
}

func (c *Client) coverImageURL(id int, size string) string {
	return fmt.Sprintf("%s/id/%d-%s.jpg", c.coversURL, id, size)
}

func (c *Client) docToRecord(doc SearchDoc) (book.Record, error) {
	published := ""
	if doc.FirstPublishYear > 0 {
		published = strconv.Itoa(doc.FirstPublishYear)
	}
	image := ""
	if doc.CoverID > 0 {
		image = c.coverImageURL(doc.CoverID, coverSizes[0])
	}
	return book.NewRecord(book.Record{
		Title:          doc.Title,
		Subtitle:       doc.Subtitle,
		PublishedDate:  published,
		Publisher:      doc.Publishers.First(),
		Image:          image,
		OriginalSource: book.SourceProviderB,
		ExternalID:     workKey(doc.Key),
		Authors:        doc.AuthorNames,
		Categories:     doc.Subjects,
	})
}

// getJSON reports whether target was filled. Failures are logged; callers
// degrade to empty results.
func (c *Client) getJSON(ctx context.Context, u string, target any) bool {
	status, body, err := c.getter.Get(ctx, u)
	if err != nil {
		c.logger.Warn("provider unavailable", zap.String("url", u),
			zap.Error(fmt.Errorf("%w: %v", book.ErrProviderUnavailable, err)))
		return false
	}
	if status != http.StatusOK {
		c.logger.Warn("provider returned non-success status", zap.String("url", u), zap.Int("status", status))
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		metrics.IncProviderOutcome(string(book.SourceProviderB), metrics.OutcomeDecode)
		c.logger.Warn("cannot decode provider response", zap.String("url", u), zap.Error(err))
		return false
	}
	return true
}

// workKey turns "/works/OL45883W" into "OL45883W".
func workKey(key string) string {
	key = strings.TrimSpace(key)
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	return key
}
