// Package googlebooks adapts the Google Books volumes API to the canonical
// book schema. It is the PROVIDER_A source.
package googlebooks

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

const DefaultBaseURL = "https://www.googleapis.com/books/v1"

// maxResultsLimit is the largest page Google Books accepts.
const maxResultsLimit = 40

// supportedFilters maps canonical keys to Google search keywords.
var supportedFilters = []struct {
	key     string
	keyword string
}{
	{book.FilterTitle, "intitle"},
	{book.FilterAuthor, "inauthor"},
	{book.FilterPublisher, "inpublisher"},
	{book.FilterCategory, "subject"},
}

type Config struct {
	BaseURL string
	APIKey  string
}

type Client struct {
	getter  fetch.Getter
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

func NewClient(getter fetch.Getter, cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		getter:  getter,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger.With(zap.String("provider", string(book.SourceProviderA))),
	}
}

func (c *Client) Source() book.Source { return book.SourceProviderA }

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

// volumesResponse matches GET /volumes.
type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title         string      `json:"title"`
	Subtitle      string      `json:"subtitle"`
	Authors       []string    `json:"authors"`
	Categories    []string    `json:"categories"`
	PublishedDate string      `json:"publishedDate"`
	Publisher     string      `json:"publisher"`
	Description   string      `json:"description"`
	ImageLinks    *imageLinks `json:"imageLinks"`
}

type imageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
	Small          string `json:"small"`
	Medium         string `json:"medium"`
	Large          string `json:"large"`
	ExtraLarge     string `json:"extraLarge"`
}

// best picks the smallest available variant.
func (l *imageLinks) best() string {
	if l == nil {
		return ""
	}
	for _, candidate := range []string{l.SmallThumbnail, l.Thumbnail, l.Small, l.Medium, l.Large, l.ExtraLarge} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// buildQuery turns filters into the q parameter, e.g.
// `intitle:dune inauthor:"frank herbert"`.
func buildQuery(filters book.Filters) string {
	var tokens []string
	for _, f := range supportedFilters {
		v := filters.Get(f.key)
		if v == "" {
			continue
		}
		if strings.ContainsAny(v, " \t") {
			v = strconv.Quote(v)
		}
		tokens = append(tokens, f.keyword+":"+v)
	}
	return strings.Join(tokens, " ")
}

func (c *Client) searchURL(q string, page, maxPerPage int) string {
	params := url.Values{}
	params.Set("q", q)
	params.Set("startIndex", strconv.Itoa(book.Offset(page, maxPerPage)))
	params.Set("maxResults", strconv.Itoa(maxPerPage))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	return fmt.Sprintf("%s/volumes?%s", c.baseURL, params.Encode())
}

func (c *Client) Search(ctx context.Context, filters book.Filters, page, maxPerPage int) (book.Page, error) {
	if err := book.CheckPaging(page, maxPerPage); err != nil {
		return book.Page{}, err
	}
	// Pages are cut at the Google maximum so offsets stay contiguous.
	maxPerPage = min(maxPerPage, maxResultsLimit)
	q := buildQuery(filters)
	if q == "" {
		metrics.IncProviderOutcome(string(book.SourceProviderA), metrics.OutcomeBadFilters)
		return book.Page{}, &book.InvalidFilterError{Source: book.SourceProviderA, Recognized: Properties()}
	}

	empty := book.EmptyPage(book.SourceProviderA, page, maxPerPage)
	u := c.searchURL(q, page, maxPerPage)

	var res volumesResponse
	if !c.getJSON(ctx, u, &res) {
		return empty, nil
	}

	items := make([]book.Record, 0, len(res.Items))
	for _, v := range res.Items {
		rec, err := toRecord(v)
		if err != nil {
			c.logger.Warn("skipping volume", zap.String("id", v.ID), zap.Error(err))
			continue
		}
		items = append(items, rec)
	}
	return book.NewPage(book.SourceProviderA, items, page, maxPerPage, res.TotalItems), nil
}

func (c *Client) GetByID(ctx context.Context, externalID string) (*book.Record, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}
	params := url.Values{}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	u := fmt.Sprintf("%s/volumes/%s", c.baseURL, url.PathEscape(externalID))
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var v volume
	if !c.getJSON(ctx, u, &v) {
		return nil, nil
	}
	rec, err := toRecord(v)
	if err != nil {
		c.logger.Warn("unusable volume", zap.String("id", externalID), zap.Error(err))
		return nil, nil
	}
	return &rec, nil
}

// getJSON reports whether target was filled. Failures are logged; callers
// degrade to empty results.
func (c *Client) getJSON(ctx context.Context, u string, target any) bool {
	status, body, err := c.getter.Get(ctx, u)
	if err != nil {
		c.logger.Warn("provider unavailable", zap.String("url", fetch.Redact(u)),
			zap.Error(fmt.Errorf("%w: %v", book.ErrProviderUnavailable, err)))
		return false
	}
	if status != http.StatusOK {
		c.logger.Warn("provider returned non-success status", zap.String("url", fetch.Redact(u)), zap.Int("status", status))
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		metrics.IncProviderOutcome(string(book.SourceProviderA), metrics.OutcomeDecode)
		c.logger.Warn("cannot decode provider response", zap.String("url", fetch.Redact(u)), zap.Error(err))
		return false
	}
	return true
}

func toRecord(v volume) (book.Record, error) {
	info := v.VolumeInfo
	return book.NewRecord(book.Record{
		Title:          info.Title,
		Subtitle:       info.Subtitle,
		PublishedDate:  info.PublishedDate,
		Publisher:      info.Publisher,
		Description:    info.Description,
		Image:          info.ImageLinks.best(),
		OriginalSource: book.SourceProviderA,
		ExternalID:     v.ID,
		Authors:        info.Authors,
		Categories:     info.Categories,
	})
}
