package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bookhub/internal/book"
	"bookhub/internal/httpx"

	"go.uber.org/zap"
)

//go:generate mockgen -source=book_handler.go -destination=mock_book_service_test.go -package=http

// BookService is what the handlers need from the aggregator.
type BookService interface {
	List(ctx context.Context, filters book.Filters, page, maxPerPage int) ([]book.Page, error)
	Get(ctx context.Context, id string, source book.Source) (*book.Record, error)
	Save(ctx context.Context, payload book.SavePayload) (book.Record, error)
	Delete(ctx context.Context, id string) error
	Sources() []book.Source
}

// PagingConfig bounds the max_per_page query parameter.
type PagingConfig struct {
	DefaultMaxPerPage int
	MaxPerPageLimit   int
}

type BookHandler struct {
	svc    BookService
	paging PagingConfig
	logger *zap.Logger
}

func NewBookHandler(svc BookService, paging PagingConfig, logger *zap.Logger) *BookHandler {
	if paging.DefaultMaxPerPage <= 0 {
		paging.DefaultMaxPerPage = 10
	}
	if paging.MaxPerPageLimit < paging.DefaultMaxPerPage {
		paging.MaxPerPageLimit = paging.DefaultMaxPerPage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookHandler{svc: svc, paging: paging, logger: logger}
}

// reserved query parameters that are not filters.
var pagingParams = map[string]bool{"page": true, "max_per_page": true, "maxPerPage": true}

// filterAliases accepts snake_case spellings of camelCase filter keys.
var filterAliases = map[string]string{"published_date": book.FilterPublishedDate}

// List godoc
// @Summary List books
// @Description Searches the internal catalog; falls back to every provider when it has no match.
// @Tags books
// @Produce json
// @Param title query string false "Title contains"
// @Param author query string false "Exact author name"
// @Param category query string false "Exact category name"
// @Param page query int false "Page number" default(1)
// @Param max_per_page query int false "Items per page" default(10)
// @Success 200 {object} map[string]interface{}
// @Router /books [get]
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	raw := make(map[string]string, len(q))
	for key, values := range q {
		if pagingParams[key] || len(values) == 0 {
			continue
		}
		if canonical, ok := filterAliases[key]; ok {
			key = canonical
		}
		raw[key] = values[0]
	}
	filters, err := book.ParseFilters(raw)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := intParam(q.Get("page"), 1, "page")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	maxRaw := q.Get("max_per_page")
	if maxRaw == "" {
		maxRaw = q.Get("maxPerPage")
	}
	maxPerPage, err := intParam(maxRaw, h.paging.DefaultMaxPerPage, "max_per_page")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if maxPerPage > h.paging.MaxPerPageLimit {
		maxPerPage = h.paging.MaxPerPageLimit
	}

	pages, err := h.svc.List(r.Context(), filters, page, maxPerPage)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.JSONSuccess(w, r, pages, map[string]any{"sources": len(pages)})
}

// Get godoc
// @Summary Get a book
// @Tags books
// @Produce json
// @Param id path string true "Internal id or provider external id"
// @Param source query string false "INTERNAL (default), PROVIDER_A or PROVIDER_B"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /books/{id} [get]
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookIDFromPath(w, r)
	if !ok {
		return
	}

	source := book.SourceInternal
	if raw := r.URL.Query().Get("source"); raw != "" {
		src, err := book.ParseSource(raw)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		source = src
	}

	rec, err := h.svc.Get(r.Context(), id, source)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.JSONSuccess(w, r, rec, nil)
}

// Create godoc
// @Summary Save a book
// @Description INTERNAL payloads carry the book; provider payloads only an externalId to import.
// @Tags books
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /books [post]
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload bookPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, httpx.CodeTooLarge, "Request body too large", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusConflict, httpx.CodeInvalidJSON, "Invalid JSON body", nil)
		return
	}
	if errs := ValidateStruct(payload); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	saved, err := h.svc.Save(r.Context(), payload.toSave())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if saved.ID != nil {
		w.Header().Set("Location", "/books/"+strconv.FormatInt(*saved.ID, 10))
	}
	httpx.JSONSuccessCreated(w, r, saved)
}

// Delete godoc
// @Summary Delete an internal book
// @Tags books
// @Param id path int true "Internal id"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := bookIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// Sources lists the sources a search can answer from.
func (h *BookHandler) Sources(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, h.svc.Sources(), nil)
}

// bookIDFromPath extracts {id} from /books/{id}.
func bookIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	const prefix = "/books/"
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == r.URL.Path || id == "" || strings.Contains(id, "/") {
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Not found", nil)
		return "", false
	}
	return id, true
}

func intParam(raw string, def int, field string) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &book.ValidationError{Field: field, Message: field + " must be a positive integer"}
	}
	return n, nil
}
