package http

import (
	"errors"
	"net/http"

	"bookhub/internal/book"
	"bookhub/internal/httpx"

	"go.uber.org/zap"
)

// writeError maps domain errors to status codes. Anything unrecognized is
// logged and reported as a 500 without leaking the cause.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var (
		verr    *book.ValidationError
		invalid *book.InvalidFilterError
		failed  *book.SaveFailedError
	)
	switch {
	case errors.As(err, &invalid):
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeInvalidFilters, invalid.Error(), nil)
	case errors.As(err, &verr):
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, verr.Error(),
			[]httpx.ErrorDetail{{Field: verr.Field, Message: verr.Message}})
	case errors.Is(err, book.ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Book not found", nil)
	case errors.As(err, &failed):
		logger.Error("save failed", zap.String("request_id", httpx.RequestIDFrom(r)), zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeSaveFailed, "The book could not be saved", nil)
	default:
		logger.Error("request failed", zap.String("request_id", httpx.RequestIDFrom(r)), zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "An internal error occurred", nil)
	}
}

func writeValidationErrors(w http.ResponseWriter, r *http.Request, errs []ValidationError) {
	details := make([]httpx.ErrorDetail, 0, len(errs))
	for _, e := range errs {
		details = append(details, httpx.ErrorDetail{Field: e.Field, Message: e.Message})
	}
	httpx.JSONError(w, r, http.StatusConflict, httpx.CodeValidation, "Invalid book payload", details)
}
