package httpx

import (
	"encoding/json"
	"net/http"
)

// Error codes shared by handlers and middleware.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidFilters = "INVALID_FILTERS"
	CodeInvalidJSON    = "INVALID_JSON"
	CodeNotFound       = "NOT_FOUND"
	CodeMethod         = "METHOD_NOT_ALLOWED"
	CodeRateLimited    = "RATE_LIMIT_EXCEEDED"
	CodeTooLarge       = "PAYLOAD_TOO_LARGE"
	CodeSaveFailed     = "SAVE_FAILED"
	CodeInternal       = "INTERNAL_ERROR"
)

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Meta    any  `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   ErrorResponseBody `json:"error"`
	Meta    any               `json:"meta,omitempty"`
}

type ErrorResponseBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func buildMeta(r *http.Request, customMeta map[string]any) map[string]any {
	requestID := ""
	if r != nil {
		requestID = RequestIDFrom(r)
	}
	if requestID == "" && len(customMeta) == 0 {
		return nil
	}
	meta := make(map[string]any, len(customMeta)+1)
	for k, v := range customMeta {
		meta[k] = v
	}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	return meta
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// JSON writes a success envelope with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any, meta map[string]any) {
	writeJSON(w, status, SuccessResponse{
		Success: true,
		Data:    data,
		Meta:    nilIfEmpty(buildMeta(r, meta)),
	})
}

func JSONSuccess(w http.ResponseWriter, r *http.Request, data any, meta map[string]any) {
	JSON(w, r, http.StatusOK, data, meta)
}

func JSONSuccessCreated(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, http.StatusCreated, data, nil)
}

func JSONSuccessNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func JSONError(w http.ResponseWriter, r *http.Request, status int, code, message string, details []ErrorDetail) {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error: ErrorResponseBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: nilIfEmpty(buildMeta(r, nil)),
	})
}

// nilIfEmpty keeps omitempty working for a nil map behind an interface.
func nilIfEmpty(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
