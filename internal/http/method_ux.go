package http

import (
	"net/http"
	"sort"
	"strings"

	"bookhub/internal/httpx"
)

// MethodMux chooses a handler based on the incoming HTTP method.
func MethodMux(handlers map[string]http.Handler) http.Handler {
	allowed := make([]string, 0, len(handlers))
	for m := range handlers {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.Method]; ok {
			h.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allow)
		httpx.JSONError(w, r, http.StatusMethodNotAllowed, httpx.CodeMethod, "Method not allowed", nil)
	})
}
