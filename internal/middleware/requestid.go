package middleware

import (
	"net/http"

	"github.com/benvon/catalog-proxy/internal/request"
)

// RequestID attaches a request ID to the context and echoes it in the response.
// A valid UUID supplied by the caller is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := request.IncomingRequestID(r)
		w.Header().Set(request.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(request.WithRequestID(r.Context(), id)))
	})
}
