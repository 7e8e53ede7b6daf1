package middleware

import (
	"net/http"

	"github.com/benvon/catalog-proxy/internal/request"
)

// ClientIP resolves the client address once, honouring forwarding headers only
// from trusted proxies, and stores it for the logger and the client limiter.
func ClientIP(proxies request.TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := proxies.Resolve(r)
			next.ServeHTTP(w, r.WithContext(request.WithClientIP(r.Context(), ip)))
		})
	}
}
