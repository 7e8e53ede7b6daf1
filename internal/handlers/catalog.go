package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"

	"github.com/benvon/catalog-proxy/internal/catalog"
	logpkg "github.com/benvon/catalog-proxy/internal/logger"
	"github.com/benvon/catalog-proxy/internal/request"
	"github.com/benvon/catalog-proxy/internal/upstream"
	"github.com/benvon/catalog-proxy/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CatalogService is the set of proxy operations served over HTTP.
type CatalogService interface {
	Search(ctx context.Context, q validation.SearchQuery) (*catalog.Result, error)
	Item(ctx context.Context, rawAssetID string) (*catalog.Result, error)
	ItemCatalog(ctx context.Context, rawAssetID string) (*catalog.Result, error)
	Popular(ctx context.Context, category string) (*catalog.Result, error)
	Category(ctx context.Context, q validation.ListingQuery) (*catalog.Result, error)
}

// CatalogHandler handles the /api catalog routes
type CatalogHandler struct {
	service CatalogService
	log     *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service CatalogService, log *zap.Logger) *CatalogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogHandler{service: service, log: log}
}

// RegisterRoutes registers catalog routes on the /api subrouter
func (h *CatalogHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/search", h.Search).Methods("GET")
	r.HandleFunc("/item/{assetId}", h.Item).Methods("GET")
	r.HandleFunc("/item-catalog/{assetId}", h.ItemCatalog).Methods("GET")
	r.HandleFunc("/popular", h.Popular).Methods("GET")
	r.HandleFunc("/popular/{category}", h.Popular).Methods("GET")
	r.HandleFunc("/category/{category}", h.Category).Methods("GET")
}

// Search handles GET /api/search
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.service.Search(r.Context(), validation.SearchQuery{
		Query:     q.Get("query"),
		Category:  q.Get("category"),
		Sort:      q.Get("sort"),
		Limit:     q.Get("limit"),
		Cursor:    q.Get("cursor"),
		Paginated: q.Get("paginated"),
	})
	h.respond(w, r, result, err)
}

// Item handles GET /api/item/{assetId}
func (h *CatalogHandler) Item(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Item(r.Context(), mux.Vars(r)["assetId"])
	h.respond(w, r, result, err)
}

// ItemCatalog handles GET /api/item-catalog/{assetId}
func (h *CatalogHandler) ItemCatalog(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ItemCatalog(r.Context(), mux.Vars(r)["assetId"])
	h.respond(w, r, result, err)
}

// Popular handles GET /api/popular and GET /api/popular/{category}
func (h *CatalogHandler) Popular(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Popular(r.Context(), mux.Vars(r)["category"])
	h.respond(w, r, result, err)
}

// Category handles GET /api/category/{category}
func (h *CatalogHandler) Category(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Category(r.Context(), validation.ListingQuery{
		Category: mux.Vars(r)["category"],
		Limit:    r.URL.Query().Get("limit"),
	})
	h.respond(w, r, result, err)
}

func (h *CatalogHandler) respond(w http.ResponseWriter, r *http.Request, result *catalog.Result, err error) {
	if err != nil {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("catalog_request_failed",
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("request_id", request.RequestID(r.Context())),
				zap.String("error", logpkg.SanitizeError(err)),
			)
		}
		respondError(w, status, body)
		return
	}
	respondPayload(w, result.Payload, result.Cached)
}

// errorResponse maps a service error to its HTTP status and body.
func errorResponse(err error) (int, ErrorResponse) {
	var validationErr *catalog.ValidationError
	var rateLimited *catalog.RateLimitedError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorResponse{Error: "Bad Request", Message: validationErr.Message}
	case errors.As(err, &rateLimited):
		return http.StatusTooManyRequests, ErrorResponse{
			Error:      "Rate limit exceeded",
			Message:    "Too many requests, please try again later",
			RetryAfter: rateLimited.RetryAfter,
		}
	case errors.Is(err, upstream.ErrThrottled):
		body := ErrorResponse{
			Error:   "Upstream throttled",
			Message: "upstream throttled",
		}
		if hint := upstream.RetryAfterHint(err); hint > 0 {
			body.RetryAfter = int(math.Ceil(hint.Seconds()))
		}
		return http.StatusTooManyRequests, body
	case errors.Is(err, upstream.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Not Found", Message: "Item not found"}
	case errors.Is(err, upstream.ErrTimeout):
		return http.StatusRequestTimeout, ErrorResponse{Error: "Request Timeout", Message: "Upstream request timed out"}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Failed to fetch data from upstream",
			Details: err.Error(),
		}
	}
}
