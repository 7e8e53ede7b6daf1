package handlers

import (
	"context"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/benvon/catalog-proxy/internal/cache"
	"github.com/benvon/catalog-proxy/internal/governor"
)

// UsageReporter reports the current admission window.
type UsageReporter interface {
	Usage() governor.Usage
}

// CacheReporter reports response cache statistics.
type CacheReporter interface {
	Stats() cache.Stats
}

// DependencyCheck verifies one external dependency.
type DependencyCheck func(ctx context.Context) error

// HealthChecker handles health check requests
type HealthChecker struct {
	usage  UsageReporter
	cache  CacheReporter
	checks map[string]DependencyCheck
	now    func() time.Time
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(usage UsageReporter, cache CacheReporter) *HealthChecker {
	return &HealthChecker{
		usage:  usage,
		cache:  cache,
		checks: make(map[string]DependencyCheck),
		now:    time.Now,
	}
}

// AddCheck registers a dependency checked in extended mode.
func (h *HealthChecker) AddCheck(name string, check DependencyCheck) {
	h.checks[name] = check
}

// RateLimitStatus is the governor section of the health response.
type RateLimitStatus struct {
	Requests int `json:"requests"`
	Limit    int `json:"limit"`
	// WindowResetsIn is in whole seconds.
	WindowResetsIn int `json:"windowResetsIn"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	RateLimit RateLimitStatus   `json:"rateLimit"`
	Cache     cache.Stats       `json:"cache"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /health endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	usage := h.usage.Usage()
	response := HealthResponse{
		Status: "healthy",
		RateLimit: RateLimitStatus{
			Requests:       usage.Count,
			Limit:          usage.Limit,
			WindowResetsIn: int(math.Ceil(usage.ResetsIn.Seconds())),
		},
		Cache:     h.cache.Stats(),
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}

	if r.URL.Query().Get("mode") != "extended" {
		respondJSON(w, http.StatusOK, response)
		return
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	response.Checks = make(map[string]string, len(names))
	for _, name := range names {
		if err := h.runCheck(r.Context(), h.checks[name]); err != nil {
			response.Status = "unhealthy"
			response.Checks[name] = "unhealthy: " + err.Error()
		} else {
			response.Checks[name] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	respondJSON(w, statusCode, response)
}

func (h *HealthChecker) runCheck(ctx context.Context, check DependencyCheck) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return check(ctx)
}
