package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the proxy. A nil *Metrics is valid and records nothing.
type Metrics struct {
	GovernorDecisions   *prometheus.CounterVec
	CacheLookups        *prometheus.CounterVec
	UpstreamRequests    *prometheus.CounterVec
	UpstreamDuration    *prometheus.HistogramVec
	EnrichmentFallbacks prometheus.Counter
	HTTPRequests        *prometheus.CounterVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GovernorDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_proxy_governor_decisions_total",
			Help: "Admission decisions made by the request governor",
		}, []string{"outcome"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_proxy_cache_lookups_total",
			Help: "Response cache lookups by result",
		}, []string{"result"}),
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_proxy_upstream_requests_total",
			Help: "Outbound calls to the upstream APIs by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_proxy_upstream_request_duration_seconds",
			Help:    "Latency of outbound upstream calls, excluding the fixed pre-call delay",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		EnrichmentFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_proxy_enrichment_fallbacks_total",
			Help: "Search results that kept their base price because the detail lookup failed",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_proxy_http_requests_total",
			Help: "Inbound HTTP requests by method and status code",
		}, []string{"method", "status"}),
	}
}

// ObserveGovernor records an admission decision.
func (m *Metrics) ObserveGovernor(allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.GovernorDecisions.WithLabelValues(outcome).Inc()
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveUpstream records one outbound call.
func (m *Metrics) ObserveUpstream(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// IncrementEnrichmentFallbacks counts one enrichment fallback.
func (m *Metrics) IncrementEnrichmentFallbacks() {
	if m == nil {
		return
	}
	m.EnrichmentFallbacks.Inc()
}

// ObserveHTTP records one inbound request.
func (m *Metrics) ObserveHTTP(method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
