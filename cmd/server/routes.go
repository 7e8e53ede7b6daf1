package main

import (
	"context"
	"net/http"

	"github.com/benvon/catalog-proxy/internal/catalog"
	"github.com/benvon/catalog-proxy/internal/config"
	"github.com/benvon/catalog-proxy/internal/handlers"
	"github.com/benvon/catalog-proxy/internal/metrics"
	"github.com/benvon/catalog-proxy/internal/middleware"
	"github.com/benvon/catalog-proxy/internal/request"
	"github.com/benvon/catalog-proxy/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const serviceName = "catalog-proxy"

// routerDeps is everything the HTTP surface needs.
type routerDeps struct {
	cfg      *config.Config
	service  *catalog.Service
	log      *zap.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	// redis is optional; when set it backs the client limiter and the extended health check.
	redis   *redis.Client
	tracing bool
}

// newRouter builds the router and middleware chain. Middleware registered first
// runs outermost.
func newRouter(d routerDeps) (http.Handler, error) {
	proxies, err := request.ParseTrustedProxies(d.cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()

	if d.tracing {
		r.Use(telemetry.Middleware(serviceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientIP(proxies))
	r.Use(middleware.Logging(d.log, d.metrics))
	r.Use(middleware.ErrorHandler(d.log))
	r.Use(middleware.SecurityHeaders(d.cfg.EnableHSTS))
	r.Use(middleware.Timeout(d.cfg.RequestTimeout))

	healthChecker := handlers.NewHealthChecker(d.service.Governor(), d.service.Cache())
	if d.redis != nil {
		client := d.redis
		healthChecker.AddCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	r.HandleFunc("/health", healthChecker.HealthCheck).Methods("GET")

	root := handlers.NewRootHandler(serviceName, version)
	r.HandleFunc("/", root.Index).Methods("GET")
	r.NotFoundHandler = middleware.RequestID(middleware.SecurityHeaders(d.cfg.EnableHSTS)(http.HandlerFunc(root.NotFound)))

	r.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{})).Methods("GET")

	clientLimit, err := middleware.ClientRateLimit(d.cfg.ClientRateLimit, d.redis, d.log)
	if err != nil {
		return nil, err
	}

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(clientLimit)
	handlers.NewCatalogHandler(d.service, d.log).RegisterRoutes(apiRouter)
	handlers.NewOpenAPIHandler(d.cfg.OpenAPIPath).RegisterRoutes(apiRouter)

	// CORS wraps the router so preflight requests are answered before route matching.
	return middleware.CORS(middleware.AllowedOrigins(d.cfg.FrontendURL))(r), nil
}
