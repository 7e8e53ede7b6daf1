package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/catalog-proxy/internal/cache"
	"github.com/benvon/catalog-proxy/internal/catalog"
	"github.com/benvon/catalog-proxy/internal/config"
	"github.com/benvon/catalog-proxy/internal/enrich"
	"github.com/benvon/catalog-proxy/internal/governor"
	"github.com/benvon/catalog-proxy/internal/logger"
	"github.com/benvon/catalog-proxy/internal/metrics"
	"github.com/benvon/catalog-proxy/internal/telemetry"
	"github.com/benvon/catalog-proxy/internal/upstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	consoleFlag := flag.Bool("console", false, "Human readable log output")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(logger.Options{Debug: debugMode, Console: *consoleFlag, Service: serviceName})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("catalog_api_url", cfg.CatalogAPIURL),
		zap.String("economy_api_url", cfg.EconomyAPIURL),
		zap.Int("rate_limit_max", cfg.RateLimitMax),
		zap.Duration("rate_limit_window", cfg.RateLimitWindow),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Bool("enrich_prices", cfg.EnrichPrices),
		zap.Bool("require_search_query", cfg.RequireSearchQuery),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	tracing := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), telemetry.Options{
				ServiceName:    serviceName,
				ServiceVersion: version,
				Endpoint:       cfg.OTELEndpoint,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracing = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	redisClient := connectRedis(cfg.RedisURL, zapLogger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
	}

	client := upstream.NewClient(upstream.Config{
		CatalogBaseURL:    cfg.CatalogAPIURL,
		EconomyBaseURL:    cfg.EconomyAPIURL,
		Timeout:           cfg.UpstreamTimeout,
		Delay:             cfg.UpstreamDelay,
		RequestsPerSecond: cfg.UpstreamRPS,
		UserAgent:         serviceName + "/" + version,
	}, zapLogger, m)

	service := catalog.NewService(
		governor.New(cfg.RateLimitMax, governor.WithWindow(cfg.RateLimitWindow)),
		cache.New(cfg.CacheTTL),
		client,
		enrich.New(client, cfg.EnrichConcurrency, zapLogger, m),
		catalog.Options{
			RequireQuery: cfg.RequireSearchQuery,
			EnrichPrices: cfg.EnrichPrices,
			Paginated:    cfg.SearchPaginated,
		},
		zapLogger,
		m,
	)

	handler, err := newRouter(routerDeps{
		cfg:      cfg,
		service:  service,
		log:      zapLogger,
		metrics:  m,
		gatherer: registry,
		redis:    redisClient,
		tracing:  tracing,
	})
	if err != nil {
		zapLogger.Fatal("failed_to_build_router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        handler,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRedis returns a client for rawURL, or nil when it is unset or unreachable.
// Without redis the client limiter keeps its counters in memory.
func connectRedis(rawURL string, zapLogger *zap.Logger) *redis.Client {
	if rawURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Warn("redis_unreachable_using_memory_store", zap.Error(err))
		_ = client.Close()
		return nil
	}
	zapLogger.Info("connected_to_redis")
	return client
}
