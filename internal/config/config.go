package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/catalog-proxy/internal/request"
	"github.com/joho/godotenv"
	"github.com/ulule/limiter/v3"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort      string `yaml:"server_port"`
	ServerDebugMode bool   `yaml:"server_debug_mode"`

	CatalogAPIURL   string        `yaml:"catalog_api_url"`
	EconomyAPIURL   string        `yaml:"economy_api_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	// UpstreamDelay is slept before every upstream call. A bare integer in the
	// environment is milliseconds.
	UpstreamDelay   time.Duration `yaml:"upstream_delay"`
	UpstreamRPS     float64       `yaml:"upstream_rps"`

	RateLimitMax    int           `yaml:"rate_limit_max"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`

	EnrichPrices       bool `yaml:"enrich_prices"`
	EnrichConcurrency  int  `yaml:"enrich_concurrency"`
	RequireSearchQuery bool `yaml:"require_search_query"`
	SearchPaginated    bool `yaml:"search_paginated"`

	// ClientRateLimit is a per-client-IP rate such as "120-M". Empty disables it.
	ClientRateLimit string `yaml:"client_rate_limit"`
	RedisURL        string `yaml:"redis_url"`
	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies  string `yaml:"trusted_proxies"`

	FrontendURL    string        `yaml:"frontend_url"`
	EnableHSTS     bool          `yaml:"enable_hsts"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	OpenAPIPath    string        `yaml:"openapi_path"`

	OTELEnabled  bool   `yaml:"otel_enabled"`
	OTELEndpoint string `yaml:"otel_endpoint"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerPort:         "8080",
		CatalogAPIURL:      "https://catalog.roblox.com",
		EconomyAPIURL:      "https://economy.roblox.com",
		UpstreamTimeout:    10 * time.Second,
		RateLimitMax:       10,
		RateLimitWindow:    time.Minute,
		CacheTTL:           5 * time.Minute,
		EnrichPrices:       true,
		EnrichConcurrency:  8,
		RequireSearchQuery: true,
		ClientRateLimit:    "120-M",
		FrontendURL:        "http://localhost:3000",
		RequestTimeout:     30 * time.Second,
		OpenAPIPath:        "api/openapi/openapi.yaml",
	}
}

// Load loads configuration: defaults, then .env, then the YAML file named by
// CONFIG_FILE, then environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path := getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	env := envReader{getenv: getenv}
	cfg.ServerPort = env.str("SERVER_PORT", cfg.ServerPort)
	cfg.ServerDebugMode = env.boolean("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.CatalogAPIURL = env.str("CATALOG_API_URL", cfg.CatalogAPIURL)
	cfg.EconomyAPIURL = env.str("ECONOMY_API_URL", cfg.EconomyAPIURL)
	cfg.UpstreamTimeout = env.duration("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout, time.Second)
	cfg.UpstreamDelay = env.duration("UPSTREAM_DELAY", cfg.UpstreamDelay, time.Millisecond)
	cfg.UpstreamRPS = env.float("UPSTREAM_RPS", cfg.UpstreamRPS)
	cfg.RateLimitMax = env.integer("RATE_LIMIT_MAX", cfg.RateLimitMax)
	cfg.RateLimitWindow = env.duration("RATE_LIMIT_WINDOW", cfg.RateLimitWindow, time.Second)
	cfg.CacheTTL = env.duration("CACHE_TTL", cfg.CacheTTL, time.Second)
	cfg.EnrichPrices = env.boolean("ENRICH_PRICES", cfg.EnrichPrices)
	cfg.EnrichConcurrency = env.integer("ENRICH_CONCURRENCY", cfg.EnrichConcurrency)
	cfg.RequireSearchQuery = env.boolean("REQUIRE_SEARCH_QUERY", cfg.RequireSearchQuery)
	cfg.SearchPaginated = env.boolean("SEARCH_PAGINATED", cfg.SearchPaginated)
	cfg.ClientRateLimit = env.str("CLIENT_RATE_LIMIT", cfg.ClientRateLimit)
	cfg.RedisURL = env.str("REDIS_URL", cfg.RedisURL)
	cfg.TrustedProxies = env.str("TRUSTED_PROXIES", cfg.TrustedProxies)
	cfg.FrontendURL = env.str("FRONTEND_URL", cfg.FrontendURL)
	cfg.EnableHSTS = env.boolean("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.RequestTimeout = env.duration("REQUEST_TIMEOUT", cfg.RequestTimeout, time.Second)
	cfg.OpenAPIPath = env.str("OPENAPI_PATH", cfg.OpenAPIPath)
	cfg.OTELEnabled = env.boolean("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = env.str("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)
	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}

	if strings.EqualFold(cfg.ClientRateLimit, "off") {
		cfg.ClientRateLimit = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file at path. Keys absent from the file keep their value.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration can run the service.
func (c *Config) Validate() error {
	var errs []error
	if port, err := strconv.Atoi(c.ServerPort); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT must be a valid port, got %q", c.ServerPort))
	}
	for name, raw := range map[string]string{"CATALOG_API_URL": c.CatalogAPIURL, "ECONOMY_API_URL": c.EconomyAPIURL} {
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an http(s) URL, got %q", name, raw))
		}
	}
	if c.RateLimitMax <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("UPSTREAM_TIMEOUT must be positive"))
	}
	if c.UpstreamDelay < 0 {
		errs = append(errs, fmt.Errorf("UPSTREAM_DELAY must not be negative"))
	}
	if c.UpstreamRPS < 0 {
		errs = append(errs, fmt.Errorf("UPSTREAM_RPS must not be negative"))
	}
	if c.EnrichConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("ENRICH_CONCURRENCY must be positive"))
	}
	if c.ClientRateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.ClientRateLimit); err != nil {
			errs = append(errs, fmt.Errorf("CLIENT_RATE_LIMIT %q: %w", c.ClientRateLimit, err))
		}
	}
	if _, err := request.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if c.RedisURL != "" {
		if _, err := url.Parse(c.RedisURL); err != nil {
			errs = append(errs, fmt.Errorf("REDIS_URL: %w", err))
		}
	}
	return errors.Join(errs...)
}

// envReader reads typed environment values, keeping the fallback when a key is
// unset and collecting parse errors.
type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) str(key, defaultValue string) string {
	if value := strings.TrimSpace(e.getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e *envReader) boolean(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(e.getenv(key)))
	switch value {
	case "":
		return defaultValue
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	e.errs = append(e.errs, fmt.Errorf("%s must be a boolean, got %q", key, value))
	return defaultValue
}

func (e *envReader) integer(key string, defaultValue int) int {
	value := strings.TrimSpace(e.getenv(key))
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return intValue
}

func (e *envReader) float(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(e.getenv(key))
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be a number, got %q", key, value))
		return defaultValue
	}
	return f
}

// duration accepts Go duration strings; a bare integer is a count of unit.
func (e *envReader) duration(key string, defaultValue, unit time.Duration) time.Duration {
	value := strings.TrimSpace(e.getenv(key))
	if value == "" {
		return defaultValue
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * unit
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be a duration, got %q", key, value))
		return defaultValue
	}
	return d
}
