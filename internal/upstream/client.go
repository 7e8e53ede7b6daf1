// Package upstream talks to the third-party catalog and economy APIs.
//
// Every call goes through the same path: optional pacing, the configured fixed
// delay, then a single HTTP request bounded by its own timeout. Failures are
// classified here so callers only ever see ErrThrottled, ErrNotFound,
// ErrTimeout or a generic *Error.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	logpkg "github.com/benvon/catalog-proxy/internal/logger"
	"github.com/benvon/catalog-proxy/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultCatalogBaseURL is the default catalog API base URL
	DefaultCatalogBaseURL = "https://catalog.roblox.com"
	// DefaultEconomyBaseURL is the default economy API base URL
	DefaultEconomyBaseURL = "https://economy.roblox.com"
	// DefaultTimeout is the default per-call timeout
	DefaultTimeout = 10 * time.Second
	// DefaultLimit is used when a requested limit is not accepted upstream
	DefaultLimit = 30

	maxResponseBytes = 8 << 20
	maxErrorBytes    = 64 << 10

	endpointSearch  = "search"
	endpointDetail  = "asset_detail"
	endpointCatalog = "catalog_detail"
)

var allowedLimits = map[int]bool{10: true, 28: true, 30: true}

// SnapLimit returns n when the upstream accepts it, otherwise DefaultLimit.
func SnapLimit(n int) int {
	if allowedLimits[n] {
		return n
	}
	return DefaultLimit
}

// Config configures a Client.
type Config struct {
	CatalogBaseURL string
	EconomyBaseURL string
	// Timeout bounds each call, excluding Delay.
	Timeout time.Duration
	// Delay is slept before every call.
	Delay time.Duration
	// RequestsPerSecond paces outbound calls when > 0.
	RequestsPerSecond float64
	UserAgent         string
}

// Client issues calls to the upstream APIs.
type Client struct {
	httpClient *http.Client
	catalogURL string
	economyURL string
	timeout    time.Duration
	delay      time.Duration
	pacer      *rate.Limiter
	userAgent  string
	log        *zap.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// NewClient creates a client. A nil logger disables logging.
func NewClient(cfg Config, log *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.CatalogBaseURL == "" {
		cfg.CatalogBaseURL = DefaultCatalogBaseURL
	}
	if cfg.EconomyBaseURL == "" {
		cfg.EconomyBaseURL = DefaultEconomyBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "catalog-proxy/1.0"
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		httpClient: &http.Client{},
		catalogURL: strings.TrimRight(cfg.CatalogBaseURL, "/"),
		economyURL: strings.TrimRight(cfg.EconomyBaseURL, "/"),
		timeout:    cfg.Timeout,
		delay:      cfg.Delay,
		userAgent:  cfg.UserAgent,
		log:        log,
		metrics:    m,
		tracer:     otel.Tracer("github.com/benvon/catalog-proxy/internal/upstream"),
	}
	if cfg.RequestsPerSecond > 0 {
		c.pacer = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// FetchSearch runs a catalog search. The limit is snapped to an accepted value and
// a blank keyword is omitted so the search browses the category.
func (c *Client) FetchSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	if kw := strings.TrimSpace(req.Keyword); kw != "" {
		q.Set("Keyword", kw)
	}
	q.Set("Category", strconv.Itoa(req.CategoryID))
	q.Set("SortType", strconv.Itoa(req.SortType))
	q.Set("Limit", strconv.Itoa(SnapLimit(req.Limit)))
	if req.Cursor != "" {
		q.Set("Cursor", req.Cursor)
	}

	var resp SearchResponse
	if err := c.get(ctx, endpointSearch, c.catalogURL+"/v2/search/items/details?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchItemDetail loads the economy detail record for an asset.
func (c *Client) FetchItemDetail(ctx context.Context, assetID int64) (*AssetDetail, error) {
	var detail AssetDetail
	endpoint := fmt.Sprintf("%s/v2/assets/%d/details", c.economyURL, assetID)
	if err := c.get(ctx, endpointDetail, endpoint, &detail); err != nil {
		return nil, err
	}
	if detail.AssetID == 0 {
		detail.AssetID = assetID
	}
	return &detail, nil
}

// FetchItemCatalog returns the catalog detail record for an asset unmodified.
func (c *Client) FetchItemCatalog(ctx context.Context, assetID int64) (json.RawMessage, error) {
	var raw json.RawMessage
	endpoint := fmt.Sprintf("%s/v1/catalog/items/%d/details?itemType=Asset", c.catalogURL, assetID)
	if err := c.get(ctx, endpointCatalog, endpoint, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// DetailedPrice returns the price from the asset detail record.
func (c *Client) DetailedPrice(ctx context.Context, assetID int64) (int64, error) {
	detail, err := c.FetchItemDetail(ctx, assetID)
	if err != nil {
		return 0, err
	}
	if detail.PriceInRobux == nil {
		return 0, ErrNoPrice
	}
	return *detail.PriceInRobux, nil
}

// get performs one GET and decodes the JSON body into out. The inbound request's
// cancellation is not propagated: a disconnecting caller does not abort the call.
func (c *Client) get(ctx context.Context, endpoint, rawURL string, out any) error {
	ctx = context.WithoutCancel(ctx)

	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return &Error{Endpoint: endpoint, Message: err.Error()}
		}
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "upstream."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	err := c.do(ctx, endpoint, rawURL, out)
	elapsed := time.Since(start)
	outcome := Outcome(err)
	c.metrics.ObserveUpstream(endpoint, outcome, elapsed)
	span.SetAttributes(attribute.String("upstream.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		c.log.Warn("upstream_request_failed",
			zap.String("endpoint", endpoint),
			zap.String("outcome", outcome),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return err
	}

	c.log.Debug("upstream_request_completed",
		zap.String("endpoint", endpoint),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{Endpoint: endpoint, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(endpoint, resp)
	}

	if raw, ok := out.(*json.RawMessage); ok {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return classifyTransportError(ctx, endpoint, err)
		}
		if !json.Valid(body) {
			return &Error{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "invalid JSON in upstream response"}
		}
		*raw = body
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		if isTimeout(ctx, err) {
			return &Error{Endpoint: endpoint, Message: "deadline exceeded reading response", Err: ErrTimeout}
		}
		return &Error{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func classifyTransportError(ctx context.Context, endpoint string, err error) error {
	if isTimeout(ctx, err) {
		return &Error{Endpoint: endpoint, Message: "deadline exceeded", Err: ErrTimeout}
	}
	return &Error{Endpoint: endpoint, Message: err.Error()}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func classifyStatus(endpoint string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	e := &Error{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body, resp.StatusCode),
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		e.Err = ErrThrottled
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case http.StatusNotFound:
		e.Err = ErrNotFound
	}
	return e
}

// errorMessage extracts a readable message from an upstream error body.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if len(payload.Errors) > 0 && payload.Errors[0].Message != "" {
			return payload.Errors[0].Message
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return logpkg.SanitizeErrorString(text)
	}
	return http.StatusText(status)
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
