// Package catalog implements the proxy operations. Every operation runs the same
// sequence: validate input, check the governor, look in the cache, and on a miss
// fetch from upstream, optionally enrich, store and return the encoded payload.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/benvon/catalog-proxy/internal/cache"
	"github.com/benvon/catalog-proxy/internal/governor"
	logpkg "github.com/benvon/catalog-proxy/internal/logger"
	"github.com/benvon/catalog-proxy/internal/metrics"
	"github.com/benvon/catalog-proxy/internal/models"
	"github.com/benvon/catalog-proxy/internal/upstream"
	"github.com/benvon/catalog-proxy/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PopularLimit is the number of items returned by popular listings.
const PopularLimit = 30

// Upstream is the subset of the upstream client used by the service.
type Upstream interface {
	FetchSearch(ctx context.Context, req upstream.SearchRequest) (*upstream.SearchResponse, error)
	FetchItemDetail(ctx context.Context, assetID int64) (*upstream.AssetDetail, error)
	FetchItemCatalog(ctx context.Context, assetID int64) (json.RawMessage, error)
}

// Enricher refines item prices.
type Enricher interface {
	Enrich(ctx context.Context, items []models.CatalogItem) []models.CatalogItem
}

// Options toggles behaviour that differs between deployments.
type Options struct {
	// RequireQuery rejects blank search text instead of browsing the category.
	RequireQuery bool
	// EnrichPrices runs the detail price lookup for search results.
	EnrichPrices bool
	// Paginated is the default response shape for searches.
	Paginated bool
}

// Result is an encoded response body.
type Result struct {
	Payload []byte
	Cached  bool
}

// Service composes the governor, cache, upstream client and enricher.
type Service struct {
	governor *governor.Governor
	cache    *cache.Cache
	upstream Upstream
	enricher Enricher
	opts     Options
	log      *zap.Logger
	metrics  *metrics.Metrics

	// inflight collapses concurrent misses for the same key into one fetch.
	inflight singleflight.Group
}

// NewService creates a Service. enricher may be nil when enrichment is disabled.
func NewService(gov *governor.Governor, c *cache.Cache, up Upstream, enricher Enricher, opts Options, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		governor: gov,
		cache:    c,
		upstream: up,
		enricher: enricher,
		opts:     opts,
		log:      log,
		metrics:  m,
	}
}

// Governor exposes the governor for health reporting.
func (s *Service) Governor() *governor.Governor {
	return s.governor
}

// Cache exposes the cache for health reporting.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// Search runs a catalog search.
func (s *Service) Search(ctx context.Context, q validation.SearchQuery) (*Result, error) {
	params, err := s.searchParams(q)
	if err != nil {
		return nil, err
	}
	if err := s.admit(); err != nil {
		return nil, err
	}

	mode := "flat"
	if params.Paginated {
		mode = "paged"
	}
	key := cache.Key("search",
		strings.ToLower(params.Query),
		strings.ToLower(params.Category),
		strings.ToLower(params.Sort),
		params.Cursor,
		strconv.Itoa(params.Limit),
		mode,
	)

	return s.cached(key, func() (any, error) {
		categoryID, _ := models.CategoryID(params.Category)
		sortType, _ := models.SortType(params.Sort)
		resp, err := s.upstream.FetchSearch(ctx, upstream.SearchRequest{
			Keyword:    params.Query,
			CategoryID: categoryID,
			SortType:   sortType,
			Limit:      params.Limit,
			Cursor:     params.Cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("search catalog: %w", err)
		}

		items := resp.Items()
		if s.opts.EnrichPrices && s.enricher != nil {
			items = s.enricher.Enrich(ctx, items)
		}
		s.log.Debug("catalog_search_completed",
			zap.String("query", logpkg.SanitizeQuery(params.Query)),
			zap.Int("results", len(items)),
		)

		if params.Paginated {
			return models.SearchPage{Items: items, NextCursor: resp.NextPageCursor}, nil
		}
		return items, nil
	})
}

// Item returns the normalized detail record for one asset.
func (s *Service) Item(ctx context.Context, rawAssetID string) (*Result, error) {
	assetID, err := validation.ParseAssetID(rawAssetID)
	if err != nil {
		return nil, asValidationError(err)
	}
	if err := s.admit(); err != nil {
		return nil, err
	}

	return s.cached(cache.Key("item", strconv.FormatInt(assetID, 10)), func() (any, error) {
		detail, err := s.upstream.FetchItemDetail(ctx, assetID)
		if err != nil {
			return nil, fmt.Errorf("fetch item %d: %w", assetID, err)
		}
		return detail.CatalogItem(), nil
	})
}

// ItemCatalog returns the upstream catalog detail record for one asset unchanged.
func (s *Service) ItemCatalog(ctx context.Context, rawAssetID string) (*Result, error) {
	assetID, err := validation.ParseAssetID(rawAssetID)
	if err != nil {
		return nil, asValidationError(err)
	}
	if err := s.admit(); err != nil {
		return nil, err
	}

	return s.cached(cache.Key("item-catalog", strconv.FormatInt(assetID, 10)), func() (any, error) {
		raw, err := s.upstream.FetchItemCatalog(ctx, assetID)
		if err != nil {
			return nil, fmt.Errorf("fetch catalog item %d: %w", assetID, err)
		}
		return raw, nil
	})
}

// Popular lists the best selling items in a category (All when blank).
func (s *Service) Popular(ctx context.Context, category string) (*Result, error) {
	q := validation.ListingQuery{Category: strings.TrimSpace(category)}
	if err := validation.Struct(q); err != nil {
		return nil, asValidationError(err)
	}
	if q.Category == "" {
		q.Category = models.CategoryAll
	}
	if err := s.admit(); err != nil {
		return nil, err
	}

	return s.cached(cache.Key("popular", strings.ToLower(q.Category)), func() (any, error) {
		return s.listing(ctx, q.Category, models.SortSales, PopularLimit)
	})
}

// Category lists items in a category ordered by relevance.
func (s *Service) Category(ctx context.Context, q validation.ListingQuery) (*Result, error) {
	q.Category = strings.TrimSpace(q.Category)
	if q.Category == "" {
		return nil, &ValidationError{Field: "category", Message: "category is required"}
	}
	if err := validation.Struct(q); err != nil {
		return nil, asValidationError(err)
	}
	limit := snapLimitParam(q.Limit)
	if err := s.admit(); err != nil {
		return nil, err
	}

	return s.cached(cache.Key("category", strings.ToLower(q.Category), strconv.Itoa(limit)), func() (any, error) {
		return s.listing(ctx, q.Category, models.SortRelevance, limit)
	})
}

func (s *Service) listing(ctx context.Context, category, sort string, limit int) ([]models.CatalogSummary, error) {
	categoryID, _ := models.CategoryID(category)
	sortType, _ := models.SortType(sort)
	resp, err := s.upstream.FetchSearch(ctx, upstream.SearchRequest{
		CategoryID: categoryID,
		SortType:   sortType,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list category %s: %w", category, err)
	}
	summaries := make([]models.CatalogSummary, 0, len(resp.Data))
	for _, item := range resp.Items() {
		summaries = append(summaries, item.Summary())
	}
	return summaries, nil
}

func (s *Service) searchParams(q validation.SearchQuery) (models.SearchParams, error) {
	if err := validation.Struct(q); err != nil {
		return models.SearchParams{}, asValidationError(err)
	}

	params := models.SearchParams{
		Query:     validation.SanitizeText(q.Query),
		Category:  strings.TrimSpace(q.Category),
		Sort:      strings.TrimSpace(q.Sort),
		Limit:     snapLimitParam(q.Limit),
		Cursor:    strings.TrimSpace(q.Cursor),
		Paginated: s.opts.Paginated,
	}
	if params.Category == "" {
		params.Category = models.CategoryAll
	}
	if params.Sort == "" {
		params.Sort = models.SortRelevance
	}
	if q.Paginated != "" {
		params.Paginated, _ = strconv.ParseBool(q.Paginated)
	}
	if params.Query == "" && s.opts.RequireQuery {
		return models.SearchParams{}, &ValidationError{Field: "query", Message: "Search query is required"}
	}
	return params, nil
}

// snapLimitParam converts a validated numeric limit and snaps it to an accepted value.
func snapLimitParam(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return upstream.DefaultLimit
	}
	return upstream.SnapLimit(n)
}

func (s *Service) admit() error {
	decision := s.governor.Allow()
	s.metrics.ObserveGovernor(decision.Allowed)
	if !decision.Allowed {
		s.log.Warn("rate_limit_exceeded",
			zap.Int("count", decision.Count),
			zap.Int("limit", decision.Limit),
			zap.Int("retry_after_seconds", decision.RetryAfter),
		)
		return &RateLimitedError{RetryAfter: decision.RetryAfter, Limit: decision.Limit}
	}
	return nil
}

// cached serves key from the cache or runs fetch, encodes its result and stores it.
func (s *Service) cached(key string, fetch func() (any, error)) (*Result, error) {
	if payload, ok := s.cache.Get(key); ok {
		s.metrics.ObserveCache(true)
		s.log.Debug("cache_hit", zap.String("key", logpkg.SanitizeQuery(key)))
		return &Result{Payload: payload, Cached: true}, nil
	}
	s.metrics.ObserveCache(false)

	v, err, shared := s.inflight.Do(key, func() (any, error) {
		value, err := fetch()
		if err != nil {
			return nil, err
		}

		var payload []byte
		if raw, ok := value.(json.RawMessage); ok {
			payload = raw
		} else {
			payload, err = json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("encode response: %w", err)
			}
		}

		s.cache.Put(key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug("cache_fill_shared", zap.String("key", logpkg.SanitizeQuery(key)))
	}
	return &Result{Payload: v.([]byte)}, nil
}
