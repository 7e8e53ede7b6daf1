// Package enrich replaces search result prices with the detailed price from a
// secondary lookup, keeping the base price whenever that lookup fails.
package enrich

import (
	"context"

	logpkg "github.com/benvon/catalog-proxy/internal/logger"
	"github.com/benvon/catalog-proxy/internal/metrics"
	"github.com/benvon/catalog-proxy/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency caps parallel detail lookups per batch.
const DefaultConcurrency = 8

// PriceSource looks up the detailed price for one asset.
type PriceSource interface {
	DetailedPrice(ctx context.Context, assetID int64) (int64, error)
}

// Enricher refines prices for batches of catalog items.
type Enricher struct {
	source      PriceSource
	concurrency int
	log         *zap.Logger
	metrics     *metrics.Metrics
}

// New creates an Enricher. concurrency <= 0 selects DefaultConcurrency.
func New(source PriceSource, concurrency int, log *zap.Logger, m *metrics.Metrics) *Enricher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Enricher{
		source:      source,
		concurrency: concurrency,
		log:         log,
		metrics:     m,
	}
}

// Enrich returns a new slice, same length and order as items, with each price
// replaced by its detailed price where the lookup succeeded.
func (e *Enricher) Enrich(ctx context.Context, items []models.CatalogItem) []models.CatalogItem {
	out := make([]models.CatalogItem, len(items))
	copy(out, items)

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range out {
		if out[i].AssetID <= 0 {
			continue
		}
		g.Go(func() error {
			price, err := e.source.DetailedPrice(ctx, out[i].AssetID)
			if err != nil {
				e.metrics.IncrementEnrichmentFallbacks()
				e.log.Warn("price_enrichment_failed_using_base_price",
					zap.Int64("asset_id", out[i].AssetID),
					zap.Int64("base_price", out[i].Price),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				return nil
			}
			out[i] = out[i].WithPrice(price)
			return nil
		})
	}
	_ = g.Wait()

	return out
}
