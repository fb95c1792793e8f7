package services

import (
	"context"
	"sync"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// HistoricalOpenSource returns a symbol's first traded open price
type HistoricalOpenSource interface {
	GetHistoricalOpen(ctx context.Context, symbol string) (float64, error)
}

// ListingPriceCache keeps the listing-day open price per symbol for the process lifetime.
// Failures are not cached; the next call tries again.
type ListingPriceCache struct {
	source  HistoricalOpenSource
	mutex   sync.RWMutex
	prices  map[string]float64
	group   singleflight.Group
	metrics *shared.ServiceMetrics
}

// NewListingPriceCache creates an empty cache
func NewListingPriceCache(source HistoricalOpenSource) *ListingPriceCache {
	return &ListingPriceCache{
		source:  source,
		prices:  make(map[string]float64),
		metrics: shared.NewServiceMetrics("ListingPriceCache"),
	}
}

// GetListingPrice returns the cached listing price, fetching it on a miss
func (c *ListingPriceCache) GetListingPrice(ctx context.Context, symbol string) (float64, bool) {
	if price, ok := c.Peek(symbol); ok {
		c.metrics.IncrementCounter("hits")
		return price, true
	}
	c.metrics.IncrementCounter("misses")

	result, err, _ := c.group.Do(symbol, func() (interface{}, error) {
		if price, ok := c.Peek(symbol); ok {
			return price, nil
		}
		price, err := c.source.GetHistoricalOpen(ctx, symbol)
		if err != nil {
			return nil, err
		}

		c.mutex.Lock()
		c.prices[symbol] = price
		c.mutex.Unlock()
		return price, nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "ListingPriceCache",
			"symbol":    symbol,
			"error":     err.Error(),
		}).Debug("Listing price unavailable")
		return 0, false
	}
	return result.(float64), true
}

// Peek returns a cached price without calling the provider
func (c *ListingPriceCache) Peek(symbol string) (float64, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	price, ok := c.prices[symbol]
	return price, ok
}

// Size returns the number of cached prices
func (c *ListingPriceCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.prices)
}

// Metrics exposes hit and miss counters
func (c *ListingPriceCache) Metrics() *shared.ServiceMetrics {
	return c.metrics
}
