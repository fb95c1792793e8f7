package handlers

import (
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LiveCache is the live listings slot
type LiveCache interface {
	CacheInvalidator
	CachedAt() (time.Time, bool)
	Metrics() *shared.ServiceMetrics
}

// KeyedCache is a per-key memo cache
type KeyedCache interface {
	Size() int
	Metrics() *shared.ServiceMetrics
}

// MetricsSource exposes call counters
type MetricsSource interface {
	Metrics() *shared.ServiceMetrics
}

// PendingQueue is a background queue with a backlog
type PendingQueue interface {
	MetricsSource
	Pending() int
}

type CacheHandler struct {
	Live          LiveCache
	Tickers       KeyedCache
	ListingPrices KeyedCache
	Provider      MetricsSource
	WriteBack     PendingQueue
}

func NewCacheHandler(live LiveCache, tickers, listingPrices KeyedCache, provider MetricsSource, writeBack PendingQueue) *CacheHandler {
	return &CacheHandler{
		Live:          live,
		Tickers:       tickers,
		ListingPrices: listingPrices,
		Provider:      provider,
		WriteBack:     writeBack,
	}
}

// GetCacheStats reports cache sizes and provider call counters
func (h *CacheHandler) GetCacheStats(c *fiber.Ctx) error {
	live := fiber.Map{"cached": false}
	if cachedAt, ok := h.Live.CachedAt(); ok {
		live = fiber.Map{
			"cached":    true,
			"cached_at": cachedAt,
			"age":       time.Since(cachedAt).String(),
		}
	}
	live["metrics"] = h.Live.Metrics().GetSnapshot()

	stats := fiber.Map{
		"live_listings": live,
		"tickers": fiber.Map{
			"size":    h.Tickers.Size(),
			"metrics": h.Tickers.Metrics().GetSnapshot(),
		},
		"listing_prices": fiber.Map{
			"size":    h.ListingPrices.Size(),
			"metrics": h.ListingPrices.Metrics().GetSnapshot(),
		},
		"provider": h.Provider.Metrics().GetSnapshot(),
	}
	if h.WriteBack != nil {
		stats["write_back"] = fiber.Map{
			"pending": h.WriteBack.Pending(),
			"metrics": h.WriteBack.Metrics().GetSnapshot(),
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// InvalidateLiveListings drops the live listings slot
func (h *CacheHandler) InvalidateLiveListings(c *fiber.Ctx) error {
	h.Live.Invalidate()
	logrus.WithField("component", "CacheHandler").Info("Live listings cache invalidated via admin endpoint")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Live listings cache cleared",
	})
}
