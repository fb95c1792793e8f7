package services

import (
	"context"
	"strings"
	"sync"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// SymbolLookup is the paced search used by TickerResolutionCache
type SymbolLookup interface {
	SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error)
}

type tickerEntry struct {
	symbol string
	found  bool
}

// TickerResolutionCache maps normalized IPO names to ticker symbols.
// Entries never expire. A failed or empty lookup is cached as a negative
// entry so the same name never spends provider quota twice.
type TickerResolutionCache struct {
	lookup     SymbolLookup
	normalizer *NameNormalizer
	suffixes   []string
	writeBack  *WriteBackQueue

	mutex   sync.RWMutex
	entries map[string]tickerEntry
	group   singleflight.Group
	metrics *shared.ServiceMetrics
}

// NewTickerResolutionCache creates an empty cache. writeBack may be nil.
func NewTickerResolutionCache(lookup SymbolLookup, normalizer *NameNormalizer, config shared.TickerConfig, writeBack *WriteBackQueue) *TickerResolutionCache {
	suffixes := make([]string, 0, len(config.ExchangeSuffixes))
	for _, suffix := range config.ExchangeSuffixes {
		suffixes = append(suffixes, strings.ToUpper(strings.TrimSpace(suffix)))
	}
	return &TickerResolutionCache{
		lookup:     lookup,
		normalizer: normalizer,
		suffixes:   suffixes,
		writeBack:  writeBack,
		entries:    make(map[string]tickerEntry),
		metrics:    shared.NewServiceMetrics("TickerResolutionCache"),
	}
}

// Resolve returns the ticker symbol for an IPO name
func (c *TickerResolutionCache) Resolve(ctx context.Context, name string) (string, bool) {
	key := c.normalizer.CacheKey(name)

	if entry, cached := c.get(key); cached {
		c.metrics.IncrementCounter("hits")
		return entry.symbol, entry.found
	}
	c.metrics.IncrementCounter("misses")

	if key == "" {
		c.put(key, tickerEntry{})
		return "", false
	}

	outcome := c.lookupShared(ctx, key, name)
	if !outcome.cacheable && ctx.Err() == nil {
		// the shared lookup belonged to a caller that went away
		outcome = c.lookupShared(ctx, key, name)
	}
	return outcome.entry.symbol, outcome.entry.found
}

type tickerOutcome struct {
	entry     tickerEntry
	cacheable bool
}

func (c *TickerResolutionCache) lookupShared(ctx context.Context, key, name string) tickerOutcome {
	result, _, _ := c.group.Do(key, func() (interface{}, error) {
		if entry, cached := c.get(key); cached {
			return tickerOutcome{entry: entry, cacheable: true}, nil
		}
		entry, cacheable := c.search(ctx, name, c.normalizer.SearchQuery(name))
		if cacheable {
			c.put(key, entry)
		}
		return tickerOutcome{entry: entry, cacheable: cacheable}, nil
	})
	return result.(tickerOutcome)
}

// ResolveForRecord prefers the record's persisted symbol. A freshly resolved
// symbol is handed to the write-back queue when the record has none yet.
func (c *TickerResolutionCache) ResolveForRecord(ctx context.Context, record *models.IPORecord) (string, bool) {
	if symbol, ok := record.Symbol(); ok {
		c.metrics.IncrementCounter("persisted")
		return symbol, true
	}

	symbol, ok := c.Resolve(ctx, record.Name)
	if ok && c.writeBack != nil {
		c.writeBack.Enqueue(WriteBackTask{RecordID: record.ID, Name: record.Name, Symbol: symbol})
	}
	return symbol, ok
}

// search queries the provider. The second result is false when the caller's
// context ended, since that outcome says nothing about the name itself.
func (c *TickerResolutionCache) search(ctx context.Context, name, query string) (tickerEntry, bool) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "TickerResolutionCache",
		"name":      name,
		"query":     query,
	})

	matches, err := c.lookup.SearchSymbols(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			logger.WithError(err).Debug("Ticker search abandoned, not caching")
			return tickerEntry{}, false
		}
		c.metrics.IncrementCounter("negative")
		logger.WithError(err).Warn("Ticker search failed, caching negative result")
		return tickerEntry{}, true
	}

	for _, match := range matches {
		if c.acceptable(match.Symbol) {
			c.metrics.IncrementCounter("resolved")
			logger.WithField("symbol", match.Symbol).Info("Resolved ticker symbol")
			return tickerEntry{symbol: match.Symbol, found: true}, true
		}
	}

	c.metrics.IncrementCounter("negative")
	logger.WithField("matches", len(matches)).Info("No exchange-listed match, caching negative result")
	return tickerEntry{}, true
}

func (c *TickerResolutionCache) acceptable(symbol string) bool {
	upper := strings.ToUpper(symbol)
	for _, suffix := range c.suffixes {
		if suffix != "" && strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

func (c *TickerResolutionCache) get(key string) (tickerEntry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, exists := c.entries[key]
	return entry, exists
}

func (c *TickerResolutionCache) put(key string, entry tickerEntry) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = entry
}

// Size returns the number of cached entries, positive and negative
func (c *TickerResolutionCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Metrics exposes hit and miss counters
func (c *TickerResolutionCache) Metrics() *shared.ServiceMetrics {
	return c.metrics
}
