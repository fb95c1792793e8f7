package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/database"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const liveListingsKey = "live-listings"

// liveSnapshot is the cached, unsliced result. It is never mutated after being stored.
type liveSnapshot struct {
	listings   []models.LiveListing
	computedAt time.Time
}

// LiveListingsService assembles "listed IPOs with a live price" and keeps the
// full result in a single short-lived slot. The slot is swapped atomically so a
// reader sees either the old or the new result, never a mix.
type LiveListingsService struct {
	store         database.RecordStore
	tickers       *TickerResolutionCache
	listingPrices *ListingPriceCache
	aggregator    *BatchQuoteAggregator
	extractor     *FieldExtractor
	clock         shared.Clock
	ttl           time.Duration
	topN          int

	slot    atomic.Pointer[liveSnapshot]
	group   singleflight.Group
	metrics *shared.ServiceMetrics
}

// NewLiveListingsService wires the live listings pipeline
func NewLiveListingsService(
	store database.RecordStore,
	tickers *TickerResolutionCache,
	listingPrices *ListingPriceCache,
	aggregator *BatchQuoteAggregator,
	extractor *FieldExtractor,
	config shared.CacheConfig,
	clock shared.Clock,
) *LiveListingsService {
	if clock == nil {
		clock = shared.SystemClock()
	}
	return &LiveListingsService{
		store:         store,
		tickers:       tickers,
		listingPrices: listingPrices,
		aggregator:    aggregator,
		extractor:     extractor,
		clock:         clock,
		ttl:           config.LiveListingsTTL,
		topN:          config.TopListings,
		metrics:       shared.NewServiceMetrics("LiveListingsService"),
	}
}

// GetLiveListings returns the cached result while it is younger than the TTL,
// otherwise recomputes it. Only the top entries are returned unless includeAll is set.
func (s *LiveListingsService) GetLiveListings(ctx context.Context, forceRefresh, includeAll bool) ([]models.LiveListing, error) {
	snapshot := s.slot.Load()
	if forceRefresh || !s.fresh(snapshot) {
		s.metrics.IncrementCounter("misses")

		computed, err := s.recompute(ctx, forceRefresh)
		if err != nil && abandoned(err) && ctx.Err() == nil {
			// joined a computation whose caller went away
			computed, err = s.recompute(ctx, forceRefresh)
		}
		if err != nil {
			return nil, err
		}
		snapshot = computed
	} else {
		s.metrics.IncrementCounter("hits")
	}

	listings := snapshot.listings
	if !includeAll && s.topN > 0 && len(listings) > s.topN {
		listings = listings[:s.topN]
	}
	return copyListings(listings), nil
}

// recompute shares one computation between concurrent callers. A computation
// cut short by its caller's context is never stored.
func (s *LiveListingsService) recompute(ctx context.Context, forceRefresh bool) (*liveSnapshot, error) {
	result, err, _ := s.group.Do(liveListingsKey, func() (interface{}, error) {
		if current := s.slot.Load(); !forceRefresh && s.fresh(current) {
			return current, nil
		}
		computed, err := s.compute(ctx)
		if err != nil {
			return nil, err
		}
		s.slot.Store(computed)
		return computed, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*liveSnapshot), nil
}

func (s *LiveListingsService) fresh(snapshot *liveSnapshot) bool {
	return snapshot != nil && s.clock.Now().Sub(snapshot.computedAt) < s.ttl
}

// Invalidate drops the cached result so the next call recomputes
func (s *LiveListingsService) Invalidate() {
	s.slot.Store(nil)
	logrus.WithField("component", "LiveListingsService").Debug("Live listings cache invalidated")
}

// CachedAt returns when the cached result was computed
func (s *LiveListingsService) CachedAt() (time.Time, bool) {
	snapshot := s.slot.Load()
	if snapshot == nil {
		return time.Time{}, false
	}
	return snapshot.computedAt, true
}

func (s *LiveListingsService) compute(ctx context.Context) (*liveSnapshot, error) {
	start := s.clock.Now()
	logger := logrus.WithField("component", "LiveListingsService")

	records, err := s.store.Find(ctx, database.RecordFilter{}, database.SortByUpdatedDesc)
	if err != nil {
		s.metrics.RecordRequest(false, s.clock.Now().Sub(start))
		return nil, fmt.Errorf("failed to load records for live listings: %w", err)
	}

	// Symbols keep record order; the first record to claim a symbol owns it
	var symbols []string
	owners := make(map[string]*models.IPORecord)
	listed := 0
	for _, record := range records {
		if !s.extractor.IsListed(record, start) {
			continue
		}
		listed++

		symbol, ok := s.tickers.ResolveForRecord(ctx, record)
		if !ok {
			continue
		}
		if _, claimed := owners[symbol]; claimed {
			continue
		}
		owners[symbol] = record
		symbols = append(symbols, symbol)
	}

	quotes := s.aggregator.FetchAll(ctx, symbols)
	if err := ctx.Err(); err != nil {
		s.metrics.RecordRequest(false, s.clock.Now().Sub(start))
		logger.WithFields(logrus.Fields{
			"symbols": len(symbols),
			"quotes":  len(quotes),
		}).Warn("Live listings computation abandoned, keeping previous result")
		return nil, fmt.Errorf("live listings computation abandoned: %w", err)
	}

	listings := make([]models.LiveListing, 0, len(quotes))
	for _, symbol := range symbols {
		quote, ok := quotes[symbol]
		if !ok || !validPrice(quote.Price) {
			continue
		}
		listings = append(listings, s.assemble(ctx, owners[symbol], symbol, quote))
	}

	s.metrics.RecordRequest(true, s.clock.Now().Sub(start))
	logger.WithFields(logrus.Fields{
		"records":  len(records),
		"listed":   listed,
		"symbols":  len(symbols),
		"listings": len(listings),
		"duration": s.clock.Now().Sub(start),
	}).Info("Computed live listings")

	return &liveSnapshot{listings: listings, computedAt: s.clock.Now()}, nil
}

func (s *LiveListingsService) assemble(ctx context.Context, record *models.IPORecord, symbol string, quote models.Quote) models.LiveListing {
	listing := models.LiveListing{
		Name:   record.Name,
		Symbol: symbol,
		Price:  quote.Price,
	}

	if price, ok := s.listingPrices.GetListingPrice(ctx, symbol); ok {
		listing.ListingPrice = &price
	} else if scraped, ok := s.extractor.ListingAt(record); ok {
		price := scraped.InexactFloat64()
		listing.ListingPrice = &price
	}

	issue, ok := s.extractor.IssuePrice(record)
	if ok {
		price := issue.InexactFloat64()
		listing.IssuePrice = &price
	}
	listing.ChangePercent = ChangePercent(quote.Price, issue)
	return listing
}

// ChangePercent returns (current - issue) / issue * 100, or 0 when the issue
// price is not positive or the current price is not a finite number
func ChangePercent(current float64, issue decimal.Decimal) float64 {
	if !issue.IsPositive() || !isFinite(current) {
		return 0
	}
	issuePrice := issue.InexactFloat64()
	return (current - issuePrice) / issuePrice * 100
}

// abandoned reports whether err came from a cancelled or expired context
func abandoned(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func copyListings(listings []models.LiveListing) []models.LiveListing {
	out := make([]models.LiveListing, len(listings))
	for i, listing := range listings {
		out[i] = listing
		if listing.ListingPrice != nil {
			price := *listing.ListingPrice
			out[i].ListingPrice = &price
		}
		if listing.IssuePrice != nil {
			price := *listing.IssuePrice
			out[i].IssuePrice = &price
		}
	}
	return out
}

// Metrics exposes hit and miss counters
func (s *LiveListingsService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}
