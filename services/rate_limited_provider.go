package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/sirupsen/logrus"
)

var (
	errMalformedQuote = errors.New("malformed quote: missing or non-positive price")
	errNoHistory      = errors.New("no daily bars with an opening price")
)

// RateLimitedProvider wraps a MarketDataProvider with global pacing.
// Every quote call waits on one pacer shared by all symbols, so concurrent
// requests still respect the provider quota. Search and history calls use
// a second pacer. Failures are returned as provider_unavailable errors and
// never retried.
type RateLimitedProvider struct {
	provider     MarketDataProvider
	quotePacer   *shared.RequestPacer
	lookupPacer  *shared.RequestPacer
	clock        shared.Clock
	historyStart time.Time
	searchLimit  int
	metrics      *shared.ServiceMetrics
}

// NewRateLimitedProvider creates a paced provider client
func NewRateLimitedProvider(provider MarketDataProvider, config *shared.EngineConfiguration, clock shared.Clock) *RateLimitedProvider {
	if clock == nil {
		clock = shared.SystemClock()
	}
	return &RateLimitedProvider{
		provider:     provider,
		quotePacer:   shared.NewRequestPacer("quote", config.Provider.QuoteInterval, clock),
		lookupPacer:  shared.NewRequestPacer("lookup", config.Provider.LookupInterval, clock),
		clock:        clock,
		historyStart: config.HistoryStartTime(),
		searchLimit:  config.Provider.SearchLimit,
		metrics:      shared.NewServiceMetrics("RateLimitedProvider"),
	}
}

// SearchSymbols runs one paced symbol search
func (p *RateLimitedProvider) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	const operation = "SearchSymbols"
	if err := p.lookupPacer.Wait(ctx); err != nil {
		return nil, p.fail(operation, query, err)
	}

	start := p.clock.Now()
	matches, err := p.provider.SearchSymbols(ctx, query, p.searchLimit)
	p.metrics.RecordRequest(err == nil, p.clock.Now().Sub(start))
	p.metrics.IncrementCounter("search_calls")
	if err != nil {
		return nil, p.fail(operation, query, err)
	}
	return matches, nil
}

// GetQuote runs one paced quote call. A quote without a positive price is a failure.
func (p *RateLimitedProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	const operation = "GetQuote"
	if err := p.quotePacer.Wait(ctx); err != nil {
		return nil, p.fail(operation, symbol, err)
	}

	start := p.clock.Now()
	quote, err := p.provider.GetQuote(ctx, symbol)
	if err == nil && (quote == nil || !validPrice(quote.Price)) {
		err = errMalformedQuote
	}
	p.metrics.RecordRequest(err == nil, p.clock.Now().Sub(start))
	p.metrics.IncrementCounter("quote_calls")
	if err != nil {
		return nil, p.fail(operation, symbol, err)
	}

	result := *quote
	result.Symbol = symbol
	return &result, nil
}

// GetHistoricalOpen returns the opening price of the earliest available daily bar
func (p *RateLimitedProvider) GetHistoricalOpen(ctx context.Context, symbol string) (float64, error) {
	const operation = "GetHistoricalOpen"
	if err := p.lookupPacer.Wait(ctx); err != nil {
		return 0, p.fail(operation, symbol, err)
	}

	start := p.clock.Now()
	bars, err := p.provider.GetDailyBars(ctx, symbol, p.historyStart, p.clock.Now())
	if err == nil && (len(bars) == 0 || !validPrice(bars[0].Open)) {
		err = errNoHistory
	}
	p.metrics.RecordRequest(err == nil, p.clock.Now().Sub(start))
	p.metrics.IncrementCounter("history_calls")
	if err != nil {
		return 0, p.fail(operation, symbol, err)
	}
	return bars[0].Open, nil
}

func (p *RateLimitedProvider) fail(operation, subject string, cause error) error {
	p.metrics.IncrementCounter("failures")

	logrus.WithFields(logrus.Fields{
		"component": "RateLimitedProvider",
		"operation": operation,
		"subject":   subject,
		"error":     cause.Error(),
	}).Warn("Provider call failed")

	return shared.NewProviderError("RateLimitedProvider", operation, subject, cause)
}

// Metrics exposes call counters
func (p *RateLimitedProvider) Metrics() *shared.ServiceMetrics {
	return p.metrics
}

// QuotePacer exposes the global quote pacer, mainly for stats
func (p *RateLimitedProvider) QuotePacer() *shared.RequestPacer {
	return p.quotePacer
}

// String describes the provider pacing for startup logs
func (p *RateLimitedProvider) String() string {
	return fmt.Sprintf("quote every %s, lookups every %s", p.quotePacer.Interval(), p.lookupPacer.Interval())
}

func validPrice(price float64) bool {
	return price > 0 && isFinite(price)
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
