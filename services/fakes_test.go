package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
)

var errProviderDown = errors.New("provider down")

// manualClock advances by the requested duration whenever After is called,
// so paced code runs instantly while still observing the delays.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *manualClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// fakeProvider is an in-memory MarketDataProvider with call counters
type fakeProvider struct {
	mu            sync.Mutex
	searchResults map[string][]models.SymbolMatch
	searchErr     error
	quotes        map[string]float64
	failQuotes    map[string]bool
	bars          map[string][]models.DailyBar

	searchCalls  int
	quoteCalls   int
	historyCalls int
	queries      []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		searchResults: make(map[string][]models.SymbolMatch),
		quotes:        make(map[string]float64),
		failQuotes:    make(map[string]bool),
		bars:          make(map[string][]models.DailyBar),
	}
}

func (f *fakeProvider) SearchSymbols(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.queries = append(f.queries, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults[query], nil
}

func (f *fakeProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++
	if f.failQuotes[symbol] {
		return nil, errProviderDown
	}
	price, ok := f.quotes[symbol]
	if !ok {
		return nil, errProviderDown
	}
	return &models.Quote{Symbol: symbol, Price: price}, nil
}

func (f *fakeProvider) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, errProviderDown
	}
	return bars, nil
}

func (f *fakeProvider) calls() (search, quote, history int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls, f.quoteCalls, f.historyCalls
}

func (f *fakeProvider) setQuote(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[symbol] = price
}

func testEngineConfig() *shared.EngineConfiguration {
	return shared.NewDefaultEngineConfiguration()
}

func newTestProvider(fake *fakeProvider, clock shared.Clock) *RateLimitedProvider {
	return NewRateLimitedProvider(fake, testEngineConfig(), clock)
}

func newTestNormalizer() *NameNormalizer {
	return NewNameNormalizer(testEngineConfig().Ticker.NoiseWords)
}
