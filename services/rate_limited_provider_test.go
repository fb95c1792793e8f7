package services

import (
	"context"
	"testing"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitedProviderPacesQuotesGlobally(t *testing.T) {
	clock := newManualClock()
	fake := newFakeProvider()
	fake.setQuote("A.NS", 10)
	fake.setQuote("B.NS", 20)
	provider := newTestProvider(fake, clock)

	start := clock.Now()
	for _, symbol := range []string{"A.NS", "B.NS", "A.NS"} {
		_, err := provider.GetQuote(context.Background(), symbol)
		require.NoError(t, err)
	}

	assert.Equal(t, []time.Duration{1200 * time.Millisecond, 1200 * time.Millisecond}, clock.Sleeps())
	assert.Equal(t, start.Add(2400*time.Millisecond), provider.QuotePacer().GetLastRequestTime())
	assert.Equal(t, int64(3), provider.Metrics().GetCounter("quote_calls"))
}

func TestRateLimitedProviderLookupsUseSeparatePacer(t *testing.T) {
	clock := newManualClock()
	fake := newFakeProvider()
	fake.setQuote("A.NS", 10)
	provider := newTestProvider(fake, clock)

	_, err := provider.GetQuote(context.Background(), "A.NS")
	require.NoError(t, err)
	_, err = provider.SearchSymbols(context.Background(), "Alpha")
	require.NoError(t, err)

	assert.Empty(t, clock.Sleeps(), "first call on each pacer is immediate")
}

func TestRateLimitedProviderRejectsMalformedQuotes(t *testing.T) {
	fake := newFakeProvider()
	fake.setQuote("ZERO.NS", 0)
	provider := newTestProvider(fake, newManualClock())

	_, err := provider.GetQuote(context.Background(), "ZERO.NS")
	require.Error(t, err)
	category, ok := shared.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, shared.ErrorCategoryProviderUnavailable, category)
	assert.ErrorIs(t, err, errMalformedQuote)
}

func TestRateLimitedProviderDoesNotRetry(t *testing.T) {
	fake := newFakeProvider()
	fake.failQuotes["DOWN.NS"] = true
	provider := newTestProvider(fake, newManualClock())

	_, err := provider.GetQuote(context.Background(), "DOWN.NS")
	require.Error(t, err)
	assert.ErrorIs(t, err, errProviderDown)

	_, quoteCalls, _ := fake.calls()
	assert.Equal(t, 1, quoteCalls)
	assert.Equal(t, int64(1), provider.Metrics().GetCounter("failures"))
}

func TestRateLimitedProviderHistoricalOpenUsesEarliestBar(t *testing.T) {
	fake := newFakeProvider()
	fake.bars["ALPHA.NS"] = []models.DailyBar{
		{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Open: 121},
		{Time: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Open: 130},
	}
	fake.bars["EMPTY.NS"] = nil
	provider := newTestProvider(fake, newManualClock())

	open, err := provider.GetHistoricalOpen(context.Background(), "ALPHA.NS")
	require.NoError(t, err)
	assert.Equal(t, 121.0, open)

	_, err = provider.GetHistoricalOpen(context.Background(), "EMPTY.NS")
	assert.ErrorIs(t, err, errNoHistory)
}

func TestRateLimitedProviderCancelledWaitIsProviderError(t *testing.T) {
	fake := newFakeProvider()
	fake.setQuote("A.NS", 10)
	provider := newTestProvider(fake, newManualClock())

	_, err := provider.GetQuote(context.Background(), "A.NS")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// the manual clock fires immediately, so either branch may win the select
	_, err = provider.GetQuote(ctx, "A.NS")
	if err != nil {
		category, _ := shared.CategoryOf(err)
		assert.Equal(t, shared.ErrorCategoryProviderUnavailable, category)
	}
}
