package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/database"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTickerCache(fake *fakeProvider, writeBack *WriteBackQueue) *TickerResolutionCache {
	config := testEngineConfig()
	return NewTickerResolutionCache(newTestProvider(fake, newManualClock()), newTestNormalizer(), config.Ticker, writeBack)
}

func TestNameNormalizer(t *testing.T) {
	normalizer := newTestNormalizer()

	assert.Equal(t, "Alpha Tech", normalizer.SearchQuery("  Alpha Tech Limited IPO "))
	assert.Equal(t, "Alpha Tech", normalizer.SearchQuery("Alpha Tech Ltd."))
	assert.Equal(t, "alpha tech", normalizer.CacheKey("ALPHA TECH PVT LTD"))
	assert.Equal(t, "", normalizer.SearchQuery("IPO Limited"))
	// whole words only
	assert.Equal(t, "Publicis Ltdx", normalizer.SearchQuery("Publicis Ltdx"))

	assert.Equal(t, []string{"alpha", "tech", "2"}, normalizer.Tokens("Alpha-Tech (2) Limited"))
	assert.Empty(t, normalizer.Tokens("IPO"))
}

func TestTickerCacheAcceptsFirstExchangeSuffix(t *testing.T) {
	fake := newFakeProvider()
	fake.searchResults["Alpha Tech"] = []models.SymbolMatch{
		{Symbol: "ALPHA"},
		{Symbol: "ALPHATECH.BO"},
		{Symbol: "ALPHATECH.NS"},
	}
	cache := newTestTickerCache(fake, nil)

	symbol, ok := cache.Resolve(context.Background(), "Alpha Tech Limited IPO")
	require.True(t, ok)
	assert.Equal(t, "ALPHATECH.BO", symbol)

	// same normalized name, served from the cache
	symbol, ok = cache.Resolve(context.Background(), "alpha tech ltd")
	require.True(t, ok)
	assert.Equal(t, "ALPHATECH.BO", symbol)

	searches, _, _ := fake.calls()
	assert.Equal(t, 1, searches)
	assert.Equal(t, int64(1), cache.Metrics().GetCounter("hits"))
}

func TestTickerCacheNegativeResultsArePermanent(t *testing.T) {
	fake := newFakeProvider()
	fake.searchResults["Beta Foods"] = []models.SymbolMatch{{Symbol: "BETA"}, {Symbol: "BETA.L"}}
	cache := newTestTickerCache(fake, nil)

	for i := 0; i < 3; i++ {
		_, ok := cache.Resolve(context.Background(), "Beta Foods")
		assert.False(t, ok)
	}

	searches, _, _ := fake.calls()
	assert.Equal(t, 1, searches)
	assert.Equal(t, 1, cache.Size())
}

func TestTickerCacheEmptyQuerySkipsProvider(t *testing.T) {
	fake := newFakeProvider()
	cache := newTestTickerCache(fake, nil)

	_, ok := cache.Resolve(context.Background(), "IPO Limited")
	assert.False(t, ok)

	searches, _, _ := fake.calls()
	assert.Zero(t, searches)
}

func TestTickerCacheFailedSearchIsNegativelyCached(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("For any name, a failed search returns no symbol and is never repeated", prop.ForAll(
		func(name string) bool {
			fake := newFakeProvider()
			fake.searchErr = errors.New("timeout")
			cache := newTestTickerCache(fake, nil)

			_, first := cache.Resolve(context.Background(), name)
			searchesAfterFirst, _, _ := fake.calls()
			_, second := cache.Resolve(context.Background(), name)
			searchesAfterSecond, _, _ := fake.calls()

			return !first && !second && searchesAfterFirst <= 1 && searchesAfterSecond == searchesAfterFirst
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestTickerCacheCancelledSearchIsNotCached(t *testing.T) {
	fake := newFakeProvider()
	fake.searchErr = context.Canceled
	cache := newTestTickerCache(fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := cache.Resolve(ctx, "Gamma Steel")
	assert.False(t, ok)
	assert.Zero(t, cache.Size())
}

// stallingLookup holds its first search until the caller's context ends
type stallingLookup struct {
	calls   atomic.Int32
	started chan struct{}
}

func (l *stallingLookup) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	if l.calls.Add(1) == 1 {
		close(l.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []models.SymbolMatch{{Symbol: "KILO.NS"}}, nil
}

func TestTickerCacheJoinerRetriesAfterLeaderCancels(t *testing.T) {
	lookup := &stallingLookup{started: make(chan struct{})}
	cache := NewTickerResolutionCache(lookup, newTestNormalizer(), testEngineConfig().Ticker, nil)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan bool, 1)
	go func() {
		_, ok := cache.Resolve(leaderCtx, "Kilo Energy Limited")
		leaderDone <- ok
	}()
	<-lookup.started

	joinerDone := make(chan string, 1)
	go func() {
		symbol, _ := cache.Resolve(context.Background(), "Kilo Energy Limited")
		joinerDone <- symbol
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.False(t, <-leaderDone)
	assert.Equal(t, "KILO.NS", <-joinerDone)
	assert.Equal(t, int32(2), lookup.calls.Load())
	assert.Equal(t, 1, cache.Size())
}

func TestTickerCacheCollapsesConcurrentMisses(t *testing.T) {
	fake := newFakeProvider()
	fake.searchResults["Delta Motors"] = []models.SymbolMatch{{Symbol: "DELTA.NS"}}
	cache := newTestTickerCache(fake, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			symbol, ok := cache.Resolve(context.Background(), "Delta Motors Limited")
			assert.True(t, ok)
			assert.Equal(t, "DELTA.NS", symbol)
		}()
	}
	wg.Wait()

	searches, _, _ := fake.calls()
	assert.Equal(t, 1, searches)
}

func TestResolveForRecordPrefersPersistedSymbol(t *testing.T) {
	fake := newFakeProvider()
	cache := newTestTickerCache(fake, nil)

	symbol := "STORED.NS"
	record := &models.IPORecord{Name: "Stored Co", ResolvedSymbol: &symbol}

	resolved, ok := cache.ResolveForRecord(context.Background(), record)
	require.True(t, ok)
	assert.Equal(t, "STORED.NS", resolved)

	searches, _, _ := fake.calls()
	assert.Zero(t, searches)
}

func TestResolveForRecordWritesSymbolBack(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryRecordStore()
	record, err := store.Upsert(ctx, &models.IPORecord{Name: "Echo Labs Limited"})
	require.NoError(t, err)

	fake := newFakeProvider()
	fake.searchResults["Echo Labs"] = []models.SymbolMatch{{Symbol: "ECHO.NS"}}
	queue := NewWriteBackQueue(store, testEngineConfig().WriteBack)
	cache := newTestTickerCache(fake, queue)

	symbol, ok := cache.ResolveForRecord(ctx, record)
	require.True(t, ok)
	assert.Equal(t, "ECHO.NS", symbol)

	queue.Close()

	stored, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	persisted, ok := stored.Symbol()
	require.True(t, ok)
	assert.Equal(t, "ECHO.NS", persisted)
	assert.Equal(t, int64(1), queue.Metrics().GetCounter("persisted"))
}

// rejectingStore fails every partial update
type rejectingStore struct {
	database.RecordStore
}

func (rejectingStore) UpdateFields(ctx context.Context, id uuid.UUID, update database.RecordUpdate) error {
	return errors.New("database unavailable")
}

func TestWriteBackFailureDoesNotFailResolution(t *testing.T) {
	store := &rejectingStore{RecordStore: database.NewMemoryRecordStore()}
	fake := newFakeProvider()
	fake.searchResults["Foxtrot"] = []models.SymbolMatch{{Symbol: "FOX.NS"}}
	queue := NewWriteBackQueue(store, testEngineConfig().WriteBack)
	cache := newTestTickerCache(fake, queue)

	symbol, ok := cache.ResolveForRecord(context.Background(), &models.IPORecord{Name: "Foxtrot"})
	require.True(t, ok)
	assert.Equal(t, "FOX.NS", symbol)

	queue.Close()
	assert.Equal(t, int64(1), queue.Metrics().GetCounter("failed"))
}

func TestWriteBackQueueDropsWhenClosed(t *testing.T) {
	queue := NewWriteBackQueue(database.NewMemoryRecordStore(), shared.WriteBackConfig{QueueSize: 1, Workers: 1})
	queue.Close()

	assert.False(t, queue.Enqueue(WriteBackTask{Symbol: "LATE.NS"}))
	assert.Equal(t, int64(1), queue.Metrics().GetCounter("dropped"))
}
