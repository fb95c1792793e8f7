package services

import (
	"context"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
)

// SymbolSearcher looks up ticker symbols by free-text query
type SymbolSearcher interface {
	SearchSymbols(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error)
}

// QuoteSource returns a live quote for a symbol
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// HistorySource returns daily bars for a symbol between from and to, oldest first
type HistorySource interface {
	GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error)
}

// MarketDataProvider is the raw, unpaced market-data collaborator
type MarketDataProvider interface {
	SymbolSearcher
	QuoteSource
	HistorySource
}

type compositeProvider struct {
	SymbolSearcher
	QuoteSource
	HistorySource
}

// NewMarketDataProvider combines independent search, quote and history sources.
// Used to serve quotes from Finnhub while search and history stay on Yahoo.
func NewMarketDataProvider(search SymbolSearcher, quotes QuoteSource, history HistorySource) MarketDataProvider {
	return compositeProvider{
		SymbolSearcher: search,
		QuoteSource:    quotes,
		HistorySource:  history,
	}
}
