package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/sirupsen/logrus"
)

// QuoteFetcher is the paced quote call used by BatchQuoteAggregator
type QuoteFetcher interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

const maxSampleErrors = 3

// BatchQuoteAggregator fetches quotes for many symbols one at a time,
// never concurrently.
type BatchQuoteAggregator struct {
	quotes QuoteFetcher
}

// NewBatchQuoteAggregator creates an aggregator over a paced quote source
func NewBatchQuoteAggregator(quotes QuoteFetcher) *BatchQuoteAggregator {
	return &BatchQuoteAggregator{quotes: quotes}
}

// FetchAll returns a quote for every symbol that succeeded. Failed symbols are
// logged and left out; the call itself never fails.
func (a *BatchQuoteAggregator) FetchAll(ctx context.Context, symbols []string) map[string]models.Quote {
	logger := logrus.WithField("component", "BatchQuoteAggregator")
	results := make(map[string]models.Quote, len(symbols))
	seen := make(map[string]bool, len(symbols))

	var failures []error
	failureCount := 0

	for _, symbol := range symbols {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		if ctx.Err() != nil {
			failureCount++
			if len(failures) < maxSampleErrors {
				failures = append(failures, fmt.Errorf("%s: %w", symbol, ctx.Err()))
			}
			continue
		}

		quote, err := a.quotes.GetQuote(ctx, symbol)
		if err != nil {
			failureCount++
			if len(failures) < maxSampleErrors {
				failures = append(failures, err)
			}
			logger.WithFields(logrus.Fields{
				"symbol": symbol,
				"error":  err.Error(),
			}).Warn("Quote fetch failed, omitting symbol")
			continue
		}
		results[symbol] = *quote
	}

	if failureCount > 0 {
		logger.WithFields(logrus.Fields{
			"requested": len(seen),
			"succeeded": len(results),
			"failed":    failureCount,
		}).Warn(shared.BuildBatchProcessingErrorSummary(len(results), failureCount, failures))
	} else {
		logger.WithField("symbols", len(results)).Debug("Fetched all quotes")
	}

	return results
}
