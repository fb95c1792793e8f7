package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
)

// FinnhubQuoteClient fetches live quotes from Finnhub's /quote endpoint
type FinnhubQuoteClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewFinnhubQuoteClient creates a quote client. apiKey must be non-empty.
func NewFinnhubQuoteClient(httpClient *http.Client, baseURL, apiKey string) *FinnhubQuoteClient {
	return &FinnhubQuoteClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type finnhubQuote struct {
	Current   float64 `json:"c"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	PrevClose float64 `json:"pc"`
}

// GetQuote returns the quote for symbol. Finnhub answers unknown symbols with zeros,
// which RateLimitedProvider rejects as a malformed quote.
func (c *FinnhubQuoteClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	headers := map[string]string{"X-Finnhub-Token": c.apiKey}

	var response finnhubQuote
	if err := shared.GetJSONWithHeaders(ctx, c.httpClient, c.baseURL+"/quote?"+params.Encode(), headers, &response); err != nil {
		return nil, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}

	return &models.Quote{
		Symbol:    symbol,
		Price:     response.Current,
		Open:      response.Open,
		High:      response.High,
		Low:       response.Low,
		PrevClose: response.PrevClose,
	}, nil
}
